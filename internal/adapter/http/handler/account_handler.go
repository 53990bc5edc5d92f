package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/iho/walletledger/internal/adapter/http/dto"
	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	GetBalance(ctx context.Context, holder, currency string) (*usecase.BalanceResult, error)
	GetBalanceSummary(ctx context.Context, holder string) (*usecase.BalanceSummary, error)
	Debit(ctx context.Context, input usecase.ChangeInput) (*usecase.MutationResult, error)
	Credit(ctx context.Context, input usecase.ChangeInput) (*usecase.MutationResult, error)
	ListTransactions(ctx context.Context, holder string, limit, offset int) ([]*domain.Transaction, error)
}

// AccountHandler handles per-holder balance requests.
type AccountHandler struct {
	ledgerUC AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(ledgerUC AccountService) *AccountHandler {
	return &AccountHandler{ledgerUC: ledgerUC}
}

// GetBalances returns every balance of the holder.
func (h *AccountHandler) GetBalances(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ledgerUC.GetBalanceSummary(r.Context(), urlParam(r, "holder"))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get balances", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceSummaryFromUseCase(summary))
}

// GetBalance returns the holder's balance in one currency.
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.ledgerUC.GetBalance(r.Context(), urlParam(r, "holder"), urlParam(r, "currency"))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get balance", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromUseCase(balance))
}

// Debit debits the holder.
func (h *AccountHandler) Debit(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.ledgerUC.Debit)
}

// Credit credits the holder.
func (h *AccountHandler) Credit(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.ledgerUC.Credit)
}

// ListTransactions returns a page of the holder's transactions.
func (h *AccountHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, offset, _ := domain.ValidatePagination(parseIntQuery(r, "limit", 50), parseIntQuery(r, "offset", 0))

	transactions, err := h.ledgerUC.ListTransactions(r.Context(), urlParam(r, "holder"), limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list transactions", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListTransactionsResponse{
		Transactions: dto.TransactionsFromDomain(transactions),
		Limit:        limit,
		Offset:       offset,
	})
}

type mutateFunc func(ctx context.Context, input usecase.ChangeInput) (*usecase.MutationResult, error)

// mutate answers 200 on success, 422 on insufficient funds and 207 when the
// mutation committed but the fee credit to the admin failed.
func (h *AccountHandler) mutate(w http.ResponseWriter, r *http.Request, fn mutateFunc) {
	holder := urlParam(r, "holder")

	var req dto.MutationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput(holder)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := fn(r.Context(), input)
	if result == nil {
		writeError(w, mapDomainError(err), "mutation failed", err.Error())
		return
	}

	resp := dto.MutationFromUseCase(holder, input.Currency, result)

	switch {
	case err != nil:
		resp.FeeError = err.Error()
		writeJSON(w, http.StatusMultiStatus, resp)
	case result.Rejected():
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

// urlParam returns the unescaped chi URL parameter.
func urlParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
