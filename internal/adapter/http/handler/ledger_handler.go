package handler

import (
	"context"
	"net/http"

	"github.com/iho/walletledger/internal/adapter/http/dto"
	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/usecase"
)

// ReconciliationService defines the behavior needed by LedgerHandler.
type ReconciliationService interface {
	ReconcileHolder(ctx context.Context, holder string) (*usecase.ReconciliationResult, error)
	GenerateReconciliationReport(ctx context.Context, limit, offset int) (*usecase.ReconciliationReport, error)
}

// LedgerHandler handles ledger-wide consistency checks.
type LedgerHandler struct {
	reconciliationUC ReconciliationService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(reconciliationUC ReconciliationService) *LedgerHandler {
	return &LedgerHandler{reconciliationUC: reconciliationUC}
}

// ReconcileHolder replays one holder's transaction log against the stored balances.
// A holder whose balances do not match the log is reported with 409.
func (h *LedgerHandler) ReconcileHolder(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconciliationUC.ReconcileHolder(r.Context(), urlParam(r, "holder"))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to reconcile account", err.Error())
		return
	}

	status := http.StatusOK
	if !result.IsReconciled {
		status = http.StatusConflict
	}

	writeJSON(w, status, dto.ReconciliationFromUseCase(result))
}

// Report reconciles a page of holders.
func (h *LedgerHandler) Report(w http.ResponseWriter, r *http.Request) {
	limit, offset, _ := domain.ValidatePagination(parseIntQuery(r, "limit", 100), parseIntQuery(r, "offset", 0))

	report, err := h.reconciliationUC.GenerateReconciliationReport(r.Context(), limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to generate reconciliation report", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationReportFromUseCase(report))
}
