package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/usecase"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// BalanceResponse is a single balance.
type BalanceResponse struct {
	Holder   string          `json:"holder"`
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// BalanceFromUseCase converts a balance result to a response.
func BalanceFromUseCase(b *usecase.BalanceResult) *BalanceResponse {
	return &BalanceResponse{
		Holder:   b.Holder,
		Currency: b.Currency,
		Amount:   b.Amount,
	}
}

// BalanceSummaryResponse lists every balance of a holder.
type BalanceSummaryResponse struct {
	Holder   string                     `json:"holder"`
	Balances map[string]decimal.Decimal `json:"balances"`
}

// BalanceSummaryFromUseCase converts a balance summary to a response.
func BalanceSummaryFromUseCase(s *usecase.BalanceSummary) *BalanceSummaryResponse {
	balances := s.Balances
	if balances == nil {
		balances = map[string]decimal.Decimal{}
	}

	return &BalanceSummaryResponse{
		Holder:   s.Holder,
		Balances: balances,
	}
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID           string                 `json:"id"`
	Holder       string                 `json:"holder"`
	Kind         domain.TransactionKind `json:"kind"`
	Amount       decimal.Decimal        `json:"amount"`
	Currency     string                 `json:"currency"`
	Fee          decimal.Decimal        `json:"fee"`
	BalanceAfter decimal.Decimal        `json:"balance_after"`
	ReferenceID  string                 `json:"reference_id"`
	Description  string                 `json:"description"`
	CreatedAt    time.Time              `json:"created_at"`
}

// TransactionFromDomain converts a domain transaction to a response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	if t == nil {
		return nil
	}

	return &TransactionResponse{
		ID:           t.ID,
		Holder:       t.Holder,
		Kind:         t.Kind,
		Amount:       t.Amount,
		Currency:     t.Currency,
		Fee:          t.Fee,
		BalanceAfter: t.BalanceAfter,
		ReferenceID:  t.ReferenceID,
		Description:  t.Description,
		CreatedAt:    t.CreatedAt,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(transactions []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(transactions))
	for i, t := range transactions {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// ListTransactionsResponse is a page of the transaction log.
type ListTransactionsResponse struct {
	Transactions []*TransactionResponse `json:"transactions"`
	Limit        int                    `json:"limit"`
	Offset       int                    `json:"offset"`
}

// MutationResponse is the outcome of a debit or credit.
// FeeError is set when the mutation committed but the fee could not be credited to the admin.
type MutationResponse struct {
	Status         string               `json:"status"`
	Message        string               `json:"message"`
	Holder         string               `json:"holder"`
	Currency       string               `json:"currency"`
	Balance        *decimal.Decimal     `json:"balance,omitempty"`
	Transaction    *TransactionResponse `json:"transaction,omitempty"`
	FeeTransaction *TransactionResponse `json:"fee_transaction,omitempty"`
	FeeError       string               `json:"fee_error,omitempty"`
}

// MutationFromUseCase converts a mutation result to a response.
func MutationFromUseCase(holder, currency string, r *usecase.MutationResult) *MutationResponse {
	resp := &MutationResponse{
		Status:   r.Status.String(),
		Message:  r.Message,
		Holder:   holder,
		Currency: currency,
	}
	if r.Rejected() {
		return resp
	}

	balance := r.Balance
	resp.Balance = &balance
	resp.Transaction = TransactionFromDomain(r.Transaction)
	resp.FeeTransaction = TransactionFromDomain(r.FeeTransaction)

	return resp
}

// AdminResponse names the holder that receives fees.
type AdminResponse struct {
	Holder string `json:"holder"`
}

// CurrencyReconciliationResponse is the replay result for one currency.
type CurrencyReconciliationResponse struct {
	Currency          string          `json:"currency"`
	RecordedBalance   decimal.Decimal `json:"recorded_balance"`
	CalculatedBalance decimal.Decimal `json:"calculated_balance"`
	Difference        decimal.Decimal `json:"difference"`
	Transactions      int             `json:"transactions"`
}

// ReconciliationResponse is the replay result for one holder.
type ReconciliationResponse struct {
	Holder       string                           `json:"holder"`
	IsReconciled bool                             `json:"is_reconciled"`
	Currencies   []CurrencyReconciliationResponse `json:"currencies"`
	LastChecked  time.Time                        `json:"last_checked"`
}

// ReconciliationFromUseCase converts a reconciliation result to a response.
func ReconciliationFromUseCase(r *usecase.ReconciliationResult) *ReconciliationResponse {
	currencies := make([]CurrencyReconciliationResponse, len(r.Currencies))
	for i, c := range r.Currencies {
		currencies[i] = CurrencyReconciliationResponse{
			Currency:          c.Currency,
			RecordedBalance:   c.RecordedBalance,
			CalculatedBalance: c.CalculatedBalance,
			Difference:        c.Difference,
			Transactions:      c.Transactions,
		}
	}

	return &ReconciliationResponse{
		Holder:       r.Holder,
		IsReconciled: r.IsReconciled,
		Currencies:   currencies,
		LastChecked:  r.LastChecked,
	}
}

// ReconciliationReportResponse summarises reconciliation over a page of holders.
type ReconciliationReportResponse struct {
	TotalAccounts      int                       `json:"total_accounts"`
	ReconciledAccounts int                       `json:"reconciled_accounts"`
	Discrepancies      []*ReconciliationResponse `json:"discrepancies"`
	CheckedAt          time.Time                 `json:"checked_at"`
}

// ReconciliationReportFromUseCase converts a report to a response.
func ReconciliationReportFromUseCase(r *usecase.ReconciliationReport) *ReconciliationReportResponse {
	discrepancies := make([]*ReconciliationResponse, len(r.Discrepancies))
	for i, d := range r.Discrepancies {
		discrepancies[i] = ReconciliationFromUseCase(d)
	}

	return &ReconciliationReportResponse{
		TotalAccounts:      r.TotalAccounts,
		ReconciledAccounts: r.ReconciledAccounts,
		Discrepancies:      discrepancies,
		CheckedAt:          r.CheckedAt,
	}
}
