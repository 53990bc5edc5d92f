package dto

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iho/walletledger/internal/usecase"
)

// ErrMissingAmount is returned when a mutation request has no amount field.
var ErrMissingAmount = errors.New("amount is required")

// MutationRequest is the body of a debit or credit request.
type MutationRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Currency    string           `json:"currency"`
	ReferenceID string           `json:"reference_id"`
	Description string           `json:"description"`
	Fee         *decimal.Decimal `json:"fee,omitempty"`
}

// ToUseCaseInput converts to use case input. The fee defaults to zero.
func (r *MutationRequest) ToUseCaseInput(holder string) (usecase.ChangeInput, error) {
	if r.Amount == nil {
		return usecase.ChangeInput{}, ErrMissingAmount
	}

	fee := decimal.Zero
	if r.Fee != nil {
		fee = *r.Fee
	}

	return usecase.ChangeInput{
		Holder:      holder,
		Currency:    r.Currency,
		ReferenceID: r.ReferenceID,
		Description: r.Description,
		Amount:      *r.Amount,
		Fee:         fee,
	}, nil
}

// SetAdminRequest changes the holder that receives fees.
type SetAdminRequest struct {
	Holder string `json:"holder"`
}

// PaginationRequest represents pagination parameters.
type PaginationRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
