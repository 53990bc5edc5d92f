package domain

import (
	"errors"
	"fmt"
)

var (
	// Account errors
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Input errors. Every specific input error wraps ErrInvalidInput.
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyHolder     = fmt.Errorf("%w: holder must not be empty", ErrInvalidInput)
	ErrHolderTooLong   = fmt.Errorf("%w: holder exceeds %d characters", ErrInvalidInput, MaxHolderLength)
	ErrEmptyCurrency   = fmt.Errorf("%w: currency must not be empty", ErrInvalidInput)
	ErrInvalidCurrency = fmt.Errorf("%w: malformed currency code", ErrInvalidInput)
	ErrNegativeAmount  = fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	ErrNegativeFee     = fmt.Errorf("%w: fee must not be negative", ErrInvalidInput)
	ErrInvalidKind     = fmt.Errorf("%w: unknown transaction kind", ErrInvalidInput)

	// Storage errors
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrWriteConflict      = errors.New("write conflict")
)

// Step names the stage of a mutation that failed.
type Step string

const (
	StepLoadAccount       Step = "load_account"
	StepBalanceWrite      Step = "balance_write"
	StepTransactionAppend Step = "transaction_append"
	StepOutboxAppend      Step = "outbox_append"
	StepCommit            Step = "commit"
	StepFeeCredit         Step = "fee_credit"
)

// StepError annotates a storage failure with the mutation step it happened in.
type StepError struct {
	Step   Step
	Holder string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s for %s: %v", e.Step, e.Holder, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// FailedStep reports the step recorded in err, if any.
func FailedStep(err error) (Step, bool) {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step, true
	}
	return "", false
}
