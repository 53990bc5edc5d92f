package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind is the direction of a balance change.
type TransactionKind int

const (
	KindDebit TransactionKind = iota + 1
	KindCredit
)

// String returns the wire name of the kind.
func (k TransactionKind) String() string {
	switch k {
	case KindDebit:
		return "debit"
	case KindCredit:
		return "credit"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the defined kinds.
func (k TransactionKind) Valid() bool {
	return k == KindDebit || k == KindCredit
}

// ParseTransactionKind parses "debit" or "credit".
func ParseTransactionKind(s string) (TransactionKind, error) {
	switch s {
	case "debit":
		return KindDebit, nil
	case "credit":
		return KindCredit, nil
	default:
		return 0, ErrInvalidKind
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k TransactionKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, ErrInvalidKind
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *TransactionKind) UnmarshalText(text []byte) error {
	parsed, err := ParseTransactionKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Transaction is an immutable record of one balance change.
type Transaction struct {
	CreatedAt    time.Time
	ID           string
	Holder       string
	ReferenceID  string
	Description  string
	Currency     string
	Kind         TransactionKind
	Amount       decimal.Decimal
	Fee          decimal.Decimal
	BalanceAfter decimal.Decimal
}

// FeeDescription is the description of the admin credit created for a fee.
func FeeDescription(description string) string {
	return "Transaction fee for " + description
}
