package domain

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxHolderLength   = 255
	MaxCurrencyLength = 16
)

// ValidateHolder validates a holder identity. Holders are opaque; only emptiness and length are checked.
func ValidateHolder(holder string) error {
	if strings.TrimSpace(holder) == "" {
		return ErrEmptyHolder
	}

	if len(holder) > MaxHolderLength {
		return ErrHolderTooLong
	}

	return nil
}

// ValidateCurrency validates the shape of a currency code. It is not checked against ISO 4217.
func ValidateCurrency(currency string) error {
	if strings.TrimSpace(currency) == "" {
		return ErrEmptyCurrency
	}

	if len(currency) > MaxCurrencyLength {
		return ErrInvalidCurrency
	}

	for _, r := range currency {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return ErrInvalidCurrency
		}
	}

	return nil
}

// ValidateAmount rejects negative amounts. Zero is allowed.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// ValidateFee rejects negative fees.
func ValidateFee(fee decimal.Decimal) error {
	if fee.IsNegative() {
		return ErrNegativeFee
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
