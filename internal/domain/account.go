package domain

import (
	"maps"
	"time"

	"github.com/shopspring/decimal"
)

// Account holds one balance per currency for a single holder.
type Account struct {
	Holder    string
	Balances  map[string]decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccount returns an account with no balances.
func NewAccount(holder string, now time.Time) *Account {
	return &Account{
		Holder:    holder,
		Balances:  make(map[string]decimal.Decimal),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Balance returns the balance in currency, zero if the currency was never touched.
func (a *Account) Balance(currency string) decimal.Decimal {
	if a.Balances == nil {
		return decimal.Zero
	}
	if b, ok := a.Balances[currency]; ok {
		return b
	}
	return decimal.Zero
}

// ValidateDebit checks that amount plus fee is covered by the balance in currency.
func (a *Account) ValidateDebit(currency string, amount, fee decimal.Decimal) error {
	if amount.Add(fee).GreaterThan(a.Balance(currency)) {
		return ErrInsufficientFunds
	}
	return nil
}

// ApplyDebit returns the balance after a debit. The fee is charged to this account.
func (a *Account) ApplyDebit(currency string, amount, fee decimal.Decimal) decimal.Decimal {
	return a.Balance(currency).Sub(amount.Add(fee))
}

// ApplyCredit returns the balance after a credit. The fee is not deducted here;
// it is levied on the acting side and routed to the admin account separately.
func (a *Account) ApplyCredit(currency string, amount decimal.Decimal) decimal.Decimal {
	return a.Balance(currency).Add(amount)
}

// Snapshot returns a copy of the balances that callers may keep.
func (a *Account) Snapshot() map[string]decimal.Decimal {
	if a.Balances == nil {
		return map[string]decimal.Decimal{}
	}
	return maps.Clone(a.Balances)
}
