package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/infrastructure/postgres/generated"
	"github.com/iho/walletledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
// Balances live in account_balances, one row per holder and currency.
type AccountRepository struct {
	queries *generated.Queries
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return newAccountRepository(pool)
}

func newAccountRepository(db generated.DBTX) *AccountRepository {
	return &AccountRepository{queries: generated.New(db)}
}

// EnsureTx inserts the account unless it exists.
func (r *AccountRepository) EnsureTx(ctx context.Context, tx usecase.Transaction, account *domain.Account) (bool, error) {
	queries := generated.New(tx.(*Tx).PgxTx())

	n, err := queries.EnsureAccount(ctx, generated.EnsureAccountParams{
		Holder:    account.Holder,
		CreatedAt: timeToPgTimestamptz(account.CreatedAt),
		UpdatedAt: timeToPgTimestamptz(account.UpdatedAt),
	})
	if err != nil {
		return false, classify(err)
	}

	return n == 1, nil
}

// GetByHolder retrieves an account with all of its balances.
func (r *AccountRepository) GetByHolder(ctx context.Context, holder string) (*domain.Account, error) {
	return loadAccount(ctx, r.queries, holder, false)
}

// GetByHolderForUpdate retrieves an account with a FOR UPDATE lock on its row.
// Balance rows are only written while that lock is held, so they are read consistently.
func (r *AccountRepository) GetByHolderForUpdate(ctx context.Context, tx usecase.Transaction, holder string) (*domain.Account, error) {
	return loadAccount(ctx, generated.New(tx.(*Tx).PgxTx()), holder, true)
}

func loadAccount(ctx context.Context, queries *generated.Queries, holder string, forUpdate bool) (*domain.Account, error) {
	var (
		row generated.Account
		err error
	)
	if forUpdate {
		row, err = queries.GetAccountByHolderForUpdate(ctx, holder)
	} else {
		row, err = queries.GetAccountByHolder(ctx, holder)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, classify(err)
	}

	balances, err := queries.ListAccountBalances(ctx, holder)
	if err != nil {
		return nil, classify(err)
	}

	return rowToAccount(row, balances), nil
}

// UpdateBalance writes the balance of one currency. The account row must be locked by tx.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, holder, currency string, balance decimal.Decimal, updatedAt time.Time) error {
	queries := generated.New(tx.(*Tx).PgxTx())

	if err := queries.UpsertAccountBalance(ctx, generated.UpsertAccountBalanceParams{
		Holder:    holder,
		Currency:  currency,
		Amount:    decimalToNumeric(balance),
		UpdatedAt: timeToPgTimestamptz(updatedAt),
	}); err != nil {
		return classify(err)
	}

	if err := queries.TouchAccount(ctx, generated.TouchAccountParams{
		Holder:    holder,
		UpdatedAt: timeToPgTimestamptz(updatedAt),
	}); err != nil {
		return classify(err)
	}

	return nil
}

// ListHolders lists holders in lexical order.
func (r *AccountRepository) ListHolders(ctx context.Context, limit, offset int) ([]string, error) {
	holders, err := r.queries.ListHolders(ctx, generated.ListHoldersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, classify(err)
	}

	return holders, nil
}

func rowToAccount(row generated.Account, balances []generated.AccountBalance) *domain.Account {
	account := &domain.Account{
		Holder:    row.Holder,
		Balances:  make(map[string]decimal.Decimal, len(balances)),
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
	for _, b := range balances {
		account.Balances[b.Currency] = numericToDecimal(b.Amount)
	}

	return account
}

// Type conversion helpers.

// decimalToNumeric copies the coefficient and exponent, so every decimal maps to a valid NUMERIC.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.Int == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}
