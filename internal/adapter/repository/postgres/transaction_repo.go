package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/infrastructure/postgres/generated"
	"github.com/iho/walletledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
// The table is append-only; a trigger rejects UPDATE and DELETE.
type TransactionRepository struct {
	queries *generated.Queries
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return newTransactionRepository(pool)
}

func newTransactionRepository(db generated.DBTX) *TransactionRepository {
	return &TransactionRepository{queries: generated.New(db)}
}

// Append records a transaction within tx.
func (r *TransactionRepository) Append(ctx context.Context, tx usecase.Transaction, transaction *domain.Transaction) error {
	queries := generated.New(tx.(*Tx).PgxTx())

	err := queries.CreateTransaction(ctx, generated.CreateTransactionParams{
		ID:           transaction.ID,
		Holder:       transaction.Holder,
		Kind:         int16(transaction.Kind),
		Amount:       decimalToNumeric(transaction.Amount),
		Currency:     transaction.Currency,
		Fee:          decimalToNumeric(transaction.Fee),
		BalanceAfter: decimalToNumeric(transaction.BalanceAfter),
		ReferenceID:  transaction.ReferenceID,
		Description:  transaction.Description,
		CreatedAt:    timeToPgTimestamptz(transaction.CreatedAt),
	})

	return classify(err)
}

// ListByHolder lists a holder's transactions, oldest first.
func (r *TransactionRepository) ListByHolder(ctx context.Context, holder string, limit, offset int) ([]*domain.Transaction, error) {
	rows, err := r.queries.ListTransactionsByHolder(ctx, generated.ListTransactionsByHolderParams{
		Holder: holder,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, classify(err)
	}

	transactions := make([]*domain.Transaction, 0, len(rows))
	for _, row := range rows {
		transactions = append(transactions, rowToTransaction(row))
	}

	return transactions, nil
}

func rowToTransaction(row generated.Transaction) *domain.Transaction {
	return &domain.Transaction{
		ID:           row.ID,
		Holder:       row.Holder,
		Kind:         domain.TransactionKind(row.Kind),
		Amount:       numericToDecimal(row.Amount),
		Currency:     row.Currency,
		Fee:          numericToDecimal(row.Fee),
		BalanceAfter: numericToDecimal(row.BalanceAfter),
		ReferenceID:  row.ReferenceID,
		Description:  row.Description,
		CreatedAt:    row.CreatedAt.Time,
	}
}
