package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/walletledger/internal/domain"
)

// AccountRepository defines data access for accounts and their per-currency balances.
type AccountRepository interface {
	// EnsureTx inserts the account unless the holder already exists. It reports whether a row was inserted.
	EnsureTx(ctx context.Context, tx Transaction, account *domain.Account) (bool, error)
	GetByHolder(ctx context.Context, holder string) (*domain.Account, error)
	// GetByHolderForUpdate loads the account and holds its lock until tx ends.
	GetByHolderForUpdate(ctx context.Context, tx Transaction, holder string) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx Transaction, holder, currency string, balance decimal.Decimal, updatedAt time.Time) error
	ListHolders(ctx context.Context, limit, offset int) ([]string, error)
}

// TransactionRepository is the append-only transaction log.
type TransactionRepository interface {
	Append(ctx context.Context, tx Transaction, transaction *domain.Transaction) error
	ListByHolder(ctx context.Context, holder string, limit, offset int) ([]*domain.Transaction, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents a storage transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotentResponse is what the idempotency store keeps per key.
// A zero StatusCode means the first request is still in flight.
type IdempotentResponse struct {
	RequestHash string `json:"request_hash"`
	StatusCode  int    `json:"status_code"`
	Body        []byte `json:"body,omitempty"`
}

// Pending reports whether the original request has not finished yet.
func (r *IdempotentResponse) Pending() bool {
	return r.StatusCode == 0
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// Reserve claims key for a new request. When the key is already taken it
	// returns the stored record and reserved=false.
	Reserve(ctx context.Context, key, requestHash string, ttl time.Duration) (existing *IdempotentResponse, reserved bool, err error)
	// Complete stores the final response for a reserved key.
	Complete(ctx context.Context, key string, response *IdempotentResponse, ttl time.Duration) error
	// Release drops a reservation so the request can be retried.
	Release(ctx context.Context, key string) error
}
