package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a storage transaction.
	// The caller's own deadline still applies when it is shorter.
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultAdminHolder receives fee side-payments when no admin holder is configured.
	DefaultAdminHolder = "walletadmin@sakshwallet.com"

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// reconcilePageSize bounds each read of the transaction log during reconciliation.
	reconcilePageSize = 500
)
