package integration

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/iho/walletledger/internal/adapter/repository/postgres"
	"github.com/iho/walletledger/internal/usecase"
	"github.com/iho/walletledger/tests/testutil"
)

type ledgerFixture struct {
	ledger          *usecase.LedgerUseCase
	reconciliation  *usecase.ReconciliationUseCase
	accountRepo     *postgres.AccountRepository
	transactionRepo *postgres.TransactionRepository
	outboxRepo      *postgres.OutboxRepository
}

func newLedgerFixture(t *testing.T, db *testutil.TestDB, admin string) *ledgerFixture {
	t.Helper()

	txManager := postgres.NewTxManager(db.Pool)
	accountRepo := postgres.NewAccountRepository(db.Pool)
	transactionRepo := postgres.NewTransactionRepository(db.Pool)
	outboxRepo := postgres.NewOutboxRepository(db.Pool)

	ledger := usecase.NewLedgerUseCase(usecase.LedgerConfig{
		TxManager:       txManager,
		AccountRepo:     accountRepo,
		TransactionRepo: transactionRepo,
		OutboxRepo:      outboxRepo,
		IDGen:           postgres.NewULIDGenerator(),
		Notifier:        usecase.NewNotifier(zerolog.Nop(), nil),
		Logger:          zerolog.Nop(),
		AdminHolder:     admin,
	})

	return &ledgerFixture{
		ledger:          ledger,
		reconciliation:  usecase.NewReconciliationUseCase(txManager, accountRepo, transactionRepo),
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		outboxRepo:      outboxRepo,
	}
}
