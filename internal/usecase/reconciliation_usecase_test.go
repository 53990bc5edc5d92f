package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/walletledger/internal/adapter/repository/memory"
	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/usecase"
)

type stubAccountRepository struct {
	usecase.AccountRepository
	accounts map[string]*domain.Account
	holders  []string
}

func (s *stubAccountRepository) GetByHolder(_ context.Context, holder string) (*domain.Account, error) {
	a, ok := s.accounts[holder]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a, nil
}

func (s *stubAccountRepository) GetByHolderForUpdate(ctx context.Context, _ usecase.Transaction, holder string) (*domain.Account, error) {
	return s.GetByHolder(ctx, holder)
}

type stubTx struct{}

func (stubTx) Commit(context.Context) error   { return nil }
func (stubTx) Rollback(context.Context) error { return nil }

type stubTxManager struct{}

func (stubTxManager) Begin(context.Context) (usecase.Transaction, error) { return stubTx{}, nil }

func (s *stubAccountRepository) ListHolders(_ context.Context, limit, offset int) ([]string, error) {
	if offset >= len(s.holders) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.holders) {
		end = len(s.holders)
	}
	return s.holders[offset:end], nil
}

type stubTransactionRepository struct {
	usecase.TransactionRepository
	byHolder map[string][]*domain.Transaction
	err      error
	calls    int
}

func (s *stubTransactionRepository) ListByHolder(_ context.Context, holder string, limit, offset int) ([]*domain.Transaction, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	txs := s.byHolder[holder]
	if offset >= len(txs) {
		return nil, nil
	}
	end := offset + limit
	if end > len(txs) {
		end = len(txs)
	}
	return txs[offset:end], nil
}

func record(kind domain.TransactionKind, currency, amount, fee string) *domain.Transaction {
	return &domain.Transaction{
		Kind:      kind,
		Currency:  currency,
		Amount:    decimal.RequireFromString(amount),
		Fee:       decimal.RequireFromString(fee),
		CreatedAt: time.Now(),
	}
}

func account(holder string, balances map[string]string) *domain.Account {
	a := domain.NewAccount(holder, time.Now())
	for c, b := range balances {
		a.Balances[c] = decimal.RequireFromString(b)
	}
	return a
}

func TestReconciliationUseCase_ReconcileHolder(t *testing.T) {
	accounts := &stubAccountRepository{accounts: map[string]*domain.Account{
		"alice": account("alice", map[string]string{"USD": "54", "EUR": "10"}),
	}}
	transactions := &stubTransactionRepository{byHolder: map[string][]*domain.Transaction{
		"alice": {
			record(domain.KindCredit, "USD", "100", "0"),
			record(domain.KindDebit, "USD", "40", "1"),
			record(domain.KindDebit, "USD", "5", "0"),
			record(domain.KindCredit, "EUR", "10", "3"),
		},
	}}

	uc := usecase.NewReconciliationUseCase(stubTxManager{}, accounts, transactions)

	result, err := uc.ReconcileHolder(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsReconciled {
		t.Fatalf("expected reconciled result, got %+v", result.Currencies)
	}
	if len(result.Currencies) != 2 {
		t.Fatalf("expected 2 currencies, got %d", len(result.Currencies))
	}
	if result.Currencies[0].Currency != "EUR" || result.Currencies[1].Currency != "USD" {
		t.Fatalf("currencies are not sorted: %+v", result.Currencies)
	}
	if result.Currencies[1].Transactions != 3 {
		t.Fatalf("expected 3 USD transactions, got %d", result.Currencies[1].Transactions)
	}
}

func TestReconciliationUseCase_Discrepancy(t *testing.T) {
	accounts := &stubAccountRepository{accounts: map[string]*domain.Account{
		"bob": account("bob", map[string]string{"USD": "75"}),
	}}
	transactions := &stubTransactionRepository{byHolder: map[string][]*domain.Transaction{
		"bob": {record(domain.KindCredit, "USD", "70", "0")},
	}}

	uc := usecase.NewReconciliationUseCase(stubTxManager{}, accounts, transactions)

	result, err := uc.ReconcileHolder(context.Background(), "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsReconciled {
		t.Fatal("expected discrepancy")
	}
	if !result.Currencies[0].Difference.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected difference 5, got %s", result.Currencies[0].Difference)
	}
}

func TestReconciliationUseCase_PagesThroughLog(t *testing.T) {
	var txs []*domain.Transaction
	for i := 0; i < 1203; i++ {
		txs = append(txs, record(domain.KindCredit, "USD", "1", "0"))
	}

	accounts := &stubAccountRepository{accounts: map[string]*domain.Account{
		"carol": account("carol", map[string]string{"USD": "1203"}),
	}}
	transactions := &stubTransactionRepository{byHolder: map[string][]*domain.Transaction{"carol": txs}}

	uc := usecase.NewReconciliationUseCase(stubTxManager{}, accounts, transactions)

	result, err := uc.ReconcileHolder(context.Background(), "carol")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsReconciled {
		t.Fatalf("expected reconciled result, got %+v", result.Currencies)
	}
	if transactions.calls != 3 {
		t.Fatalf("expected 3 page reads, got %d", transactions.calls)
	}
}

func TestReconciliationUseCase_Errors(t *testing.T) {
	uc := usecase.NewReconciliationUseCase(
		stubTxManager{},
		&stubAccountRepository{accounts: map[string]*domain.Account{"dave": account("dave", nil)}},
		&stubTransactionRepository{err: errors.New("connection reset")},
	)

	if _, err := uc.ReconcileHolder(context.Background(), "nobody"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := uc.ReconcileHolder(context.Background(), ""); !errors.Is(err, domain.ErrEmptyHolder) {
		t.Fatalf("expected ErrEmptyHolder, got %v", err)
	}
	if _, err := uc.ReconcileHolder(context.Background(), "dave"); err == nil {
		t.Fatal("expected log read error")
	}
}

func TestReconciliationUseCase_GenerateReport(t *testing.T) {
	accounts := &stubAccountRepository{accounts: map[string]*domain.Account{}}
	transactions := &stubTransactionRepository{byHolder: map[string][]*domain.Transaction{}}

	for i := 0; i < 4; i++ {
		holder := fmt.Sprintf("holder-%d", i)
		accounts.holders = append(accounts.holders, holder)
		accounts.accounts[holder] = account(holder, map[string]string{"USD": "10"})
		transactions.byHolder[holder] = []*domain.Transaction{record(domain.KindCredit, "USD", "10", "0")}
	}
	// holder-3 has a balance the log cannot explain.
	accounts.accounts["holder-3"].Balances["USD"] = decimal.NewFromInt(11)

	uc := usecase.NewReconciliationUseCase(stubTxManager{}, accounts, transactions)

	report, err := uc.GenerateReconciliationReport(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalAccounts != 4 || report.ReconciledAccounts != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(report.Discrepancies) != 1 || report.Discrepancies[0].Holder != "holder-3" {
		t.Fatalf("unexpected discrepancies %+v", report.Discrepancies)
	}
}

func TestReplay(t *testing.T) {
	balance := decimal.NewFromInt(10)

	if got := usecase.Replay(balance, record(domain.KindDebit, "USD", "3", "0.5")); !got.Equal(decimal.RequireFromString("6.5")) {
		t.Fatalf("debit replay: got %s", got)
	}
	if got := usecase.Replay(balance, record(domain.KindCredit, "USD", "3", "0.5")); !got.Equal(decimal.NewFromInt(13)) {
		t.Fatalf("credit replay: got %s", got)
	}
}

// interleavingLog runs during once, just before the first page of the log is read.
type interleavingLog struct {
	usecase.TransactionRepository
	once   sync.Once
	during func()
}

func (l *interleavingLog) ListByHolder(ctx context.Context, holder string, limit, offset int) ([]*domain.Transaction, error) {
	l.once.Do(l.during)
	return l.TransactionRepository.ListByHolder(ctx, holder, limit, offset)
}

func TestReconciliationUseCase_ConcurrentMutationIsNotADiscrepancy(t *testing.T) {
	store := memory.NewStore()
	txManager := memory.NewTxManager(store)
	accounts := memory.NewAccountRepository(store)
	transactions := memory.NewTransactionRepository(store)

	ledger := usecase.NewLedgerUseCase(usecase.LedgerConfig{
		TxManager:       txManager,
		AccountRepo:     accounts,
		TransactionRepo: transactions,
		IDGen:           &sequenceIDs{},
		Logger:          zerolog.Nop(),
	})

	ctx := context.Background()
	if _, err := ledger.Credit(ctx, change("alice", "5", "USD")); err != nil {
		t.Fatalf("seed credit: %v", err)
	}

	creditDone := make(chan error, 1)
	log := &interleavingLog{TransactionRepository: transactions}
	log.during = func() {
		go func() {
			_, err := ledger.Credit(ctx, change("alice", "3", "USD"))
			creditDone <- err
		}()
		// Give the credit a chance to commit between the balance read and the log read.
		select {
		case err := <-creditDone:
			creditDone <- err
		case <-time.After(50 * time.Millisecond):
		}
	}

	uc := usecase.NewReconciliationUseCase(txManager, accounts, log)

	result, err := uc.ReconcileHolder(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsReconciled {
		t.Fatalf("expected reconciled result, got %+v", result.Currencies)
	}
	if !result.Currencies[0].RecordedBalance.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("credit must wait for the reconciliation, recorded %s", result.Currencies[0].RecordedBalance)
	}

	if err := <-creditDone; err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if got, _ := ledger.GetBalance(ctx, "alice", "USD"); !got.Amount.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("expected balance 8 after the credit, got %s", got.Amount)
	}
}
