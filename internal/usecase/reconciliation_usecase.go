package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/walletledger/internal/domain"
)

// ReconciliationUseCase checks stored balances against the transaction log.
type ReconciliationUseCase struct {
	txManager       TransactionManager
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(txManager TransactionManager, accountRepo AccountRepository, transactionRepo TransactionRepository) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		txManager:       txManager,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
	}
}

// CurrencyReconciliation compares one stored balance with the balance replayed from the log.
type CurrencyReconciliation struct {
	Currency          string
	RecordedBalance   decimal.Decimal
	CalculatedBalance decimal.Decimal
	Difference        decimal.Decimal
	Transactions      int
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	Holder       string
	Currencies   []CurrencyReconciliation
	IsReconciled bool
	LastChecked  time.Time
}

// ReconcileHolder replays the holder's transactions from zero and compares the outcome
// with the stored balance of every currency seen in either place.
// The account row stays locked while the log is read, so no mutation of the holder
// can commit between the two reads.
func (uc *ReconciliationUseCase) ReconcileHolder(ctx context.Context, holder string) (*ReconciliationResult, error) {
	if err := domain.ValidateHolder(holder); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	account, err := uc.accountRepo.GetByHolderForUpdate(txCtx, tx, holder)
	if err != nil {
		return nil, err
	}

	calculated := make(map[string]decimal.Decimal)
	counts := make(map[string]int)

	limit, offset, _ := domain.ValidatePagination(reconcilePageSize, 0)
	for {
		page, err := uc.transactionRepo.ListByHolder(txCtx, holder, limit, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to read transactions of %s: %w", holder, err)
		}

		for _, tx := range page {
			calculated[tx.Currency] = Replay(calculated[tx.Currency], tx)
			counts[tx.Currency]++
		}

		if len(page) < limit {
			break
		}
		offset += len(page)
	}

	currencies := make(map[string]struct{})
	for c := range account.Balances {
		currencies[c] = struct{}{}
	}
	for c := range calculated {
		currencies[c] = struct{}{}
	}

	result := &ReconciliationResult{
		Holder:       holder,
		IsReconciled: true,
		LastChecked:  time.Now().UTC(),
	}

	for c := range currencies {
		recorded := account.Balance(c)
		replayed := calculated[c]
		diff := recorded.Sub(replayed)

		result.Currencies = append(result.Currencies, CurrencyReconciliation{
			Currency:          c,
			RecordedBalance:   recorded,
			CalculatedBalance: replayed,
			Difference:        diff,
			Transactions:      counts[c],
		})

		if !diff.IsZero() {
			result.IsReconciled = false
		}
	}

	sort.Slice(result.Currencies, func(i, j int) bool {
		return result.Currencies[i].Currency < result.Currencies[j].Currency
	})

	return result, nil
}

// Replay applies one transaction to a balance the same way the engine did when it was recorded.
func Replay(balance decimal.Decimal, tx *domain.Transaction) decimal.Decimal {
	switch tx.Kind {
	case domain.KindDebit:
		return balance.Sub(tx.Amount).Sub(tx.Fee)
	case domain.KindCredit:
		return balance.Add(tx.Amount)
	default:
		return balance
	}
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalAccounts      int
	ReconciledAccounts int
	Discrepancies      []*ReconciliationResult
	CheckedAt          time.Time
}

// GenerateReconciliationReport reconciles up to limit holders starting at offset.
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context, limit, offset int) (*ReconciliationReport, error) {
	limit, offset, _ = domain.ValidatePagination(limit, offset)

	holders, err := uc.accountRepo.ListHolders(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	report := &ReconciliationReport{
		TotalAccounts: len(holders),
		Discrepancies: make([]*ReconciliationResult, 0),
		CheckedAt:     time.Now().UTC(),
	}

	for _, holder := range holders {
		result, err := uc.ReconcileHolder(ctx, holder)
		if err != nil {
			return nil, fmt.Errorf("failed to reconcile account %s: %w", holder, err)
		}

		if result.IsReconciled {
			report.ReconciledAccounts++
		} else {
			report.Discrepancies = append(report.Discrepancies, result)
		}
	}

	return report, nil
}
