package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/infrastructure/metrics"
)

// MutationStatus distinguishes a committed mutation from a business rejection.
type MutationStatus int

const (
	StatusSucceeded MutationStatus = iota + 1
	StatusRejected
)

func (s MutationStatus) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

const insufficientFundsMessage = "Insufficient funds"

// ChangeInput describes a debit or credit request.
type ChangeInput struct {
	Holder      string
	Currency    string
	ReferenceID string
	Description string
	Amount      decimal.Decimal
	Fee         decimal.Decimal
}

// Validate checks the input before any storage access.
func (in ChangeInput) Validate() error {
	if err := domain.ValidateHolder(in.Holder); err != nil {
		return err
	}
	if err := domain.ValidateCurrency(in.Currency); err != nil {
		return err
	}
	if err := domain.ValidateAmount(in.Amount); err != nil {
		return err
	}
	return domain.ValidateFee(in.Fee)
}

// MutationResult is the outcome of Mutate. A rejected result carries no balance and no transaction.
type MutationResult struct {
	Status         MutationStatus
	Message        string
	Balance        decimal.Decimal
	Transaction    *domain.Transaction
	FeeTransaction *domain.Transaction
	// Reason is set on rejection. It is domain.ErrInsufficientFunds.
	Reason error
}

// Rejected reports whether the mutation was refused without side effects.
func (r *MutationResult) Rejected() bool {
	return r.Status == StatusRejected
}

// BalanceResult is a single-currency balance.
type BalanceResult struct {
	Holder   string
	Currency string
	Amount   decimal.Decimal
}

// BalanceSummary is every balance a holder has.
type BalanceSummary struct {
	Holder   string
	Balances map[string]decimal.Decimal
}

// LedgerConfig holds the dependencies of a LedgerUseCase.
type LedgerConfig struct {
	TxManager       TransactionManager
	AccountRepo     AccountRepository
	TransactionRepo TransactionRepository
	OutboxRepo      OutboxRepository
	IDGen           IDGenerator
	Notifier        *Notifier
	Metrics         *metrics.Metrics
	Logger          zerolog.Logger
	AdminHolder     string
}

// LedgerUseCase is the ledger engine. It owns every balance write.
type LedgerUseCase struct {
	txManager       TransactionManager
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	outboxRepo      OutboxRepository
	idGen           IDGenerator
	notifier        *Notifier
	metrics         *metrics.Metrics
	logger          zerolog.Logger

	adminMu     sync.RWMutex
	adminHolder string
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(cfg LedgerConfig) *LedgerUseCase {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NewNotifier(cfg.Logger, cfg.Metrics)
	}

	uc := &LedgerUseCase{
		txManager:       cfg.TxManager,
		accountRepo:     cfg.AccountRepo,
		transactionRepo: cfg.TransactionRepo,
		outboxRepo:      cfg.OutboxRepo,
		idGen:           cfg.IDGen,
		notifier:        notifier,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
	}
	if err := uc.SetAdmin(cfg.AdminHolder); err != nil {
		uc.logger.Warn().Err(err).Str("admin_holder", cfg.AdminHolder).
			Msg("invalid admin holder, fees go to the default")
		_ = uc.SetAdmin(DefaultAdminHolder)
	}

	return uc
}

// Notifier returns the notifier listeners subscribe to.
func (uc *LedgerUseCase) Notifier() *Notifier {
	return uc.notifier
}

// SetAdmin sets the holder that collects fees. An empty holder restores DefaultAdminHolder.
// Any other holder must pass domain.ValidateHolder; on error the current admin is kept.
func (uc *LedgerUseCase) SetAdmin(holder string) error {
	if holder == "" {
		holder = DefaultAdminHolder
	}
	if err := domain.ValidateHolder(holder); err != nil {
		return fmt.Errorf("admin holder: %w", err)
	}

	uc.adminMu.Lock()
	uc.adminHolder = holder
	uc.adminMu.Unlock()

	return nil
}

// Admin returns the holder that collects fees.
func (uc *LedgerUseCase) Admin() string {
	uc.adminMu.RLock()
	defer uc.adminMu.RUnlock()
	return uc.adminHolder
}

// GetOrCreateAccount loads the holder's account, creating it with no balances if it does not exist.
func (uc *LedgerUseCase) GetOrCreateAccount(ctx context.Context, holder string) (*domain.Account, bool, error) {
	if err := domain.ValidateHolder(holder); err != nil {
		return nil, false, err
	}

	account, err := uc.accountRepo.GetByHolder(ctx, holder)
	if err == nil {
		return account, false, nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, false, uc.stepError(domain.StepLoadAccount, holder, err)
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, false, uc.stepError(domain.StepLoadAccount, holder, err)
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	created, err := uc.accountRepo.EnsureTx(txCtx, tx, domain.NewAccount(holder, time.Now().UTC()))
	if err != nil {
		return nil, false, uc.stepError(domain.StepLoadAccount, holder, err)
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, false, uc.stepError(domain.StepCommit, holder, err)
	}

	if created {
		uc.accountCreated(holder)
	}

	account, err = uc.accountRepo.GetByHolder(ctx, holder)
	if err != nil {
		return nil, created, uc.stepError(domain.StepLoadAccount, holder, err)
	}

	return account, created, nil
}

// GetBalance returns the holder's balance in currency. It creates the account on first use.
func (uc *LedgerUseCase) GetBalance(ctx context.Context, holder, currency string) (*BalanceResult, error) {
	if err := domain.ValidateCurrency(currency); err != nil {
		return nil, err
	}

	account, _, err := uc.GetOrCreateAccount(ctx, holder)
	if err != nil {
		return nil, err
	}

	return &BalanceResult{
		Holder:   holder,
		Currency: currency,
		Amount:   account.Balance(currency),
	}, nil
}

// GetBalanceSummary returns every balance of the holder. It creates the account on first use.
func (uc *LedgerUseCase) GetBalanceSummary(ctx context.Context, holder string) (*BalanceSummary, error) {
	account, _, err := uc.GetOrCreateAccount(ctx, holder)
	if err != nil {
		return nil, err
	}

	return &BalanceSummary{
		Holder:   holder,
		Balances: account.Snapshot(),
	}, nil
}

// ListTransactions returns a page of the holder's transaction log, oldest first.
func (uc *LedgerUseCase) ListTransactions(ctx context.Context, holder string, limit, offset int) ([]*domain.Transaction, error) {
	if err := domain.ValidateHolder(holder); err != nil {
		return nil, err
	}

	limit, offset, _ = domain.ValidatePagination(limit, offset)

	return uc.transactionRepo.ListByHolder(ctx, holder, limit, offset)
}

// Debit removes amount plus fee from the holder's balance.
func (uc *LedgerUseCase) Debit(ctx context.Context, input ChangeInput) (*MutationResult, error) {
	return uc.Mutate(ctx, domain.KindDebit, input)
}

// Credit adds amount to the holder's balance.
func (uc *LedgerUseCase) Credit(ctx context.Context, input ChangeInput) (*MutationResult, error) {
	return uc.Mutate(ctx, domain.KindCredit, input)
}

// Mutate applies a debit or credit.
//
// A debit whose amount plus fee exceeds the balance returns a rejected result and a nil error;
// nothing is written. Storage failures return a *domain.StepError naming the failed step.
// When the primary mutation commits but crediting the fee to the admin account fails, Mutate
// returns the committed result together with a StepError for domain.StepFeeCredit.
func (uc *LedgerUseCase) Mutate(ctx context.Context, kind domain.TransactionKind, input ChangeInput) (*MutationResult, error) {
	if !kind.Valid() {
		return nil, domain.ErrInvalidKind
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	result, err := uc.apply(ctx, kind, input)
	if err != nil {
		uc.observe(kind, "error", start)
		return nil, err
	}

	if result.Rejected() {
		uc.observe(kind, StatusRejected.String(), start)
		uc.logger.Debug().
			Str("holder", input.Holder).
			Str("kind", kind.String()).
			Str("amount", input.Amount.String()).
			Str("fee", input.Fee.String()).
			Str("currency", input.Currency).
			Str("reference_id", input.ReferenceID).
			Msg("mutation rejected: insufficient funds")
		return result, nil
	}

	var feeErr error
	if input.Fee.IsPositive() {
		feeErr = uc.routeFee(ctx, input, result)
	}

	uc.notifier.Notify(ctx, domain.NewBalanceChangedEvent(result.Transaction))

	uc.observe(kind, StatusSucceeded.String(), start)
	if uc.metrics != nil {
		uc.metrics.MutationAmount.WithLabelValues(kind.String(), input.Currency).Observe(input.Amount.InexactFloat64())
	}

	uc.logger.Debug().
		Str("holder", input.Holder).
		Str("kind", kind.String()).
		Str("amount", input.Amount.String()).
		Str("currency", input.Currency).
		Str("balance", result.Balance.String()).
		Str("transaction_id", result.Transaction.ID).
		Msg("mutation committed")

	return result, feeErr
}

// apply runs the read-check-write sequence inside one storage transaction with the account locked.
func (uc *LedgerUseCase) apply(ctx context.Context, kind domain.TransactionKind, input ChangeInput) (*MutationResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, uc.stepError(domain.StepLoadAccount, input.Holder, err)
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	created, err := uc.accountRepo.EnsureTx(txCtx, tx, domain.NewAccount(input.Holder, time.Now().UTC()))
	if err != nil {
		return nil, uc.stepError(domain.StepLoadAccount, input.Holder, err)
	}

	account, err := uc.accountRepo.GetByHolderForUpdate(txCtx, tx, input.Holder)
	if err != nil {
		return nil, uc.stepError(domain.StepLoadAccount, input.Holder, err)
	}

	// Stamped under the row lock so created_at follows commit order per holder.
	now := time.Now().UTC()

	if kind == domain.KindDebit {
		if err := account.ValidateDebit(input.Currency, input.Amount, input.Fee); err != nil {
			// Only the lazily created account, if any, is committed.
			if err := tx.Commit(txCtx); err != nil {
				return nil, uc.stepError(domain.StepCommit, input.Holder, err)
			}
			if created {
				uc.accountCreated(input.Holder)
			}
			return &MutationResult{
				Status:  StatusRejected,
				Message: insufficientFundsMessage,
				Reason:  err,
			}, nil
		}
	}

	var newBalance decimal.Decimal
	switch kind {
	case domain.KindDebit:
		newBalance = account.ApplyDebit(input.Currency, input.Amount, input.Fee)
	case domain.KindCredit:
		newBalance = account.ApplyCredit(input.Currency, input.Amount)
	}

	if err := uc.accountRepo.UpdateBalance(txCtx, tx, input.Holder, input.Currency, newBalance, now); err != nil {
		return nil, uc.stepError(domain.StepBalanceWrite, input.Holder, err)
	}

	record := &domain.Transaction{
		ID:           uc.idGen.Generate(),
		Holder:       input.Holder,
		Kind:         kind,
		Amount:       input.Amount,
		Currency:     input.Currency,
		ReferenceID:  input.ReferenceID,
		Description:  input.Description,
		Fee:          input.Fee,
		BalanceAfter: newBalance,
		CreatedAt:    now,
	}

	if err := uc.transactionRepo.Append(txCtx, tx, record); err != nil {
		return nil, uc.stepError(domain.StepTransactionAppend, input.Holder, err)
	}

	if uc.outboxRepo != nil {
		event := &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   input.Holder,
			AggregateType: domain.AggregateTypeAccount,
			EventType:     kind.String(),
			Payload:       domain.NewBalanceChangedEvent(record).Payload(),
			CreatedAt:     now,
			Published:     false,
		}
		if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
			return nil, uc.stepError(domain.StepOutboxAppend, input.Holder, err)
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, uc.stepError(domain.StepCommit, input.Holder, err)
	}

	if created {
		uc.accountCreated(input.Holder)
	}

	return &MutationResult{
		Status:      StatusSucceeded,
		Message:     successMessage(kind, input.Amount, input.Currency),
		Balance:     newBalance,
		Transaction: record,
	}, nil
}

// routeFee credits the fee of a committed mutation to the admin account. Fees are never charged on fees.
func (uc *LedgerUseCase) routeFee(ctx context.Context, input ChangeInput, result *MutationResult) error {
	admin := uc.Admin()

	feeResult, err := uc.Credit(ctx, ChangeInput{
		Holder:      admin,
		Amount:      input.Fee,
		Currency:    input.Currency,
		ReferenceID: input.ReferenceID,
		Description: domain.FeeDescription(input.Description),
		Fee:         decimal.Zero,
	})
	if err != nil {
		uc.logger.Error().
			Err(err).
			Str("holder", input.Holder).
			Str("admin", admin).
			Str("fee", input.Fee.String()).
			Str("currency", input.Currency).
			Str("reference_id", input.ReferenceID).
			Str("transaction_id", result.Transaction.ID).
			Msg("fee side-payment failed after primary mutation committed")

		return uc.stepError(domain.StepFeeCredit, admin, err)
	}

	result.FeeTransaction = feeResult.Transaction
	if uc.metrics != nil {
		uc.metrics.FeesCollected.WithLabelValues(input.Currency).Add(input.Fee.InexactFloat64())
	}

	return nil
}

func (uc *LedgerUseCase) stepError(step domain.Step, holder string, err error) error {
	if uc.metrics != nil {
		uc.metrics.StepFailures.WithLabelValues(string(step)).Inc()
	}
	return &domain.StepError{Step: step, Holder: holder, Err: err}
}

func (uc *LedgerUseCase) accountCreated(holder string) {
	if uc.metrics != nil {
		uc.metrics.AccountsCreated.Inc()
	}
	uc.logger.Info().Str("holder", holder).Msg("account created")
}

func (uc *LedgerUseCase) observe(kind domain.TransactionKind, status string, start time.Time) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.Mutations.WithLabelValues(kind.String(), status).Inc()
	uc.metrics.MutationDuration.WithLabelValues(kind.String()).Observe(time.Since(start).Seconds())
}

func successMessage(kind domain.TransactionKind, amount decimal.Decimal, currency string) string {
	verb := "Credited"
	if kind == domain.KindDebit {
		verb = "Debited"
	}
	return fmt.Sprintf("%s %s %s.", verb, amount.String(), currency)
}
