// Package memory is an in-process storage backend with the same transactional
// contract as the Postgres adapter: an account lock taken inside a transaction is
// held until commit or rollback, and writes become visible only on commit.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/usecase"
)

// ErrTxClosed is returned when a finished transaction is used again.
var ErrTxClosed = errors.New("memory: transaction already closed")

type accountRow struct {
	balances  map[string]decimal.Decimal
	createdAt time.Time
	updatedAt time.Time
}

func (r *accountRow) clone() *accountRow {
	balances := make(map[string]decimal.Decimal, len(r.balances))
	for c, b := range r.balances {
		balances[c] = b
	}
	return &accountRow{balances: balances, createdAt: r.createdAt, updatedAt: r.updatedAt}
}

func (r *accountRow) toDomain(holder string) *domain.Account {
	c := r.clone()
	return &domain.Account{
		Holder:    holder,
		Balances:  c.balances,
		CreatedAt: c.createdAt,
		UpdatedAt: c.updatedAt,
	}
}

// Store holds accounts, the transaction log and the outbox.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*accountRow
	transactions []*domain.Transaction
	outbox       []*domain.OutboxEvent

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*accountRow),
		locks:    make(map[string]chan struct{}),
	}
}

func (s *Store) holderLock(holder string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l, ok := s.locks[holder]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[holder] = l
	}
	return l
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Tx{
		store:   m.store,
		held:    make(map[string]chan struct{}),
		pending: make(map[string]*accountRow),
	}, nil
}

// Tx is a memory transaction. It is not safe for concurrent use.
type Tx struct {
	store        *Store
	held         map[string]chan struct{}
	pending      map[string]*accountRow
	transactions []*domain.Transaction
	outbox       []*domain.OutboxEvent
	closed       bool
}

func (t *Tx) lock(ctx context.Context, holder string) error {
	if t.closed {
		return ErrTxClosed
	}
	if _, ok := t.held[holder]; ok {
		return nil
	}

	l := t.store.holderLock(holder)
	select {
	case l <- struct{}{}:
		t.held[holder] = l
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// row returns the account as this transaction sees it.
func (t *Tx) row(holder string) (*accountRow, bool) {
	if r, ok := t.pending[holder]; ok {
		return r, true
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	r, ok := t.store.accounts[holder]
	if !ok {
		return nil, false
	}
	return r.clone(), true
}

// Commit applies every staged write and releases the account locks.
func (t *Tx) Commit(ctx context.Context) error {
	if t.closed {
		return ErrTxClosed
	}

	t.store.mu.Lock()
	for holder, r := range t.pending {
		t.store.accounts[holder] = r
	}
	t.store.transactions = append(t.store.transactions, t.transactions...)
	t.store.outbox = append(t.store.outbox, t.outbox...)
	t.store.mu.Unlock()

	t.release()
	return nil
}

// Rollback discards staged writes and releases the account locks.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.closed {
		return ErrTxClosed
	}
	t.release()
	return nil
}

func (t *Tx) release() {
	for holder, l := range t.held {
		<-l
		delete(t.held, holder)
	}
	t.pending = nil
	t.transactions = nil
	t.outbox = nil
	t.closed = true
}

func asTx(tx usecase.Transaction) (*Tx, error) {
	mtx, ok := tx.(*Tx)
	if !ok || mtx == nil {
		return nil, fmt.Errorf("memory: unexpected transaction type %T", tx)
	}
	if mtx.closed {
		return nil, ErrTxClosed
	}
	return mtx, nil
}

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// EnsureTx creates the account unless it exists. The account stays locked until tx ends.
func (r *AccountRepository) EnsureTx(ctx context.Context, tx usecase.Transaction, account *domain.Account) (bool, error) {
	mtx, err := asTx(tx)
	if err != nil {
		return false, err
	}

	if err := mtx.lock(ctx, account.Holder); err != nil {
		return false, err
	}

	if _, ok := mtx.row(account.Holder); ok {
		return false, nil
	}

	row := &accountRow{
		balances:  make(map[string]decimal.Decimal, len(account.Balances)),
		createdAt: account.CreatedAt,
		updatedAt: account.UpdatedAt,
	}
	for c, b := range account.Balances {
		row.balances[c] = b
	}
	mtx.pending[account.Holder] = row

	return true, nil
}

// GetByHolder returns the committed state of an account.
func (r *AccountRepository) GetByHolder(ctx context.Context, holder string) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	row, ok := r.store.accounts[holder]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return row.toDomain(holder), nil
}

// GetByHolderForUpdate locks the account for the rest of tx and returns it.
func (r *AccountRepository) GetByHolderForUpdate(ctx context.Context, tx usecase.Transaction, holder string) (*domain.Account, error) {
	mtx, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	if err := mtx.lock(ctx, holder); err != nil {
		return nil, err
	}

	row, ok := mtx.row(holder)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return row.toDomain(holder), nil
}

// UpdateBalance stages a new balance for one currency. The account must be locked by tx.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, holder, currency string, balance decimal.Decimal, updatedAt time.Time) error {
	mtx, err := asTx(tx)
	if err != nil {
		return err
	}

	if _, ok := mtx.held[holder]; !ok {
		return fmt.Errorf("memory: account %s is not locked by this transaction", holder)
	}

	row, ok := mtx.row(holder)
	if !ok {
		return domain.ErrAccountNotFound
	}

	row.balances[currency] = balance
	row.updatedAt = updatedAt
	mtx.pending[holder] = row

	return nil
}

// ListHolders lists holders in lexical order.
func (r *AccountRepository) ListHolders(ctx context.Context, limit, offset int) ([]string, error) {
	r.store.mu.RLock()
	holders := make([]string, 0, len(r.store.accounts))
	for h := range r.store.accounts {
		holders = append(holders, h)
	}
	r.store.mu.RUnlock()

	sort.Strings(holders)
	return page(holders, limit, offset), nil
}

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	store *Store
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

// Append stages a transaction record.
func (r *TransactionRepository) Append(ctx context.Context, tx usecase.Transaction, transaction *domain.Transaction) error {
	mtx, err := asTx(tx)
	if err != nil {
		return err
	}

	record := *transaction
	mtx.transactions = append(mtx.transactions, &record)
	return nil
}

// ListByHolder lists a holder's transactions in the order they were committed.
func (r *TransactionRepository) ListByHolder(ctx context.Context, holder string, limit, offset int) ([]*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var matched []*domain.Transaction
	for _, t := range r.store.transactions {
		if t.Holder == holder {
			record := *t
			matched = append(matched, &record)
		}
	}
	return page(matched, limit, offset), nil
}

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	store *Store
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{store: store}
}

// Create stages an outbox event.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	mtx, err := asTx(tx)
	if err != nil {
		return err
	}

	e := *event
	mtx.outbox = append(mtx.outbox, &e)
	return nil
}

// GetUnpublished retrieves unpublished events, oldest first.
func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var events []*domain.OutboxEvent
	for _, e := range r.store.outbox {
		if e.Published {
			continue
		}
		copied := *e
		events = append(events, &copied)
		if len(events) == limit {
			break
		}
	}
	return events, nil
}

// MarkPublished marks an event as published.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, e := range r.store.outbox {
		if e.ID == id {
			t := publishedAt
			e.Published = true
			e.PublishedAt = &t
			return nil
		}
	}
	return fmt.Errorf("memory: outbox event %s not found", id)
}

// DeletePublished deletes published events older than the given time.
func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	kept := r.store.outbox[:0]
	for _, e := range r.store.outbox {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	r.store.outbox = kept
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
