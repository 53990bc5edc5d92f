package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/infrastructure/metrics"
)

// Listener observes committed balance changes.
type Listener interface {
	OnBalanceChanged(ctx context.Context, event domain.BalanceChangedEvent) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, event domain.BalanceChangedEvent) error

// OnBalanceChanged calls f.
func (f ListenerFunc) OnBalanceChanged(ctx context.Context, event domain.BalanceChangedEvent) error {
	return f(ctx, event)
}

// Notifier fans committed balance changes out to listeners registered per kind.
// Listeners run synchronously, in registration order. Their errors and panics are
// logged and counted; they never reach the caller of the mutation.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[domain.TransactionKind][]Listener
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// NewNotifier creates a Notifier. metrics may be nil.
func NewNotifier(logger zerolog.Logger, m *metrics.Metrics) *Notifier {
	return &Notifier{
		listeners: make(map[domain.TransactionKind][]Listener),
		logger:    logger,
		metrics:   m,
	}
}

// Subscribe registers l for events of kind.
func (n *Notifier) Subscribe(kind domain.TransactionKind, l Listener) error {
	if !kind.Valid() {
		return domain.ErrInvalidKind
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners[kind] = append(n.listeners[kind], l)

	return nil
}

// SubscribeAll registers l for both debit and credit events.
func (n *Notifier) SubscribeAll(l Listener) {
	_ = n.Subscribe(domain.KindDebit, l)
	_ = n.Subscribe(domain.KindCredit, l)
}

// Notify delivers event to the listeners of its kind.
func (n *Notifier) Notify(ctx context.Context, event domain.BalanceChangedEvent) {
	n.mu.RLock()
	listeners := append([]Listener(nil), n.listeners[event.Kind]...)
	n.mu.RUnlock()

	for _, l := range listeners {
		if err := n.deliver(ctx, l, event); err != nil {
			n.logger.Error().
				Err(err).
				Str("kind", event.Kind.String()).
				Str("holder", event.Holder).
				Str("transaction_id", event.TransactionID).
				Msg("balance listener failed")

			if n.metrics != nil {
				n.metrics.ListenerFailures.WithLabelValues(event.Kind.String()).Inc()
			}
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, l Listener, event domain.BalanceChangedEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()

	return l.OnBalanceChanged(ctx, event)
}
