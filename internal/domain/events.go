package domain

import "time"

// Event types. They match the transaction kind that produced the event.
const (
	EventTypeDebit  = "debit"
	EventTypeCredit = "credit"
)

// Aggregate types
const (
	AggregateTypeAccount = "account"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// BalanceChangedEvent is delivered to listeners after a debit or credit commits.
type BalanceChangedEvent struct {
	OccurredAt     time.Time       `json:"occurred_at"`
	Holder         string          `json:"holder"`
	Currency       string          `json:"currency"`
	ReferenceID    string          `json:"reference_id"`
	Description    string          `json:"description"`
	TransactionID  string          `json:"transaction_id"`
	Kind           TransactionKind `json:"kind"`
	Amount         string          `json:"amount"`
	NewBalance     string          `json:"new_balance"`
	TransactionFee string          `json:"transaction_fee"`
}

// NewBalanceChangedEvent builds the event for a committed transaction.
func NewBalanceChangedEvent(tx *Transaction) BalanceChangedEvent {
	return BalanceChangedEvent{
		OccurredAt:     tx.CreatedAt,
		Holder:         tx.Holder,
		Currency:       tx.Currency,
		ReferenceID:    tx.ReferenceID,
		Description:    tx.Description,
		TransactionID:  tx.ID,
		Kind:           tx.Kind,
		Amount:         tx.Amount.String(),
		NewBalance:     tx.BalanceAfter.String(),
		TransactionFee: tx.Fee.String(),
	}
}

// Payload flattens the event for the outbox.
func (e BalanceChangedEvent) Payload() map[string]any {
	return map[string]any{
		"holder":          e.Holder,
		"kind":            e.Kind.String(),
		"amount":          e.Amount,
		"currency":        e.Currency,
		"new_balance":     e.NewBalance,
		"reference_id":    e.ReferenceID,
		"description":     e.Description,
		"transaction_fee": e.TransactionFee,
		"transaction_id":  e.TransactionID,
		"occurred_at":     e.OccurredAt.Format(time.RFC3339Nano),
	}
}
