package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/iho/walletledger/internal/domain"
)

func TestPublisherPublish(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, Channel(domain.EventTypeDebit))
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	event := &domain.OutboxEvent{
		ID:            "evt-1",
		AggregateID:   "alice",
		AggregateType: domain.AggregateTypeAccount,
		EventType:     domain.EventTypeDebit,
		Payload:       map[string]any{"holder": "alice", "new_balance": "59"},
		CreatedAt:     created,
	}

	if err := NewPublisher(client).Publish(ctx, event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		if msg.Channel != "walletledger.debit" {
			t.Fatalf("unexpected channel %s", msg.Channel)
		}

		var env Envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.ID != "evt-1" || env.AggregateID != "alice" || !env.CreatedAt.Equal(created) {
			t.Fatalf("unexpected envelope %+v", env)
		}

		var payload map[string]string
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["new_balance"] != "59" {
			t.Fatalf("unexpected payload %v", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestPublisherPublishConnectionError(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer client.Close()
	mr.Close()

	err := NewPublisher(client).Publish(context.Background(), &domain.OutboxEvent{
		ID:        "evt-2",
		EventType: domain.EventTypeCredit,
	})
	if err == nil {
		t.Fatal("expected error when redis is down")
	}
}
