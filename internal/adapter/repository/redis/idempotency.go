package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/walletledger/internal/usecase"
)

// IdempotencyStore implements usecase.IdempotencyStore using Redis.
// Each key holds a JSON encoded usecase.IdempotentResponse.
type IdempotencyStore struct {
	client *redis.Client
	prefix string
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{
		client: client,
		prefix: "walletledger:idempotency:",
	}
}

// Reserve claims key with SETNX. A key that expires between SETNX and GET is claimed again.
func (s *IdempotencyStore) Reserve(ctx context.Context, key, requestHash string, ttl time.Duration) (*usecase.IdempotentResponse, bool, error) {
	fullKey := s.prefix + key

	placeholder, err := json.Marshal(usecase.IdempotentResponse{RequestHash: requestHash})
	if err != nil {
		return nil, false, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		set, err := s.client.SetNX(ctx, fullKey, placeholder, ttl).Result()
		if err != nil {
			return nil, false, err
		}
		if set {
			return nil, true, nil
		}

		raw, err := s.client.Get(ctx, fullKey).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, false, err
		}

		var existing usecase.IdempotentResponse
		if err := json.Unmarshal(raw, &existing); err != nil {
			return nil, false, fmt.Errorf("decode idempotency record %s: %w", key, err)
		}

		return &existing, false, nil
	}

	return nil, false, fmt.Errorf("idempotency key %s is churning", key)
}

// Complete stores the final response for key.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, response *usecase.IdempotentResponse, ttl time.Duration) error {
	raw, err := json.Marshal(response)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, s.prefix+key, raw, ttl).Err()
}

// Release deletes key.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
