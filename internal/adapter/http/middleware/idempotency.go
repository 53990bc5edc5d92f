package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/walletledger/internal/infrastructure/metrics"
	"github.com/iho/walletledger/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyReplayHeader marks a response served from the store.
	IdempotencyReplayHeader = "X-Idempotency-Replay"

	maxIdempotentBody = 1 << 20
)

// IdempotencyMiddleware replays the stored response of a POST or PUT that
// carries an Idempotency-Key already seen for the same route.
type IdempotencyMiddleware struct {
	store   usecase.IdempotencyStore
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware.
func NewIdempotencyMiddleware(store usecase.IdempotencyStore, ttl time.Duration, m *metrics.Metrics, logger zerolog.Logger) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = usecase.IdempotencyKeyTTL
	}
	return &IdempotencyMiddleware{store: store, ttl: ttl, metrics: m, logger: logger}
}

// Wrap wraps an http.Handler with idempotency checking.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentBody+1))
		if err != nil || len(body) > maxIdempotentBody {
			writeJSONError(w, http.StatusBadRequest, "unreadable request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		storeKey := r.Method + ":" + r.URL.Path + ":" + key
		hash := requestHash(body)

		existing, reserved, err := m.store.Reserve(r.Context(), storeKey, hash, m.ttl)
		if err != nil {
			m.logger.Error().Err(err).Str("key", key).Msg("idempotency store unavailable")
			writeJSONError(w, http.StatusServiceUnavailable, "idempotency check failed")
			return
		}

		if !reserved {
			switch {
			case existing.RequestHash != hash:
				writeJSONError(w, http.StatusUnprocessableEntity, "idempotency key reused with a different request body")
			case existing.Pending():
				writeJSONError(w, http.StatusConflict, "a request with this idempotency key is in progress")
			default:
				if m.metrics != nil {
					m.metrics.IdempotencyReplays.Inc()
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set(IdempotencyReplayHeader, "true")
				w.WriteHeader(existing.StatusCode)
				_, _ = w.Write(existing.Body)
			}
			return
		}

		// The outcome is stored even when the client has gone away.
		ctx := context.WithoutCancel(r.Context())

		finished := false
		defer func() {
			// A panicking handler leaves no outcome to store.
			if !finished {
				if err := m.store.Release(ctx, storeKey); err != nil {
					m.logger.Error().Err(err).Str("key", key).Msg("failed to release idempotency key")
				}
			}
		}()

		recorder := newBodyRecorder(w)
		next.ServeHTTP(recorder, r)
		finished = true

		if cacheable(recorder.statusCode) {
			err = m.store.Complete(ctx, storeKey, &usecase.IdempotentResponse{
				RequestHash: hash,
				StatusCode:  recorder.statusCode,
				Body:        recorder.body.Bytes(),
			}, m.ttl)
		} else {
			err = m.store.Release(ctx, storeKey)
		}
		if err != nil {
			m.logger.Error().Err(err).Str("key", key).Msg("failed to record idempotent response")
		}
	})
}

// cacheable reports whether a response status is final. Server errors,
// conflicts and throttling are released so the client may retry.
func cacheable(status int) bool {
	switch {
	case status >= http.StatusInternalServerError:
		return false
	case status == http.StatusConflict, status == http.StatusTooManyRequests:
		return false
	default:
		return true
	}
}

func requestHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
