package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/walletledger/internal/adapter/http/dto"
	"github.com/iho/walletledger/internal/adapter/http/handler"
	apimiddleware "github.com/iho/walletledger/internal/adapter/http/middleware"
	"github.com/iho/walletledger/internal/adapter/repository/memory"
	"github.com/iho/walletledger/internal/adapter/repository/postgres"
	redisrepo "github.com/iho/walletledger/internal/adapter/repository/redis"
	"github.com/iho/walletledger/internal/infrastructure/metrics"
	"github.com/iho/walletledger/internal/usecase"
)

func newTestRouter(t *testing.T, opts ...func(*RouterConfig)) (http.Handler, *usecase.LedgerUseCase) {
	t.Helper()

	store := memory.NewStore()
	accounts := memory.NewAccountRepository(store)
	transactions := memory.NewTransactionRepository(store)

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg)

	txManager := memory.NewTxManager(store)

	ledger := usecase.NewLedgerUseCase(usecase.LedgerConfig{
		TxManager:       txManager,
		AccountRepo:     accounts,
		TransactionRepo: transactions,
		IDGen:           postgres.NewULIDGenerator(),
		Metrics:         m,
		Logger:          zerolog.Nop(),
		AdminHolder:     "admin",
	})

	cfg := RouterConfig{
		AccountHandler: handler.NewAccountHandler(ledger),
		LedgerHandler:  handler.NewLedgerHandler(usecase.NewReconciliationUseCase(txManager, accounts, transactions)),
		AdminHandler:   handler.NewAdminHandler(ledger),
		HealthHandler:  handler.NewHealthHandler(),
		Logger:         zerolog.Nop(),
		Metrics:        m,
		Gatherer:       reg,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return NewRouter(cfg), ledger
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router, _ := newTestRouter(t)

	chiRoutes, ok := router.(chi.Routes)
	require.True(t, ok, "router does not implement chi.Routes")

	seen := map[string]bool{}
	err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	})
	require.NoError(t, err)

	for _, route := range []string{
		"GET /health",
		"GET /ready",
		"GET /api/v1/accounts/{holder}/balances",
		"GET /api/v1/accounts/{holder}/balances/{currency}",
		"POST /api/v1/accounts/{holder}/debit",
		"POST /api/v1/accounts/{holder}/credit",
		"GET /api/v1/accounts/{holder}/transactions",
		"GET /api/v1/accounts/{holder}/reconciliation",
		"GET /api/v1/reconciliation",
		"GET /api/v1/admin",
		"PUT /api/v1/admin",
	} {
		assert.True(t, seen[route], "expected route %s to be registered", route)
	}
}

func TestNewRouter_CreditDebitWithFee(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/v1/accounts/alice/credit",
		`{"amount":"100","currency":"USD","reference_id":"r1","description":"top up"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/api/v1/accounts/alice/debit",
		`{"amount":"40","currency":"USD","reference_id":"r2","description":"groceries","fee":"1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var mutation dto.MutationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mutation))
	assert.Equal(t, "Debited 40 USD.", mutation.Message)
	require.NotNil(t, mutation.FeeTransaction)
	assert.Equal(t, "admin", mutation.FeeTransaction.Holder)

	rec = do(t, router, http.MethodGet, "/api/v1/accounts/alice/balances/USD", "")
	var balance dto.BalanceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &balance))
	assert.Equal(t, "59", balance.Amount.String())

	rec = do(t, router, http.MethodGet, "/api/v1/accounts/admin/balances", "")
	var summary dto.BalanceSummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "1", summary.Balances["USD"].String())

	rec = do(t, router, http.MethodGet, "/api/v1/accounts/alice/transactions", "")
	var list dto.ListTransactionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Transactions, 2)

	rec = do(t, router, http.MethodGet, "/api/v1/accounts/alice/reconciliation", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestNewRouter_InsufficientFunds(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/v1/accounts/bob/debit", `{"amount":"1","currency":"USD"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var mutation dto.MutationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mutation))
	assert.Equal(t, "Insufficient funds", mutation.Message)
	assert.Equal(t, "rejected", mutation.Status)
}

func TestNewRouter_AdminRoundTrip(t *testing.T) {
	router, ledger := newTestRouter(t)

	rec := do(t, router, http.MethodPut, "/api/v1/admin", `{"holder":"treasury"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "treasury", ledger.Admin())

	rec = do(t, router, http.MethodGet, "/api/v1/admin", "")
	var admin dto.AdminResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &admin))
	assert.Equal(t, "treasury", admin.Holder)
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	router, _ := newTestRouter(t, func(cfg *RouterConfig) {
		cfg.RateLimiter = apimiddleware.NewRateLimiter(1, 1)
	})

	send := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin", nil)
		req.RemoteAddr = "1.2.3.4:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())

	// Health checks are outside the limited group.
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/health", "").Code)
}

func TestNewRouter_IdempotentDebit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := redisrepo.NewIdempotencyStore(client)
	router, _ := newTestRouter(t, func(cfg *RouterConfig) {
		cfg.Idempotency = apimiddleware.NewIdempotencyMiddleware(store, time.Hour, nil, zerolog.Nop())
	})

	rec := do(t, router, http.MethodPost, "/api/v1/accounts/carol/credit", `{"amount":"10","currency":"USD"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := `{"amount":"3","currency":"USD"}`
	first := do(t, router, http.MethodPost, "/api/v1/accounts/carol/debit", body, apimiddleware.IdempotencyKeyHeader, "k-1")
	second := do(t, router, http.MethodPost, "/api/v1/accounts/carol/debit", body, apimiddleware.IdempotencyKeyHeader, "k-1")

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get(apimiddleware.IdempotencyReplayHeader))

	rec = do(t, router, http.MethodGet, "/api/v1/accounts/carol/balances/USD", "")
	var balance dto.BalanceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &balance))
	assert.Equal(t, "7", balance.Amount.String(), "replayed debit must not be applied twice")
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	do(t, router, http.MethodPost, "/api/v1/accounts/dave/credit", `{"amount":"1","currency":"USD"}`)

	rec := do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "walletledger_http_requests_total")
	assert.Contains(t, rec.Body.String(), "walletledger_mutations_total")
}
