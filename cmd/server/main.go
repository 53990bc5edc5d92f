package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/walletledger/internal/adapter/http"
	"github.com/iho/walletledger/internal/adapter/http/handler"
	"github.com/iho/walletledger/internal/adapter/http/middleware"
	"github.com/iho/walletledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/walletledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/walletledger/internal/adapter/repository/redis"
	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/infrastructure/config"
	"github.com/iho/walletledger/internal/infrastructure/eventpublisher"
	"github.com/iho/walletledger/internal/infrastructure/logger"
	"github.com/iho/walletledger/internal/infrastructure/metrics"
	"github.com/iho/walletledger/internal/infrastructure/postgres"
	"github.com/iho/walletledger/internal/infrastructure/redis"
	"github.com/iho/walletledger/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

// run serves until ctx is cancelled, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      a.handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	var workers sync.WaitGroup
	a.startWorkers(workerCtx, &workers)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("storage", cfg.StorageDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		cancelWorkers()
		workers.Wait()
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	err = server.Shutdown(shutdownCtx)

	cancelWorkers()
	workers.Wait()

	if err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

// app is the wired service.
type app struct {
	ledger      *usecase.LedgerUseCase
	handler     http.Handler
	publisher   *eventpublisher.EventPublisher
	rateLimiter *middleware.RateLimiter
	closers     []func()
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewWithRegisterer(registry)

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.close)

	checks := store.checks

	var redisClient *goredis.Client
	if cfg.RedisURL != "" && (cfg.EventPublisher == config.PublisherRedis || cfg.IdempotencyEnabled) {
		redisClient, err = redis.NewClientWithConfig(ctx, redis.ClientConfig{
			URL:            cfg.RedisURL,
			ConnectTimeout: cfg.RedisConnectTimeout,
			Logger:         log,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		checks = append(checks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
		log.Info().Msg("connected to redis")
	}

	notifier := usecase.NewNotifier(log, m)
	notifier.SubscribeAll(balanceLogger(log))

	ledgerCfg := usecase.LedgerConfig{
		TxManager:       store.txManager,
		AccountRepo:     store.accounts,
		TransactionRepo: store.transactions,
		IDGen:           postgresRepo.NewULIDGenerator(),
		Notifier:        notifier,
		Metrics:         m,
		Logger:          log,
		AdminHolder:     cfg.AdminHolder,
	}
	if cfg.OutboxEnabled() {
		ledgerCfg.OutboxRepo = store.outbox

		publisher, err := newPublisher(cfg, redisClient, log)
		if err != nil {
			return nil, err
		}
		a.publisher = eventpublisher.NewEventPublisher(eventpublisher.Config{
			OutboxRepo: store.outbox,
			Publisher:  publisher,
			Logger:     log,
			Metrics:    m,
			BatchSize:  cfg.OutboxBatchSize,
			Interval:   cfg.OutboxPollInterval,
			Retention:  cfg.OutboxRetention,
		})
	}
	a.ledger = usecase.NewLedgerUseCase(ledgerCfg)

	routerCfg := httpAdapter.RouterConfig{
		AccountHandler: handler.NewAccountHandler(a.ledger),
		LedgerHandler:  handler.NewLedgerHandler(usecase.NewReconciliationUseCase(store.txManager, store.accounts, store.transactions)),
		AdminHandler:   handler.NewAdminHandler(a.ledger),
		HealthHandler:  handler.NewHealthHandler(checks...),
		Logger:         log,
		Metrics:        m,
		Gatherer:       registry,
	}
	if cfg.RateLimitEnabled {
		a.rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).WithMetrics(m)
		routerCfg.RateLimiter = a.rateLimiter
	}
	if cfg.IdempotencyEnabled {
		if redisClient == nil {
			log.Warn().Msg("idempotency enabled but REDIS_URL is empty; Idempotency-Key headers are ignored")
		} else {
			routerCfg.Idempotency = middleware.NewIdempotencyMiddleware(
				redisRepo.NewIdempotencyStore(redisClient), cfg.IdempotencyTTL, m, log)
		}
	}
	a.handler = httpAdapter.NewRouter(routerCfg)

	return a, nil
}

// startWorkers runs the outbox publisher and the rate limiter janitor until ctx is done.
func (a *app) startWorkers(ctx context.Context, wg *sync.WaitGroup) {
	if a.publisher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = a.publisher.Start(ctx)
		}()
	}
	if a.rateLimiter != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.rateLimiter.Run(ctx, 10*time.Minute)
		}()
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// storage is one backend's set of repositories.
type storage struct {
	txManager    usecase.TransactionManager
	accounts     usecase.AccountRepository
	transactions usecase.TransactionRepository
	outbox       usecase.OutboxRepository
	checks       []handler.HealthCheck
	close        func()
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		log.Warn().Msg("using in-memory storage; balances are lost on restart")

		store := memory.NewStore()
		return &storage{
			txManager:    memory.NewTxManager(store),
			accounts:     memory.NewAccountRepository(store),
			transactions: memory.NewTransactionRepository(store),
			outbox:       memory.NewOutboxRepository(store),
			close:        func() {},
		}, nil

	case config.StoragePostgres:
		pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
			DatabaseURL:    cfg.DatabaseURL,
			MaxConns:       cfg.DatabaseMaxConns,
			MinConns:       cfg.DatabaseMinConns,
			ConnectTimeout: cfg.DatabaseConnectTimeout,
			Logger:         log,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		log.Info().Msg("connected to postgres")

		if cfg.AutoMigrate {
			if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
				pool.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}

		return &storage{
			txManager:    postgresRepo.NewTxManager(pool),
			accounts:     postgresRepo.NewAccountRepository(pool),
			transactions: postgresRepo.NewTransactionRepository(pool),
			outbox:       postgresRepo.NewOutboxRepository(pool),
			checks:       []handler.HealthCheck{{Name: "postgres", Check: pool.Ping}},
			close:        pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func newPublisher(cfg *config.Config, client *goredis.Client, log zerolog.Logger) (eventpublisher.Publisher, error) {
	switch cfg.EventPublisher {
	case config.PublisherRedis:
		if client == nil {
			return nil, errors.New("redis publisher requires REDIS_URL")
		}
		return redisRepo.NewPublisher(client), nil
	case config.PublisherLog:
		return eventpublisher.NewLogPublisher(log), nil
	default:
		return nil, fmt.Errorf("unknown event publisher %q", cfg.EventPublisher)
	}
}

// balanceLogger logs every committed balance change.
func balanceLogger(log zerolog.Logger) usecase.Listener {
	return usecase.ListenerFunc(func(_ context.Context, event domain.BalanceChangedEvent) error {
		log.Info().
			Str("holder", event.Holder).
			Str("kind", event.Kind.String()).
			Str("amount", event.Amount).
			Str("currency", event.Currency).
			Str("new_balance", event.NewBalance).
			Str("fee", event.TransactionFee).
			Str("reference_id", event.ReferenceID).
			Str("transaction_id", event.TransactionID).
			Msg("balance changed")
		return nil
	})
}
