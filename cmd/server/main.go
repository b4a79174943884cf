package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/gosplit/internal/adapter/http"
	"github.com/iho/gosplit/internal/adapter/http/handler"
	"github.com/iho/gosplit/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/gosplit/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/gosplit/internal/adapter/repository/redis"
	sqliteRepo "github.com/iho/gosplit/internal/adapter/repository/sqlite"
	"github.com/iho/gosplit/internal/infrastructure/auth"
	"github.com/iho/gosplit/internal/infrastructure/config"
	"github.com/iho/gosplit/internal/infrastructure/eventpublisher"
	"github.com/iho/gosplit/internal/infrastructure/logger"
	"github.com/iho/gosplit/internal/infrastructure/metrics"
	"github.com/iho/gosplit/internal/infrastructure/postgres"
	"github.com/iho/gosplit/internal/infrastructure/redis"
	"github.com/iho/gosplit/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	l := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Logger = l
	zerolog.DefaultContextLogger = &l

	if err := run(cfg, l); err != nil {
		l.Fatal().Err(err).Msg("server failed")
	}
}

// storage bundles the repositories of one storage driver.
type storage struct {
	name         string
	pinger       handler.Pinger
	txManager    usecase.TransactionManager
	users        usecase.UserRepository
	expenses     usecase.ExpenseRepository
	participants usecase.ParticipantRepository
	outbox       usecase.OutboxRepository
	audit        usecase.AuditRepository
	retryable    func(error) bool
	close        func()
}

func openStorage(ctx context.Context, cfg *config.Config, l zerolog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		if cfg.RunMigrations {
			if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			l.Info().Msg("migrations applied")
		}

		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		l.Info().Msg("connected to postgres")

		return &storage{
			name:         config.DriverPostgres,
			pinger:       pool,
			txManager:    postgresRepo.NewTxManager(pool),
			users:        postgresRepo.NewUserRepository(pool),
			expenses:     postgresRepo.NewExpenseRepository(pool),
			participants: postgresRepo.NewParticipantRepository(pool),
			outbox:       postgresRepo.NewOutboxRepository(pool),
			audit:        postgresRepo.NewAuditRepository(pool),
			close:        pool.Close,
		}, nil

	case config.DriverSQLite:
		store, err := sqliteRepo.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		l.Info().Str("path", cfg.SQLitePath).Msg("opened sqlite database")

		return &storage{
			name:         config.DriverSQLite,
			pinger:       store,
			txManager:    sqliteRepo.NewTxManager(store),
			users:        sqliteRepo.NewUserRepository(store),
			expenses:     sqliteRepo.NewExpenseRepository(store),
			participants: sqliteRepo.NewParticipantRepository(store),
			outbox:       sqliteRepo.NewOutboxRepository(store),
			audit:        sqliteRepo.NewAuditRepository(store),
			retryable:    sqliteRepo.IsRetryable,
			close:        func() { _ = store.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func newAuthenticator(cfg *config.Config) *middleware.Authenticator {
	if !cfg.AuthEnabled {
		return middleware.NewAuthenticator(nil)
	}
	return middleware.NewAuthenticator(auth.NewJWTManager(cfg.JWTSecret))
}

func run(cfg *config.Config, l zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer store.close()

	// Redis is optional
	var (
		redisClient *goredis.Client
		cache       usecase.Cache
		idempotency usecase.IdempotencyStore
		redisPinger handler.Pinger
		publisher   eventpublisher.Publisher = eventpublisher.NewLogPublisher(l)
	)
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		l.Info().Msg("connected to redis")

		cache = redisRepo.NewCache(redisClient)
		idempotency = redisRepo.NewIdempotencyStore(redisClient)
		redisPinger = handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
		publisher = eventpublisher.NewRedisPublisher(redisClient, eventpublisher.DefaultChannel)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	retrierOpts := []postgresRepo.RetrierOption{}
	if store.retryable != nil {
		retrierOpts = append(retrierOpts, postgresRepo.WithRetryable(store.retryable))
	}
	retrier := postgresRepo.NewRetrier(l, retrierOpts...)
	idGen := postgresRepo.NewULIDGenerator()

	// Initialize use cases
	userUC := usecase.NewUserUseCase(store.users, cache, m)
	expenseUC := usecase.NewExpenseUseCase(store.txManager, store.expenses, store.participants, store.outbox, store.audit, userUC, idGen, retrier, m)
	settlementUC := usecase.NewSettlementUseCase(store.txManager, store.expenses, store.participants, store.outbox, store.audit, userUC, idGen, retrier, m)
	balanceUC := usecase.NewBalanceUseCase(store.participants, userUC, m)

	routerCfg := httpAdapter.RouterConfig{
		ExpenseHandler:   handler.NewExpenseHandler(expenseUC, settlementUC, balanceUC),
		BalanceHandler:   handler.NewBalanceHandler(balanceUC),
		UserHandler:      handler.NewUserHandler(userUC),
		HealthHandler:    handler.NewHealthHandler(store.name, store.pinger, redisPinger),
		Authenticator:    newAuthenticator(cfg),
		Logger:           &l,
		HTTPMetrics:      middleware.NewHTTPMetrics(prometheus.DefaultRegisterer),
		MetricsHandler:   promhttp.Handler(),
		IdempotencyStore: idempotency,
		IdempotencyTTL:   cfg.IdempotencyTTL,
	}
	if cfg.RateLimitRPS > 0 {
		rl := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		go rl.Run(ctx, time.Minute, 10*time.Minute)
		routerCfg.RateLimiter = rl
	}

	// Outbox relay
	ep := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: store.outbox,
		Publisher:  publisher,
		Logger:     l,
		Metrics:    m,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxPollInterval,
	})
	publisherDone := make(chan struct{})
	go func() {
		defer close(publisherDone)
		if err := ep.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			l.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      httpAdapter.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		l.Info().
			Str("port", cfg.HTTPPort).
			Str("storage", store.name).
			Bool("auth", cfg.AuthEnabled).
			Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		stop()
		<-publisherDone
		return err
	case <-ctx.Done():
	}

	l.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	<-publisherDone

	l.Info().Msg("server stopped")
	return nil
}
