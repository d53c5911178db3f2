package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/goportfolio/internal/adapter/http"
	"github.com/iho/goportfolio/internal/adapter/http/handler"
	"github.com/iho/goportfolio/internal/adapter/http/middleware"
	"github.com/iho/goportfolio/internal/adapter/rates"
	postgresRepo "github.com/iho/goportfolio/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/goportfolio/internal/adapter/repository/redis"
	"github.com/iho/goportfolio/internal/infrastructure/config"
	"github.com/iho/goportfolio/internal/infrastructure/eventpublisher"
	"github.com/iho/goportfolio/internal/infrastructure/logger"
	"github.com/iho/goportfolio/internal/infrastructure/metrics"
	"github.com/iho/goportfolio/internal/infrastructure/postgres"
	"github.com/iho/goportfolio/internal/infrastructure/redis"
	"github.com/iho/goportfolio/internal/usecase"
)

const redisEventPrefix = "goportfolio.events."

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	ctx = logger.WithContext(ctx, log)

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	if cfg.AutoMigrate {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL, redis.Options{PoolSize: cfg.RedisPoolSize})
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Repositories
	txManager := postgresRepo.NewTxManager(pool)
	portfolioRepo := postgresRepo.NewPortfolioRepository(pool)
	operationRepo := postgresRepo.NewOperationRepository(pool)
	outboxRepo := buildOutboxRepo(cfg, pool, log)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier(log)

	rateProvider := buildRateProvider(cfg, redisRepo.NewCache(redisClient), m, log)

	// Use cases
	portfolioUC := usecase.NewPortfolioUseCase(txManager, portfolioRepo, outboxRepo, idGen, m)
	operationUC := usecase.NewOperationUseCase(txManager, portfolioRepo, operationRepo, outboxRepo, idGen, retrier, m)
	holdingUC := usecase.NewHoldingUseCase(portfolioRepo, operationRepo, rateProvider, m)
	reconciliationUC := usecase.NewReconciliationUseCase(portfolioRepo, operationRepo, m)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
	stopCleanup := make(chan struct{})
	defer close(stopCleanup)
	go rateLimiter.RunCleanup(stopCleanup, time.Minute, 10*time.Minute)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		PortfolioHandler: handler.NewPortfolioHandler(portfolioUC),
		OperationHandler: handler.NewOperationHandler(operationUC),
		HoldingHandler:   handler.NewHoldingHandler(holdingUC),
		LedgerHandler:    handler.NewLedgerHandler(reconciliationUC),
		HealthHandler: handler.NewHealthHandler(
			handler.PingerFunc(pool.Ping),
			handler.PingerFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		),
		Logger:           log,
		IdempotencyStore: redisRepo.NewIdempotencyStore(redisClient),
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      rateLimiter,
		HTTPMetrics:      middleware.NewHTTPMetrics(reg),
		MetricsHandler:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		CORSOrigins:      cfg.CORSOrigins,
	})

	if cfg.OutboxEnabled {
		publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
			OutboxRepo: outboxRepo,
			Publisher:  buildEventSink(cfg, redisClient, log),
			Metrics:    m,
			Logger:     log,
			BatchSize:  cfg.OutboxBatchSize,
			Interval:   cfg.OutboxInterval,
			Retention:  cfg.OutboxRetention,
		})
		go func() {
			if err := publisher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("event publisher stopped")
			}
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return serve(ctx, server, cfg.HTTPShutdownTimeout, log)
}

// serve runs server until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// buildRateProvider chains the configured quote sources. A static rate is
// used alone when no URL is set, or as the fallback behind the HTTP source.
// The chain is cached when cache is non-nil.
func buildRateProvider(cfg *config.Config, cache usecase.Cache, m *metrics.Metrics, log zerolog.Logger) usecase.ExchangeRateProvider {
	var provider usecase.ExchangeRateProvider

	if strings.TrimSpace(cfg.RatesURL) != "" {
		provider = rates.NewHTTPProvider(rates.HTTPConfig{
			URL:        cfg.RatesURL,
			Client:     &http.Client{Timeout: cfg.RatesTimeout},
			Logger:     log,
			MaxElapsed: 2 * cfg.RatesTimeout,
		})
		if cfg.HasStaticRate() {
			provider = rates.NewFallbackProvider(log, provider,
				rates.NewStaticProvider(cfg.RatesStaticBuy, cfg.RatesStaticSell))
		}
	} else {
		provider = rates.NewStaticProvider(cfg.RatesStaticBuy, cfg.RatesStaticSell)
	}

	if cache == nil {
		return provider
	}

	return rates.NewCachedProvider(provider, cache, rates.Policy{
		FreshFor:     cfg.RatesFreshFor,
		MaxStaleness: cfg.RatesMaxStaleness,
	}, m, log)
}

func buildEventSink(cfg *config.Config, client *goredis.Client, log zerolog.Logger) eventpublisher.Publisher {
	if strings.EqualFold(cfg.EventSink, "redis") && client != nil {
		return eventpublisher.NewRedisPublisher(client, redisEventPrefix)
	}
	return eventpublisher.NewLogPublisher(log)
}

func buildOutboxRepo(cfg *config.Config, pool postgresRepo.Pool, log zerolog.Logger) usecase.OutboxRepository {
	if !cfg.OutboxEnabled {
		return postgresRepo.NewNullOutboxRepository(log)
	}
	return postgresRepo.NewOutboxRepository(pool)
}
