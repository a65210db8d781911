package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-allocator/internal/allocation"
	"github.com/gokatarajesh/quiz-allocator/internal/auth/jwt"
	"github.com/gokatarajesh/quiz-allocator/internal/config"
	"github.com/gokatarajesh/quiz-allocator/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/quiz-allocator/internal/db/sqlc"
	"github.com/gokatarajesh/quiz-allocator/internal/logging"
	"github.com/gokatarajesh/quiz-allocator/internal/server"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server
}

// New bootstraps logger, Postgres, Redis, the allocation engine and the HTTP
// server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	pool, err := pgxpool.New(ctx, cfg.Postgres.ConnString())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	defaultPolicy, err := allocation.ParsePolicy(cfg.Allocation.DefaultPolicy, allocation.PolicyStrict)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("ALLOCATION_DEFAULT_POLICY: %w", err)
	}

	queries := sqlcgen.New(pool)
	questionRepo := repository.NewQuestionRepository(queries)
	ledgerRepo := repository.NewLedgerRepository(pool, queries)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var locker allocation.Locker
	switch cfg.Allocation.LockBackend {
	case config.LockBackendRedis:
		locker = allocation.NewRedisLocker(redisClient, logger, allocation.RedisLockerOptions{
			TTL:  cfg.Allocation.LockTTL,
			Poll: cfg.Allocation.LockPoll,
		})
	default:
		locker = allocation.NewLocalLocker()
	}
	logger.Info().Str("lock_backend", cfg.Allocation.LockBackend).Str("default_policy", string(defaultPolicy)).Msg("allocation engine configured")

	coordinator := allocation.NewCoordinator(questionRepo, ledgerRepo, logger, allocation.CoordinatorOptions{
		Locker:        locker,
		Cache:         allocation.NewCache(redisClient, cfg.Allocation.CacheTTL),
		Metrics:       allocation.NewMetrics(registry),
		DefaultPolicy: defaultPolicy,
		MaxAttempts:   cfg.Allocation.MaxAttempts,
		LockWait:      cfg.Allocation.LockWait,
	})

	var verifier *jwt.Verifier
	if cfg.Security.JWTSecret != "" {
		verifier = jwt.NewVerifier([]byte(cfg.Security.JWTSecret), cfg.Security.JWTIssuer)
	} else {
		logger.Warn().Msg("JWT secret not configured; requester id is taken from the request body")
	}

	apiServer := server.NewHTTPServer(cfg, logger, server.Dependencies{
		Allocations: allocation.NewHTTPHandler(coordinator, logger),
		Verifier:    verifier,
		Gatherer:    registry,
		Pingers: map[string]server.Pinger{
			"postgres": server.PostgresPinger(pool),
			"redis":    server.RedisPinger{Client: redisClient},
		},
	})

	return &Application{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		redis:  redisClient,
		http:   apiServer,
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
