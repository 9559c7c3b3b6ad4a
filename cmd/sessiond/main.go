// Command sessiond serves cookie-session login, logout and registration over
// HTTP, backed by Redis for sessions and Postgres (or memory) for users.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/appconfig"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/userdir"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger := appconfig.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	if cfg.GeneratedSecret {
		logger.Warn("SESSION_SECRET not set, using a random secret; sessions will not survive a restart")
	}

	// Redis
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	opts.DialTimeout = cfg.RedisTimeout
	opts.ReadTimeout = cfg.RedisTimeout
	opts.WriteTimeout = cfg.RedisTimeout
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(ctx, cfg.RedisTimeout)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	logger.Info("Redis ready", "addr", opts.Addr, "db", opts.DB)

	// User directory
	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return fmt.Errorf("password hasher: %w", err)
	}
	users, closeUsers, err := openDirectory(ctx, cfg, hasher, logger)
	if err != nil {
		return err
	}
	defer closeUsers()

	// Engine
	builder := goSession.New().
		WithConfig(cfg.EngineConfig()).
		WithRedis(rdb).
		WithUserDirectory(users).
		WithLogger(logger)
	if cfg.AuditEnabled {
		builder = builder.WithAuditSink(goSession.NewSlogSink(logger))
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("engine build failed: %w", err)
	}
	defer engine.Close()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newApp(engine, logger).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// openDirectory returns the Postgres directory when DATABASE_URL is set and
// an in-memory one otherwise.
func openDirectory(ctx context.Context, cfg *appconfig.Config, hasher *password.Argon2, logger *slog.Logger) (goSession.UserDirectory, func(), error) {
	if cfg.DatabaseURL == "" {
		mem, err := userdir.NewMemory(hasher)
		if err != nil {
			return nil, nil, fmt.Errorf("memory directory: %w", err)
		}
		logger.Warn("DATABASE_URL not set, users are kept in memory")
		return mem, func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("database ping failed: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := userdir.Migrate(db); err != nil {
		_ = db.Close()
		pool.Close()
		return nil, nil, fmt.Errorf("migration failed: %w", err)
	}
	_ = db.Close()
	logger.Info("Database ready")

	pg, err := userdir.NewPostgres(pool, hasher, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pg, pool.Close, nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
