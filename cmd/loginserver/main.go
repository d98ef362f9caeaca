package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/xilogin/internal/config"
	"github.com/udisondev/xilogin/internal/db"
	"github.com/udisondev/xilogin/internal/lockout"
	"github.com/udisondev/xilogin/internal/login"
	"github.com/udisondev/xilogin/internal/status"
)

const ConfigPath = "config/loginserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("XILOGIN_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadLoginServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))
	slog.Info("xilogin starting",
		"config", cfgPath,
		"server_name", cfg.ServerName,
		"maintenance", cfg.MaintenanceMode,
		"account_creation", cfg.AccountCreation)

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	database.SetRetry(cfg.Database.MaxRetries, cfg.Database.RetryDelay)
	slog.Info("database connected")

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	lockouts, closeLockouts, err := newLockoutStore(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeLockouts()

	loginServer, err := login.NewServer(cfg, database, lockouts)
	if err != nil {
		return fmt.Errorf("creating login server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := loginServer.Run(gctx); err != nil {
			return fmt.Errorf("login server: %w", err)
		}
		return nil
	})

	if cfg.Status.Enabled {
		statusServer := status.NewServer(cfg.Status, loginServer, cfg.SlogLevel() == slog.LevelDebug)
		g.Go(func() error {
			return statusServer.Run(gctx)
		})
	}

	err = g.Wait()

	if cfg.ClearSessionsOnShutdown {
		clearCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		n, clearErr := database.ClearSessions(clearCtx)
		if clearErr != nil {
			slog.Error("clearing sessions", "err", clearErr)
		} else {
			slog.Info("sessions cleared", "rows", n)
		}
	}

	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// newLockoutStore picks the shared redis store when configured, the
// in-process one otherwise.
func newLockoutStore(ctx context.Context, cfg config.RedisConfig) (lockout.Store, func(), error) {
	if !cfg.Enabled {
		slog.Info("create lockout kept in memory")
		return lockout.NewMemory(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connecting to redis %s: %w", cfg.Addr, err)
	}
	slog.Info("create lockout shared via redis", "addr", cfg.Addr)

	return lockout.NewRedis(client, cfg.Prefix), func() { _ = client.Close() }, nil
}
