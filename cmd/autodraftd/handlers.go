package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/bracketlab/autodraft/internal/api"
	"github.com/bracketlab/autodraft/internal/auth"
	"github.com/bracketlab/autodraft/internal/config"
	"github.com/bracketlab/autodraft/internal/draftstore"
	"github.com/bracketlab/autodraft/internal/observability"
	"github.com/bracketlab/autodraft/pkg/models"
)

// runServe implements the serve command: configuration loading, store and
// server wiring, the scheduled expiry sweep, and graceful shutdown.
func runServe(ctx context.Context, configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if debug {
		cfg.Log.Level = "debug"
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	metrics := observability.NewMetrics(nil)

	logger.Info(ctx, "starting autodraft service",
		"version", version,
		"commit", commit,
		"config", configPath,
		"addr", cfg.Server.Addr,
		"store", cfg.Store.Driver,
	)

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open draft store: %w", err)
	}
	defer store.Close()

	authService := auth.NewService(auth.Config{
		JWTSecret:   cfg.Auth.JWTSecret,
		TokenExpiry: cfg.Auth.TokenExpiry,
	})

	server := api.NewServer(api.Config{
		Addr: cfg.Server.Addr,
		MaxDataSize: map[models.SessionType]int{
			models.SessionCreation: cfg.Autosave.Creation.MaxDataSize,
			models.SessionPlay:     cfg.Autosave.Play.MaxDataSize,
		},
		ShutdownTimeout: time.Duration(cfg.Server.ShutdownTimeoutMs) * time.Millisecond,
	}, store, authService, logger, metrics)

	// Expiry sweep on the configured cron schedule.
	sweeper := cron.New()
	_, err = sweeper.AddFunc(cfg.Server.PruneSchedule, func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		pruned, err := store.Prune(sweepCtx, cfg.Server.Retention)
		if err != nil {
			logger.Error(sweepCtx, "expiry sweep failed", "error", err)
			return
		}
		if pruned > 0 {
			logger.Info(sweepCtx, "expiry sweep pruned drafts",
				"count", pruned, "retention", cfg.Server.Retention.String())
		}
	})
	if err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", cfg.Server.PruneSchedule, err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info(context.Background(), "autodraft service stopped")
	return nil
}

// runPrune implements the prune command: one sweep, then exit.
func runPrune(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open draft store: %w", err)
	}
	defer store.Close()

	pruned, err := store.Prune(ctx, cfg.Server.Retention)
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}
	fmt.Printf("pruned %d draft(s) older than %s\n", pruned, cfg.Server.Retention)
	return nil
}

// runToken implements the token command.
func runToken(cmd *cobra.Command, configPath, userID string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	token, err := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry).
		Generate(&models.User{ID: userID})
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

// openStore builds the configured draft store backend.
func openStore(cfg *config.Config) (draftstore.Store, error) {
	switch cfg.Store.Driver {
	case "memory":
		return draftstore.NewMemoryStore(), nil
	case "sqlite":
		return draftstore.NewSQLiteStore(cfg.Store.Path)
	case "postgres":
		return draftstore.NewPostgresStore(cfg.Store.DSN, nil)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
