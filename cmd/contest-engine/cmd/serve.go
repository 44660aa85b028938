package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/contest-engine/internal/api"
	"github.com/terra-clan/contest-engine/internal/chat"
	"github.com/terra-clan/contest-engine/internal/contest"
	"github.com/terra-clan/contest-engine/internal/health"
	"github.com/terra-clan/contest-engine/internal/metrics"
	"github.com/terra-clan/contest-engine/internal/overdue"
	"github.com/terra-clan/contest-engine/internal/seed"
)

var skipMigrations bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, chat relay and background workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply database migrations on startup")
	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	slog.Info("starting contest-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Driver,
		"redis", cfg.Redis.Enabled,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	repo, err := openStore(initCtx, !skipMigrations)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer repo.Close()
	slog.Info("store connected successfully")

	m := metrics.New()

	svc := contest.NewService(repo, contest.Options{
		TokenTTL:         cfg.Contest.TokenTTL,
		SubmissionWindow: cfg.Contest.SubmissionWindow,
		Metrics:          m,
		Logger:           slog.Default(),
	})

	if cfg.Seed.File != "" {
		result, err := seed.ApplyFile(initCtx, svc, cfg.Seed.File)
		if err != nil {
			return fmt.Errorf("failed to apply seed file: %w", err)
		}
		slog.Info("seed applied", "file", cfg.Seed.File, "created", result.Created, "skipped", result.Skipped)
	}

	registry := health.NewRegistry()
	registry.Register("store", health.CheckerFunc(repo.Ping))

	var broadcaster chat.Broadcaster
	if cfg.Redis.Enabled {
		rb, err := chat.NewRedisBroadcaster(initCtx, chat.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		})
		if err != nil {
			return err
		}
		registry.Register("redis", rb)
		broadcaster = rb
	} else {
		broadcaster = chat.NewLocalBroadcaster()
	}
	defer broadcaster.Close()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := chat.NewHub(repo, broadcaster, m)
	if err := hub.Start(ctx); err != nil {
		return err
	}

	// Start overdue watcher
	overdue.NewWatcher(repo, cfg.Contest.OverdueInterval, m).Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, svc, hub, registry, m)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("HTTP server error: %w", err)
	}

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("contest-engine stopped")
	return nil
}
