package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/contest-engine/internal/config"
	"github.com/terra-clan/contest-engine/internal/storage"
)

var cfg *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "contest-engine",
	Short: "Competition backend for team video submissions",
	Long: `contest-engine runs a team video competition: participants submit a
video per team, three randomly drawn evaluators score each submission against
a fixed rubric, and a leaderboard ranks the fully evaluated entries.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		setupLogging(cfg.Log.Level)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
}

// openStore connects to the configured backend. Postgres schemas are
// migrated first when migrate is true.
func openStore(ctx context.Context, migrate bool) (storage.Repository, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		repo, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: int32(cfg.Database.MaxOpenConns),
			MaxIdleConns: int32(cfg.Database.MaxIdleConns),
		})
		if err != nil {
			return nil, err
		}
		if migrate {
			slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
			applied, err := repo.Migrate(ctx, os.DirFS(cfg.Database.MigrationsDir))
			if err != nil {
				repo.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			slog.Info("migrations complete", "applied", len(applied))
		}
		return repo, nil

	case config.DriverMongo:
		return storage.NewMongoRepository(ctx, storage.MongoConfig{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			Timeout:  10 * time.Second,
		})

	case config.DriverMemory:
		slog.Warn("using in-memory storage, data is lost on restart")
		return storage.NewMemoryRepository(), nil
	}

	return nil, fmt.Errorf("unknown storage driver: %q", cfg.Storage.Driver)
}
