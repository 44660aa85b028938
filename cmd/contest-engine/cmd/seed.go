package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/contest-engine/internal/contest"
	"github.com/terra-clan/contest-engine/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Provision admin and evaluator accounts from a YAML file",
	Long: `Provision admin and evaluator accounts from a YAML file. The file
defaults to SEED_FILE. Accounts whose email is already registered are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Seed.File
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return fmt.Errorf("no seed file given and SEED_FILE is not set")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		repo, err := openStore(ctx, true)
		if err != nil {
			return err
		}
		defer repo.Close()

		result, err := seed.ApplyFile(ctx, contest.NewService(repo, contest.Options{}), path)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "seeded %s: %d created, %d skipped\n", path, result.Created, result.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
