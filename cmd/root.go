package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iXanadu/abouthr/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "abouthr",
	Short: "Venue catalog reconciliation and enrichment",
	Long:  "Matches curated venues to place-data providers, refreshes live fields, discovers new venues, and tracks per-provider daily API quotas.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// API keys usually live in .env during development.
		_ = godotenv.Load()

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
