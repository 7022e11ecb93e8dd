package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rate-tiering/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "rate-tiering",
	Short: "Rank vendor rate bids per lane",
	Long:  "Loads a ZIP of vendor rate-bid workbooks, normalizes the selected sheet into price quotes, and assigns per-lane tiers with incumbent carve-outs.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
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
