package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/finresearch/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "finresearch",
	Short: "Quarterly financial research for Indian IT services companies",
	Long: "Collects quarterly results (revenue, EBITDA, EBIT, PBT, PAT, EPS) from the Perplexity " +
		"research API and Moneycontrol, derives operating metrics, validates them and stores the records.",
	SilenceUsage: true,
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
