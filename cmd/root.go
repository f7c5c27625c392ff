package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kozan-lab/landgain/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "landgain",
	Short: "Real estate unrealized-gain analyzer for listed companies",
	Long:  "Reads the latest annual securities report of each TOPIX constituent, extracts its real estate holdings, and estimates unrealized gains from nearby land transaction prices.",
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
