package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozan-lab/landgain/internal/batch"
)

var statusCheckpoint string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the current checkpoint without processing anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Batch.CheckpointPath
		if statusCheckpoint != "" {
			path = statusCheckpoint
		}
		checkpoint, err := batch.LoadCheckpoint(path)
		if err != nil {
			return err
		}

		summary := batch.Summarize("", checkpoint.Results(), cfg.Batch.TopN)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusCheckpoint, "checkpoint", "", "checkpoint file path (overrides config)")
	rootCmd.AddCommand(statusCmd)
}
