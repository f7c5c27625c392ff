package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozan-lab/landgain/internal/batch"
)

var (
	batchLimit          int
	batchNoSkipExisting bool
	batchCheckpoint     string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze the whole roster with a resumable checkpoint",
	Long:  "Processes roster entities one at a time, writing the checkpoint after each. Rerunning resumes where the previous run stopped, skipping entities already in the checkpoint; pass --no-skip-existing to re-attempt them, including prior failures.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		path := cfg.Batch.CheckpointPath
		if batchCheckpoint != "" {
			path = batchCheckpoint
		}
		checkpoint, err := batch.LoadCheckpoint(path)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		entities, err := a.roster.Load(ctx)
		if err != nil {
			return err
		}

		runner := batch.NewRunner(a.pipeline, checkpoint, a.store)
		summary, err := runner.Run(ctx, entities, batch.Options{
			Limit:        batchLimit,
			SkipExisting: !batchNoSkipExisting,
			TopN:         cfg.Batch.TopN,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max entities to process this run (0 = all)")
	batchCmd.Flags().BoolVar(&batchNoSkipExisting, "no-skip-existing", false, "reprocess entities already analyzed cleanly")
	batchCmd.Flags().StringVar(&batchCheckpoint, "checkpoint", "", "checkpoint file path (overrides config)")
	rootCmd.AddCommand(batchCmd)
}
