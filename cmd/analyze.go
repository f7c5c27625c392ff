package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/kozan-lab/landgain/internal/model"
)

var analyzeCode string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a single company by securities code",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		ctx := cmd.Context()
		entities, err := a.roster.Load(ctx)
		if err != nil {
			return err
		}

		var entity *model.EntityRef
		for i := range entities {
			if entities[i].Code == analyzeCode {
				entity = &entities[i]
				break
			}
		}
		if entity == nil {
			return eris.Errorf("securities code %s is not in the roster", analyzeCode)
		}

		result, err := a.pipeline.Analyze(ctx, *entity)
		if err != nil {
			return err
		}
		if result.Failed() {
			fmt.Fprintf(os.Stderr, "analysis failed: %s\n", result.Error)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCode, "code", "", "4-digit securities code (required)")
	_ = analyzeCmd.MarkFlagRequired("code")
	rootCmd.AddCommand(analyzeCmd)
}
