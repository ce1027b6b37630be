package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/btraven00/geofetch/pkg/analysis"
	"github.com/btraven00/geofetch/pkg/orchestrate"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [geo_id]",
	Short: "Assemble an LLM-ready text context for a dataset",
	Long: `analyze enriches a dataset with full publication text (forcing
include_full_content on for this run regardless of configuration) and
renders the result into a single prompt-sized text block along with the
list of publications it drew from.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		geoID := args[0]
		ctx := context.Background()

		cfg := loadConfig()
		cfg.Enrichment.DownloadPDFs = true
		cfg.Enrichment.IncludeFullContent = true

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ds, err := a.idx.GetDataset(ctx, geoID)
		if err != nil {
			return fmt.Errorf("analyze: %s not found, run search first: %w", geoID, err)
		}

		original, err := a.originalPublication(ctx, geoID)
		if err != nil {
			return err
		}

		result := &orchestrate.EnrichedDataset{Dataset: *ds}
		if err := a.orchestrator.Enrich(ctx, result, original); err != nil {
			return fmt.Errorf("analyze: %s: %w", geoID, err)
		}

		ctxOut := analysis.AnalyzeDataset(result.Dataset, original, result.Citing, result.FullContent)

		if output == "json" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(ctxOut)
		}

		fmt.Fprintln(cmd.OutOrStdout(), ctxOut.Prompt)
		fmt.Fprintf(cmd.OutOrStdout(), "sources: %v\n", ctxOut.Sources)
		return nil
	},
}
