package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/btraven00/geofetch/pkg/orchestrate"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [geo_id]",
	Short: "Discover citing literature and download full text for a dataset",
	Long: `enrich resolves a dataset's original publication, discovers papers
that cite or describe it, and (if enabled in configuration) downloads and
parses their full text. The dataset must already be indexed by a prior
search.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		geoID := args[0]
		ctx := context.Background()

		cfg := loadConfig()
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ds, err := a.idx.GetDataset(ctx, geoID)
		if err != nil {
			return fmt.Errorf("enrich: %s not found, run search first: %w", geoID, err)
		}

		original, err := a.originalPublication(ctx, geoID)
		if err != nil {
			return err
		}

		result := &orchestrate.EnrichedDataset{Dataset: *ds}
		if err := a.orchestrator.Enrich(ctx, result, original); err != nil {
			return fmt.Errorf("enrich: %s: %w", geoID, err)
		}

		if output == "json" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d citing publications, %d downloads attempted\n",
			geoID, len(result.Citing), len(result.Downloads))
		for _, dr := range result.Downloads {
			status := "failed"
			if dr.Success {
				status = "ok (" + dr.SuccessfulSource + ")"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", dr.PublicationID, status)
		}
		return nil
	},
}
