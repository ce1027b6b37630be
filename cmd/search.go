package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/btraven00/geofetch/pkg/orchestrate"
)

var (
	searchLimit       int
	searchFullContent bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search GEO datasets ranked by relevance to query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.orchestrator.Search(context.Background(), orchestrate.SearchRequest{
			Query:              args[0],
			Limit:              searchLimit,
			IncludeFullContent: searchFullContent,
		})
		if err != nil {
			return err
		}

		if output == "json" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp.Results)
		}

		for _, r := range resp.Results {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.3f\t%s\n", r.Dataset.GeoID, r.Score.Value, r.Dataset.Title)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 20, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchFullContent, "full-content", false, "include full parsed content instead of summaries")
}
