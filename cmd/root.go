package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/btraven00/geofetch/internal/config"
	"github.com/btraven00/geofetch/internal/logging"
)

var (
	quiet  bool
	output string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "geofetch",
	Short: "Discover GEO datasets, their citing literature, and full text",
	Long: `geofetch searches NCBI GEO for datasets, discovers publications that
describe or cite them across the scholarly literature, collects and
downloads full-text PDFs, and ranks datasets by relevance to a query.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "quiet output (accepted, but progress logging is not suppressed)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "human", "output format (human, json)")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(analyzeCmd)
}

// loadConfig reads process configuration, exiting the process on a fatal
// configuration error (an enabled provider missing a required key, or an
// empty data root).
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "geofetch: config error:", err)
		os.Exit(1)
	}
	return cfg
}

func newLogger(component string) *log.Logger {
	return logging.New(component)
}
