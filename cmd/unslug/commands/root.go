package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "unslug",
	Short: "Unslug - trust-scored recovery signals with human review",
	Long: `Unslug Unified CLI

Scores symbols with three independent organisms (UNSLUG, FearIndex,
MarketFlow), combines them into a trust score, and holds every signal
for human approval before it becomes actionable.

Usage:
  go run ./cmd/unslug [command]

Examples:
  go run ./cmd/unslug api
  go run ./cmd/unslug scan
  go run ./cmd/unslug approve 42 BUY --by reviewer
  go run ./cmd/unslug scheduler start`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
