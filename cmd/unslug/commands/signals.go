package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "List the latest signal per symbol",
	Long: `Shows the newest persisted signal for every scored symbol,
strongest combined trust first.

Example:
  go run ./cmd/unslug signals
  go run ./cmd/unslug signals --limit 50`,
	RunE: runSignals,
}

var signalsLimit int

func init() {
	rootCmd.AddCommand(signalsCmd)

	signalsCmd.Flags().IntVar(&signalsLimit, "limit", 20, "maximum symbols to list")
}

func runSignals(cmd *cobra.Command, args []string) error {
	stack, err := buildStack()
	if err != nil {
		return err
	}
	defer stack.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	records, err := stack.signals.ListLatest(ctx, signalsLimit)
	if err != nil {
		return fmt.Errorf("list signals: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No signals yet. Run a scan first: go run ./cmd/unslug scan")
		return nil
	}

	fmt.Printf("%-4s %-6s %-8s %-7s %-17s %s\n", "ID", "SYMBOL", "TRUST", "SIGNAL", "STATUS", "TS")
	for _, rec := range records {
		fmt.Printf("%-4d %-6s %-8.3f %-7s %-17s %s\n",
			rec.ID, rec.Symbol, rec.CombinedTrust, rec.Signal, rec.Status,
			rec.TS.Format("2006-01-02"))
	}

	return nil
}
