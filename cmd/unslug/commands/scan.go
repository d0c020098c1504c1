package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scoring cycle now",
	Long: `Fetches market data for the configured symbols, scores every
organism, and persists one PENDING_REVIEW signal per symbol.

Example:
  go run ./cmd/unslug scan
  go run ./cmd/unslug scan --symbols SPY,QQQ`,
	RunE: runScan,
}

var scanSymbols string

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanSymbols, "symbols", "", "comma-separated symbols (overrides SCAN_SYMBOLS)")
}

func runScan(cmd *cobra.Command, args []string) error {
	stack, err := buildStack()
	if err != nil {
		return err
	}
	defer stack.Close()

	symbols := stack.cfg.Scan.Symbols
	if scanSymbols != "" {
		symbols = nil
		for _, s := range strings.Split(scanSymbols, ",") {
			if s = strings.TrimSpace(s); s != "" {
				symbols = append(symbols, strings.ToUpper(s))
			}
		}
	}

	runner, err := stack.newRunner(nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	start := time.Now()
	result, err := runner.RunCycle(ctx, symbols)
	if err != nil {
		return fmt.Errorf("run scan cycle: %w", err)
	}

	fmt.Printf("Scan completed in %s\n\n", time.Since(start).Round(time.Millisecond))

	for _, rec := range result.Scored {
		fmt.Printf("  %-6s trust=%.3f signal=%-7s (unslug=%.3f fear=%.3f flow=%.3f) id=%d\n",
			rec.Symbol, rec.CombinedTrust, rec.Signal,
			rec.UnslugScore, rec.FearScore, rec.FlowScore, rec.ID)
	}

	for symbol, ferr := range result.Failed {
		fmt.Printf("  %-6s FAILED: %v\n", symbol, ferr)
	}

	if result.City != nil {
		fmt.Printf("\nCity: %s (%s)\n", result.City.CityState, result.City.Notes)
	}

	fmt.Printf("\n%d scored, %d failed. Signals await review.\n",
		len(result.Scored), len(result.Failed))
	return nil
}
