package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/unslug/backend/internal/contracts"
)

// approveCmd represents the approve command
var approveCmd = &cobra.Command{
	Use:   "approve [signal_id] [decision]",
	Short: "Apply a review decision to a pending signal",
	Long: `Moves a PENDING_REVIEW signal to its terminal approved status.
The first decision wins; conflicting decisions on an already approved
signal fail, repeating the winning decision is a no-op.

Decision is one of BUY, NEUTRAL, RISK.

Example:
  go run ./cmd/unslug approve 42 BUY --by reviewer --note "strong rebound"
  go run ./cmd/unslug approve 42 RISK --by reviewer`,
	Args: cobra.ExactArgs(2),
	RunE: runApprove,
}

var (
	approveBy   string
	approveNote string
)

func init() {
	rootCmd.AddCommand(approveCmd)

	approveCmd.Flags().StringVar(&approveBy, "by", "", "who is making the decision (required)")
	approveCmd.Flags().StringVar(&approveNote, "note", "", "optional review note")
	approveCmd.MarkFlagRequired("by")
}

func runApprove(cmd *cobra.Command, args []string) error {
	signalID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("signal id must be an integer: %q", args[0])
	}

	decision, err := contracts.ParseSignal(args[1])
	if err != nil {
		return fmt.Errorf("decision must be BUY, NEUTRAL or RISK: %q", args[1])
	}

	stack, err := buildStack()
	if err != nil {
		return err
	}
	defer stack.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rec, err := stack.approver.Approve(ctx, signalID, approveBy, decision, approveNote)
	if err != nil {
		var conflict *contracts.AlreadyApprovedError
		if errors.As(err, &conflict) {
			return fmt.Errorf("signal %d already approved as %s", conflict.SignalID, conflict.Status)
		}
		return err
	}

	fmt.Printf("Signal %d (%s) approved: %s\n", rec.ID, rec.Symbol, rec.Status)
	return nil
}
