package gate

import (
	"context"
	"fmt"

	"github.com/wonny/unslug/backend/internal/contracts"
	"github.com/wonny/unslug/backend/pkg/logger"
)

// Approver applies human decisions to pending signals. The first decision
// wins; later conflicting decisions fail with AlreadyApprovedError, and
// repeating the winning decision is an idempotent no-op.
type Approver struct {
	signals   contracts.SignalRepository
	approvals contracts.ApprovalRepository
	clock     contracts.Clock
	log       *logger.Logger
}

// NewApprover wires the approval workflow to its stores.
func NewApprover(signals contracts.SignalRepository, approvals contracts.ApprovalRepository, clock contracts.Clock, log *logger.Logger) *Approver {
	return &Approver{signals: signals, approvals: approvals, clock: clock, log: log}
}

// Approve moves a signal from PENDING_REVIEW to the terminal status for
// the given decision and records who made it. The status transition and
// the conflict check are one atomic repository operation.
func (a *Approver) Approve(ctx context.Context, signalID int64, approvedBy string, decision contracts.Signal, note string) (*contracts.SignalRecord, error) {
	target, err := contracts.ApprovedStatus(decision)
	if err != nil {
		return nil, err
	}

	rec, applied, err := a.signals.ApproveSignal(ctx, signalID, target)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("signal %d not found", signalID)
	}

	if !applied {
		if rec.Status == target {
			// same decision replayed, nothing to record
			return rec, nil
		}
		return nil, &contracts.AlreadyApprovedError{
			SignalID: signalID,
			Symbol:   rec.Symbol,
			Status:   rec.Status,
		}
	}

	approval := &contracts.ApprovalRecord{
		SignalID:   signalID,
		Symbol:     rec.Symbol,
		ApprovedBy: approvedBy,
		Status:     decision,
		Note:       note,
		CreatedAt:  a.clock.Now(),
	}
	if err := a.approvals.SaveApproval(ctx, approval); err != nil {
		return nil, fmt.Errorf("save approval for %d: %w", signalID, err)
	}

	a.log.WithFields(map[string]interface{}{
		"signal_id":   signalID,
		"symbol":      rec.Symbol,
		"approved_by": approvedBy,
		"decision":    string(decision),
	}).Info("signal approved")

	return rec, nil
}
