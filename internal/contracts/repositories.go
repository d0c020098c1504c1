package contracts

import (
	"context"
	"time"
)

// SignalRepository is the narrow persistence contract the scoring core
// depends on. Implementations must make ApproveSignal atomic per record:
// concurrent approvals resolve first-writer-wins.
type SignalRepository interface {
	// SaveSignal persists a new PENDING_REVIEW record and fills in its ID.
	SaveSignal(ctx context.Context, rec *SignalRecord) error

	// LatestBySymbol returns the most recent record for a symbol, or
	// (nil, nil) when none exists.
	LatestBySymbol(ctx context.Context, symbol string) (*SignalRecord, error)

	// ListLatest returns the most recent record per symbol, strongest
	// combined trust first, limited to n.
	ListLatest(ctx context.Context, n int) ([]SignalRecord, error)

	// ApproveSignal conditionally moves a PENDING_REVIEW record to the
	// given terminal status. Returns the record as stored afterwards and
	// whether this call performed the transition (false when another
	// writer already had).
	ApproveSignal(ctx context.Context, signalID int64, status Status) (*SignalRecord, bool, error)
}

// ApprovalRepository stores the append-only approval audit trail.
type ApprovalRepository interface {
	SaveApproval(ctx context.Context, rec *ApprovalRecord) error
	ListApprovals(ctx context.Context, symbol string) ([]ApprovalRecord, error)
}

// DataSource yields an ordered InputSlice window for a symbol. It may fail
// or return a short or empty series; the core handles both without
// aborting the surrounding batch.
type DataSource interface {
	FetchSeries(ctx context.Context, symbol, interval string, lookback int) ([]InputSlice, error)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
