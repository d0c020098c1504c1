package contracts

import (
	"errors"
	"fmt"
	"time"
)

// The scoring core never fabricates a number when a required decision,
// factor, or input is missing; it surfaces one of these instead.
var (
	// ErrInsufficientFactors is returned when aggregation is attempted
	// over an empty factor set.
	ErrInsufficientFactors = errors.New("no factors to aggregate")

	// ErrInsufficientHistory marks a factor whose lookback window is
	// longer than the available series. The factor is omitted, not
	// defaulted.
	ErrInsufficientHistory = errors.New("insufficient history for factor")

	// ErrBuilderFinalized is returned when factors are added to a trust
	// builder after Compute has been called.
	ErrBuilderFinalized = errors.New("trust builder already finalized")
)

// RequiredDecisionError surfaces a numeric or configuration choice that is
// deliberately undefined upstream. Callers must not guess a value; the
// missing decision is named so it can be configured.
type RequiredDecisionError struct {
	Decision string
}

func (e *RequiredDecisionError) Error() string {
	return fmt.Sprintf("required decision undefined: %s", e.Decision)
}

// IsRequiredDecision reports whether err carries a RequiredDecisionError.
func IsRequiredDecision(err error) bool {
	var rd *RequiredDecisionError
	return errors.As(err, &rd)
}

// InvalidSliceError marks an InputSlice violating the OHLCV invariant.
// The slice is dropped; computation continues with the remaining history.
type InvalidSliceError struct {
	Symbol string
	TS     time.Time
	Reason string
}

func (e *InvalidSliceError) Error() string {
	return fmt.Sprintf("invalid input slice %s@%s: %s", e.Symbol, e.TS.Format(time.RFC3339), e.Reason)
}

// ValidationError marks caller-constructed builder misuse, e.g. asserting
// a factor outside [0,1]. Local and non-retryable.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InvalidWeightsError marks a weighted aggregation whose weights are
// negative or do not sum to 1 within tolerance.
type InvalidWeightsError struct {
	Sum     float64
	Message string
}

func (e *InvalidWeightsError) Error() string {
	return fmt.Sprintf("invalid weights (sum=%.4f): %s", e.Sum, e.Message)
}

// AlreadyApprovedError marks an approval attempt against a record that
// already reached a terminal state with a different status. The original
// status is left unchanged.
type AlreadyApprovedError struct {
	SignalID int64
	Symbol   string
	Status   Status
}

func (e *AlreadyApprovedError) Error() string {
	return fmt.Sprintf("signal %d (%s) already approved as %s", e.SignalID, e.Symbol, e.Status)
}
