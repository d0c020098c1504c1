package contracts

import "fmt"

// Organism identifies one of the three independent scoring modules.
type Organism string

const (
	OrganismUnslug     Organism = "UNSLUG"
	OrganismFearIndex  Organism = "FearIndex"
	OrganismMarketFlow Organism = "MarketFlow"
)

// ParseOrganism converts a string to an Organism
func ParseOrganism(s string) (Organism, error) {
	switch Organism(s) {
	case OrganismUnslug, OrganismFearIndex, OrganismMarketFlow:
		return Organism(s), nil
	}
	return "", fmt.Errorf("unknown organism: %q", s)
}

// Signal is the discrete recommendation emitted by an organism.
type Signal string

const (
	SignalBuy     Signal = "BUY"
	SignalNeutral Signal = "NEUTRAL"
	SignalRisk    Signal = "RISK"
)

// ParseSignal converts a string to a Signal
func ParseSignal(s string) (Signal, error) {
	switch Signal(s) {
	case SignalBuy, SignalNeutral, SignalRisk:
		return Signal(s), nil
	}
	return "", fmt.Errorf("unknown signal: %q", s)
}

// Contribution tags how a factor moved the trust score relative to the
// neutral baseline.
type Contribution string

const (
	IncreasesTrust Contribution = "increases_trust"
	DecreasesTrust Contribution = "decreases_trust"
	NeutralTrust   Contribution = "neutral"
)

// Status is the review state of a persisted signal record.
// PENDING_REVIEW is the only non-terminal state; the three APPROVED_*
// states are terminal and reached exactly once per record.
type Status string

const (
	StatusPendingReview   Status = "PENDING_REVIEW"
	StatusApprovedBuy     Status = "APPROVED_BUY"
	StatusApprovedNeutral Status = "APPROVED_NEUTRAL"
	StatusApprovedRisk    Status = "APPROVED_RISK"
)

// Terminal reports whether the status is an approved end state.
func (s Status) Terminal() bool {
	switch s {
	case StatusApprovedBuy, StatusApprovedNeutral, StatusApprovedRisk:
		return true
	}
	return false
}

// ApprovedStatus maps an approval decision to its terminal record status.
func ApprovedStatus(sig Signal) (Status, error) {
	switch sig {
	case SignalBuy:
		return StatusApprovedBuy, nil
	case SignalNeutral:
		return StatusApprovedNeutral, nil
	case SignalRisk:
		return StatusApprovedRisk, nil
	}
	return "", fmt.Errorf("no approved status for signal %q", sig)
}

// CityState is the coarse visualization state derived from per-organism
// trust scores.
type CityState string

const (
	CityDim      CityState = "dim"
	CityStable   CityState = "stable"
	CityThriving CityState = "thriving"
)
