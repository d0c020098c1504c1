package contracts

import "time"

// Recommendation is the cross-organism suggestion attached to a signal
// record, kept alongside the inputs that produced it.
type Recommendation struct {
	Suggested Signal  `json:"suggested"`
	Unslug    float64 `json:"unslug"`
	Fear      float64 `json:"fear"`
	Logic     string  `json:"logic"`
}

// SignalRecord is the persisted snapshot of one batch-cycle computation
// for a symbol. It is created PENDING_REVIEW and transitions to a terminal
// APPROVED_* state exactly once; a later cycle creates a new record rather
// than reopening an approved one.
type SignalRecord struct {
	ID     int64     `json:"id"`
	Symbol string    `json:"symbol"`
	TS     time.Time `json:"ts"`

	UnslugScore   float64 `json:"unslug_score"`   // [0,1]
	FearScore     float64 `json:"fear_score"`     // [0,1]
	FlowScore     float64 `json:"flow_score"`     // [0,1]
	CombinedTrust float64 `json:"combined_trust"` // [0,1]

	Signal Signal `json:"signal"`
	Status Status `json:"status"`

	Recommendation Recommendation            `json:"recommendation"`
	Explain        map[string][]ExplainEntry `json:"explain,omitempty"` // key: organism
	Meta           map[string]any            `json:"meta,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ApprovalRecord is one append-only approval event against a signal
// record. Multiple approvals over time form the audit trail for a symbol;
// at most one is active per record (first writer wins).
type ApprovalRecord struct {
	ID         int64     `json:"id"`
	SignalID   int64     `json:"signal_id"`
	Symbol     string    `json:"symbol"`
	ApprovedBy string    `json:"approved_by"` // "system" when unattended
	Status     Signal    `json:"approved_status"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
