package contracts

import "time"

// Factor is a single named input to trust aggregation: the raw measurement
// and its normalized value in [0,1]. Factors are immutable once computed
// for a given (organism, symbol, timestamp) triple.
type Factor struct {
	Name  string  `json:"name"`
	Raw   float64 `json:"raw"`
	Value float64 `json:"value"` // normalized, ∈ [0,1]
}

// ExplainEntry attaches a per-factor explanation to an output so the UI
// can rank contributions without recomputing anything.
type ExplainEntry struct {
	Name         string       `json:"name"`
	Value        float64      `json:"value"`
	Contribution Contribution `json:"contribution"`
}

// OrganismOutput is the result of one trust computation. Created once per
// cycle and never mutated; a later computation produces a new output that
// supersedes but does not overwrite history.
type OrganismOutput struct {
	Organism Organism       `json:"organism"`
	Symbol   string         `json:"symbol"`
	TS       time.Time      `json:"ts"`
	Signal   Signal         `json:"signal"`
	Trust    float64        `json:"trust"` // ∈ [0,1]
	Explain  []ExplainEntry `json:"explain"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// CityToken is the visualization payload exposed to the UI boundary.
// Derived purely from per-organism trust; no cross-organism blending
// happens here.
type CityToken struct {
	CityState   CityState `json:"city_state"`
	UnslugTrust float64   `json:"unslug_trust"`
	FearTrust   float64   `json:"fear_trust"`
	FlowTrust   float64   `json:"flow_trust"`
	Notes       string    `json:"notes,omitempty"`
}
