// Package strategycfg is the single source of truth for every tunable
// decision in the scoring pipeline. Thresholds, weights, and the city rule
// live here and only here; code never falls back to hard-coded values.
package strategycfg

import (
	"time"

	"github.com/wonny/unslug/backend/internal/contracts"
)

// Config is the root of the strategy YAML file.
type Config struct {
	Meta           Meta            `yaml:"meta" json:"meta"`
	Organisms      Organisms       `yaml:"organisms" json:"organisms"`
	Recommendation *Recommendation `yaml:"recommendation,omitempty" json:"recommendation,omitempty"`
	City           *CityRule       `yaml:"city,omitempty" json:"city,omitempty"`
}

// Meta identifies the strategy revision for audit records.
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// Organisms holds one optional block per organism. A missing block means
// that organism has no configured decision parameters, which surfaces as a
// RequiredDecisionError when a score would depend on them.
type Organisms struct {
	Unslug     *OrganismConfig `yaml:"unslug,omitempty" json:"unslug,omitempty"`
	FearIndex  *OrganismConfig `yaml:"fear_index,omitempty" json:"fear_index,omitempty"`
	MarketFlow *OrganismConfig `yaml:"market_flow,omitempty" json:"market_flow,omitempty"`
}

// OrganismConfig tunes one organism's aggregation and signal mapping.
type OrganismConfig struct {
	Method         string             `yaml:"method" json:"method"`
	Weights        map[string]float64 `yaml:"weights,omitempty" json:"weights,omitempty"`
	Thresholds     *Thresholds        `yaml:"thresholds,omitempty" json:"thresholds,omitempty"`
	MinHistory     int                `yaml:"min_history" json:"min_history"`
	LiquidityFloor float64            `yaml:"liquidity_floor,omitempty" json:"liquidity_floor,omitempty"`
	Cap            float64            `yaml:"cap,omitempty" json:"cap,omitempty"`
	Steepness      float64            `yaml:"steepness,omitempty" json:"steepness,omitempty"`
	MinWeight      float64            `yaml:"min_weight,omitempty" json:"min_weight,omitempty"`
	Band           *BandConfig        `yaml:"band,omitempty" json:"band,omitempty"`
}

// Thresholds split the [0,1] trust range into the three signal zones.
// Scores >= High map to the strong zone, scores < Mid to the weak zone.
type Thresholds struct {
	High float64 `yaml:"high" json:"high"`
	Mid  float64 `yaml:"mid" json:"mid"`
}

// BandConfig tunes the retracement band scanner.
type BandConfig struct {
	AnchorWindowDays int `yaml:"anchor_window_days" json:"anchor_window_days"`
	HitLookbackDays  int `yaml:"hit_lookback_days" json:"hit_lookback_days"`
}

// Recommendation holds the combined-signal suggestion cutoffs.
type Recommendation struct {
	BuyUnslugMin float64 `yaml:"buy_unslug_min" json:"buy_unslug_min"`
	BuyFearMin   float64 `yaml:"buy_fear_min" json:"buy_fear_min"`
	RiskUnslugMax float64 `yaml:"risk_unslug_max" json:"risk_unslug_max"`
	RiskFearMax   float64 `yaml:"risk_fear_max" json:"risk_fear_max"`
}

// CityRule maps combined trust onto the city state.
type CityRule struct {
	ThrivingMin float64 `yaml:"thriving_min" json:"thriving_min"`
	StableMin   float64 `yaml:"stable_min" json:"stable_min"`
}

// DecisionSnapshot freezes the config a scoring run was made with.
type DecisionSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	StrategyID string    `json:"strategy_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Organism returns the block for the given organism, or a
// RequiredDecisionError when the block is absent.
func (c *Config) Organism(org contracts.Organism) (*OrganismConfig, error) {
	var oc *OrganismConfig
	switch org {
	case contracts.OrganismUnslug:
		oc = c.Organisms.Unslug
	case contracts.OrganismFearIndex:
		oc = c.Organisms.FearIndex
	case contracts.OrganismMarketFlow:
		oc = c.Organisms.MarketFlow
	}
	if oc == nil {
		return nil, &contracts.RequiredDecisionError{
			Decision: "organism config for " + string(org),
		}
	}
	return oc, nil
}

// SignalThresholds returns the configured zone cutoffs, or a
// RequiredDecisionError when none were configured.
func (o *OrganismConfig) SignalThresholds() (Thresholds, error) {
	if o.Thresholds == nil {
		return Thresholds{}, &contracts.RequiredDecisionError{Decision: "signal thresholds"}
	}
	return *o.Thresholds, nil
}
