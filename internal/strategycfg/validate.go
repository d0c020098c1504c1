package strategycfg

import (
	"fmt"
	"math"

	"github.com/wonny/unslug/backend/internal/contracts"
	"github.com/wonny/unslug/backend/internal/trust"
)

const weightTolerance = 1e-6

// Validate checks every present block. Absent optional blocks are legal;
// they become RequiredDecisionErrors at decision time, not load time.
func Validate(cfg *Config) error {
	if cfg.Meta.StrategyID == "" {
		return &contracts.ValidationError{Field: "meta.strategy_id", Message: "required"}
	}

	for field, oc := range map[string]*OrganismConfig{
		"organisms.unslug":      cfg.Organisms.Unslug,
		"organisms.fear_index":  cfg.Organisms.FearIndex,
		"organisms.market_flow": cfg.Organisms.MarketFlow,
	} {
		if oc == nil {
			continue
		}
		if err := validateOrganism(field, oc); err != nil {
			return err
		}
	}

	if r := cfg.Recommendation; r != nil {
		for field, v := range map[string]float64{
			"recommendation.buy_unslug_min":  r.BuyUnslugMin,
			"recommendation.buy_fear_min":    r.BuyFearMin,
			"recommendation.risk_unslug_max": r.RiskUnslugMax,
			"recommendation.risk_fear_max":   r.RiskFearMax,
		} {
			if v < 0 || v > 1 || math.IsNaN(v) {
				return &contracts.ValidationError{Field: field, Message: "must be in [0,1]"}
			}
		}
	}

	if c := cfg.City; c != nil {
		if c.StableMin < 0 || c.ThrivingMin > 1 || c.StableMin >= c.ThrivingMin {
			return &contracts.ValidationError{
				Field:   "city",
				Message: "must satisfy 0 <= stable_min < thriving_min <= 1",
			}
		}
	}

	return nil
}

func validateOrganism(field string, oc *OrganismConfig) error {
	method, err := trust.ParseMethod(oc.Method)
	if err != nil {
		return &contracts.ValidationError{Field: field + ".method", Message: err.Error()}
	}

	if method == trust.MethodWeightedMean {
		if len(oc.Weights) == 0 {
			return &contracts.ValidationError{Field: field + ".weights", Message: "required for weighted_mean"}
		}
		sum := 0.0
		for name, w := range oc.Weights {
			if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				return &contracts.ValidationError{
					Field:   fmt.Sprintf("%s.weights.%s", field, name),
					Message: "must be finite and non-negative",
				}
			}
			sum += w
		}
		if math.Abs(sum-1) > weightTolerance {
			return &contracts.ValidationError{
				Field:   field + ".weights",
				Message: fmt.Sprintf("must sum to 1, got %v", sum),
			}
		}
	}

	if t := oc.Thresholds; t != nil {
		if !(0 <= t.Mid && t.Mid < t.High && t.High <= 1) {
			return &contracts.ValidationError{
				Field:   field + ".thresholds",
				Message: "must satisfy 0 <= mid < high <= 1",
			}
		}
	}

	if oc.MinHistory < 0 {
		return &contracts.ValidationError{Field: field + ".min_history", Message: "must be >= 0"}
	}
	if oc.LiquidityFloor < 0 {
		return &contracts.ValidationError{Field: field + ".liquidity_floor", Message: "must be >= 0"}
	}
	if oc.MinWeight < 0 || oc.MinWeight > 1 {
		return &contracts.ValidationError{Field: field + ".min_weight", Message: "must be in [0,1]"}
	}
	if oc.Cap < 0 || oc.Cap > 1 {
		return &contracts.ValidationError{Field: field + ".cap", Message: "must be in [0,1]"}
	}

	if b := oc.Band; b != nil {
		if b.AnchorWindowDays <= 0 {
			return &contracts.ValidationError{Field: field + ".band.anchor_window_days", Message: "must be > 0"}
		}
		if b.HitLookbackDays <= 0 {
			return &contracts.ValidationError{Field: field + ".band.hit_lookback_days", Message: "must be > 0"}
		}
	}

	return nil
}
