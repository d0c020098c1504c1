// Package gate sits between raw organism scores and anything a human
// sees: it combines scores, derives the suggested action, and runs the
// approval workflow. No signal leaves PENDING_REVIEW without a recorded
// human decision.
package gate

import (
	"fmt"
	"math"

	"github.com/wonny/unslug/backend/internal/contracts"
	"github.com/wonny/unslug/backend/internal/strategycfg"
)

// CombinedTrust is the geometric combination of the UNSLUG and FearIndex
// scores. Either score at zero zeroes the combination; the result stays
// in [0,1].
func CombinedTrust(unslug, fear float64) float64 {
	p := unslug * fear
	if p <= 0 || math.IsNaN(p) {
		return 0
	}
	c := math.Sqrt(p)
	if c > 1 {
		return 1
	}
	return c
}

// Recommend derives the suggested action from the two primary scores.
// The cutoffs come from config alone; a missing recommendation block is
// a decision nobody made yet.
func Recommend(rc *strategycfg.Recommendation, unslug, fear float64) (contracts.Recommendation, error) {
	if rc == nil {
		return contracts.Recommendation{}, &contracts.RequiredDecisionError{Decision: "recommendation thresholds"}
	}
	rec := contracts.Recommendation{Unslug: unslug, Fear: fear}
	switch {
	case unslug < rc.RiskUnslugMax || fear < rc.RiskFearMax:
		rec.Suggested = contracts.SignalRisk
		rec.Logic = fmt.Sprintf("unslug %.3f < %.2f or fear %.3f < %.2f",
			unslug, rc.RiskUnslugMax, fear, rc.RiskFearMax)
	case unslug >= rc.BuyUnslugMin && fear >= rc.BuyFearMin:
		rec.Suggested = contracts.SignalBuy
		rec.Logic = fmt.Sprintf("unslug %.3f >= %.2f and fear %.3f >= %.2f",
			unslug, rc.BuyUnslugMin, fear, rc.BuyFearMin)
	default:
		rec.Suggested = contracts.SignalNeutral
		rec.Logic = "between risk and buy cutoffs"
	}
	return rec, nil
}

// CityToken summarizes the whole tape as a city state from the combined
// trust. Like everything else, the rule must be configured.
func CityToken(rule *strategycfg.CityRule, unslug, fear, flow float64) (contracts.CityToken, error) {
	if rule == nil {
		return contracts.CityToken{}, &contracts.RequiredDecisionError{Decision: "city state rule"}
	}
	combined := CombinedTrust(unslug, fear)
	token := contracts.CityToken{
		UnslugTrust: unslug,
		FearTrust:   fear,
		FlowTrust:   flow,
	}
	switch {
	case combined >= rule.ThrivingMin:
		token.CityState = contracts.CityThriving
	case combined >= rule.StableMin:
		token.CityState = contracts.CityStable
	default:
		token.CityState = contracts.CityDim
	}
	token.Notes = fmt.Sprintf("combined %.3f, flow %.3f", combined, flow)
	return token, nil
}
