// Package explain turns the factors behind a trust score into a ranked,
// human-reviewable breakdown for the approval workflow.
package explain

import (
	"math"
	"sort"

	"github.com/wonny/unslug/backend/internal/contracts"
)

// DefaultEpsilon is the half-width of the neutral band around 0.5.
const DefaultEpsilon = 0.05

// Entries classifies each factor by its pull on the score and sorts the
// result by distance from neutral, strongest influence first. The sort is
// stable, so tied factors keep their insertion order. epsilon <= 0 selects
// DefaultEpsilon.
func Entries(factors []contracts.Factor, epsilon float64) []contracts.ExplainEntry {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	out := make([]contracts.ExplainEntry, 0, len(factors))
	for _, f := range factors {
		out = append(out, contracts.ExplainEntry{
			Name:         f.Name,
			Value:        f.Value,
			Contribution: classify(f.Value, epsilon),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Value-0.5) > math.Abs(out[j].Value-0.5)
	})
	return out
}

func classify(value, epsilon float64) contracts.Contribution {
	switch {
	case value > 0.5+epsilon:
		return contracts.IncreasesTrust
	case value < 0.5-epsilon:
		return contracts.DecreasesTrust
	default:
		return contracts.NeutralTrust
	}
}
