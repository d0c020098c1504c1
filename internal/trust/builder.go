package trust

import (
	"fmt"
	"math"

	"github.com/wonny/unslug/backend/internal/contracts"
)

// Options carries the per-method tuning knobs. Zero values select the
// defaults; Weights is only consulted by MethodWeightedMean.
type Options struct {
	// Weights maps factor name to weight for the weighted mean.
	Weights map[string]float64
	// Cap is the capped mean's ceiling.
	Cap float64
	// Steepness shapes the logistic blend curve.
	Steepness float64
	// MinWeight is the min/mean hybrid's pull toward the weakest factor.
	MinWeight float64
}

// Builder accumulates named factors and computes a trust score once.
// It rejects out-of-range factors at insert time instead of clamping,
// keeps insertion order for explanations, and refuses further mutation
// after Compute.
type Builder struct {
	factors   []contracts.Factor
	seen      map[string]struct{}
	finalized bool
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{seen: make(map[string]struct{})}
}

// AddFactor records a factor. The normalized value must be a finite number
// in [0,1]; raw is kept for explanations only and is unconstrained.
func (b *Builder) AddFactor(name string, raw, value float64) error {
	if b.finalized {
		return contracts.ErrBuilderFinalized
	}
	if name == "" {
		return &contracts.ValidationError{Field: "name", Message: "factor name must not be empty"}
	}
	if _, dup := b.seen[name]; dup {
		return &contracts.ValidationError{Field: name, Message: "duplicate factor name"}
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 || value > 1 {
		return &contracts.ValidationError{
			Field:   name,
			Message: fmt.Sprintf("factor value %v outside [0,1]", value),
		}
	}
	b.seen[name] = struct{}{}
	b.factors = append(b.factors, contracts.Factor{Name: name, Raw: raw, Value: value})
	return nil
}

// Len reports how many factors have been added.
func (b *Builder) Len() int {
	return len(b.factors)
}

// Factors returns the accumulated factors in insertion order. The slice
// is a copy; callers cannot mutate the builder through it.
func (b *Builder) Factors() []contracts.Factor {
	out := make([]contracts.Factor, len(b.factors))
	copy(out, b.factors)
	return out
}

// Compute finalizes the builder and aggregates the factors with the given
// method. An empty builder fails with ErrInsufficientFactors; any later
// AddFactor or Compute fails with ErrBuilderFinalized.
func (b *Builder) Compute(method Method, opts Options) (float64, error) {
	if b.finalized {
		return 0, contracts.ErrBuilderFinalized
	}
	if len(b.factors) == 0 {
		return 0, contracts.ErrInsufficientFactors
	}
	b.finalized = true

	values := make([]float64, len(b.factors))
	for i, f := range b.factors {
		values[i] = f.Value
	}

	switch method {
	case MethodArithmetic:
		return Arithmetic(values)
	case MethodGeometric:
		return Geometric(values)
	case MethodHarmonic:
		return Harmonic(values)
	case MethodCappedMean:
		return CappedMean(values, opts.Cap)
	case MethodWeightedMean:
		weights := make([]float64, len(b.factors))
		sum := 0.0
		for i, f := range b.factors {
			w, ok := opts.Weights[f.Name]
			if !ok {
				return 0, &contracts.InvalidWeightsError{
					Sum:     0,
					Message: fmt.Sprintf("no weight for factor %q", f.Name),
				}
			}
			if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				return 0, &contracts.InvalidWeightsError{
					Sum:     sum,
					Message: fmt.Sprintf("weight for factor %q must be finite and non-negative", f.Name),
				}
			}
			weights[i] = w
			sum += w
		}
		// Weights are configured for the full factor set. When some
		// factors sat out this run the survivors' weights no longer sum
		// to 1, so renormalize over what is present.
		if sum <= 0 {
			return 0, &contracts.InvalidWeightsError{Sum: sum, Message: "weights must have a positive sum"}
		}
		for i := range weights {
			weights[i] /= sum
		}
		return WeightedMean(values, weights)
	case MethodLogisticBlend:
		return LogisticBlend(values, opts.Steepness)
	case MethodMinMeanHybrid:
		return MinMeanHybrid(values, opts.MinWeight)
	default:
		return 0, fmt.Errorf("unknown aggregation method %q", method)
	}
}
