// Package trust aggregates normalized factor values in [0,1] into a single
// trust score. All aggregators are monotone non-decreasing in every input
// and keep their output inside [0,1].
package trust

import (
	"fmt"
	"math"

	"github.com/wonny/unslug/backend/internal/contracts"
)

// Method names an aggregation strategy selectable from strategy config.
type Method string

const (
	MethodArithmetic    Method = "arithmetic"
	MethodGeometric     Method = "geometric"
	MethodHarmonic      Method = "harmonic"
	MethodCappedMean    Method = "capped_mean"
	MethodWeightedMean  Method = "weighted_mean"
	MethodLogisticBlend Method = "logistic_blend"
	MethodMinMeanHybrid Method = "min_mean_hybrid"
)

// ParseMethod validates a config string against the known methods.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodArithmetic, MethodGeometric, MethodHarmonic, MethodCappedMean,
		MethodWeightedMean, MethodLogisticBlend, MethodMinMeanHybrid:
		return Method(s), nil
	}
	return "", fmt.Errorf("unknown aggregation method %q", s)
}

// weightTolerance is how far the weight sum may drift from 1 before the
// weight set is rejected.
const weightTolerance = 1e-6

// Arithmetic is the plain mean of the factor values.
func Arithmetic(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, contracts.ErrInsufficientFactors
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return clamp(sum / float64(len(values))), nil
}

// Geometric is the nth root of the product. Any zero factor collapses the
// score to exactly zero; an all-ones set yields exactly one.
func Geometric(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, contracts.ErrInsufficientFactors
	}
	logSum := 0.0
	for _, v := range values {
		if v == 0 {
			return 0, nil
		}
		logSum += math.Log(v)
	}
	return clamp(math.Exp(logSum / float64(len(values)))), nil
}

// Harmonic is the harmonic mean, the most pessimistic of the classical
// means. A zero factor collapses the score to zero.
func Harmonic(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, contracts.ErrInsufficientFactors
	}
	recip := 0.0
	for _, v := range values {
		if v == 0 {
			return 0, nil
		}
		recip += 1 / v
	}
	return clamp(float64(len(values)) / recip), nil
}

// CappedMean is the arithmetic mean clipped at a ceiling, so an organism
// never signals full conviction no matter how strong its factors look.
func CappedMean(values []float64, cap float64) (float64, error) {
	mean, err := Arithmetic(values)
	if err != nil {
		return 0, err
	}
	if cap <= 0 {
		cap = defaultCap
	}
	return clamp(math.Min(mean, cap)), nil
}

// defaultCap leaves the top 5% of the trust range unreachable.
const defaultCap = 0.95

// WeightedMean combines values with explicit weights. Weights must be
// non-negative, match the value count, and sum to 1 within tolerance.
func WeightedMean(values, weights []float64) (float64, error) {
	if len(values) == 0 {
		return 0, contracts.ErrInsufficientFactors
	}
	if len(weights) != len(values) {
		return 0, &contracts.InvalidWeightsError{
			Sum:     0,
			Message: fmt.Sprintf("%d weights for %d factors", len(weights), len(values)),
		}
	}
	sum := 0.0
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return 0, &contracts.InvalidWeightsError{Sum: sum, Message: "weights must be finite and non-negative"}
		}
		sum += w
	}
	if math.Abs(sum-1) > weightTolerance {
		return 0, &contracts.InvalidWeightsError{Sum: sum, Message: "weights must sum to 1"}
	}
	acc := 0.0
	for i, v := range values {
		acc += v * weights[i]
	}
	return clamp(acc), nil
}

// LogisticBlend recenters the arithmetic mean around 0.5 and pushes it
// through a steep logistic curve, spreading mid-range scores apart.
func LogisticBlend(values []float64, steepness float64) (float64, error) {
	mean, err := Arithmetic(values)
	if err != nil {
		return 0, err
	}
	if steepness <= 0 {
		steepness = defaultSteepness
	}
	return clamp(1 / (1 + math.Exp(-steepness*(mean-0.5)))), nil
}

// defaultSteepness matches the curve the blend was tuned with.
const defaultSteepness = 5

// MinMeanHybrid interpolates between the weakest factor and the mean,
// with minWeight controlling how much the weakest factor dominates.
func MinMeanHybrid(values []float64, minWeight float64) (float64, error) {
	mean, err := Arithmetic(values)
	if err != nil {
		return 0, err
	}
	lo := values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
	}
	w := minWeight
	if w < 0 {
		w = 0
	}
	if w > 1 {
		w = 1
	}
	return clamp(w*lo + (1-w)*mean), nil
}

// clamp guards against float drift at the boundaries only. Aggregators
// never receive out-of-range factors; the builder rejects those upstream.
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
