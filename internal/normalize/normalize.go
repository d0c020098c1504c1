// Package normalize provides the pure scoring primitives shared by all
// factor extractors. Every function is total (never panics, never returns
// NaN/Inf) and monotone in its primary input: raising the latest raw value
// never lowers the normalized output. Downstream aggregation relies on
// both guarantees.
package normalize

import "math"

// stdEpsilon treats a window as constant when its standard deviation is
// below this, returning the neutral midpoint instead of ±Inf.
const stdEpsilon = 1e-12

// Clamp01 bounds v to [0,1], mapping non-finite input to the midpoint.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Logistic is the monotone squashing combinator applied to unbounded
// transforms before their result is treated as a factor value.
func Logistic(x float64) float64 {
	if math.IsNaN(x) {
		return 0.5
	}
	// exp overflows well before ±709; the limit values are exact anyway
	if x > 100 {
		return 1
	}
	if x < -100 {
		return 0
	}
	return 1.0 / (1.0 + math.Exp(-x))
}

// Mean returns the arithmetic mean of values, ignoring non-finite entries.
func Mean(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// StdDev returns the population standard deviation of values.
func StdDev(values []float64) float64 {
	m := Mean(values)
	sum, n := 0.0, 0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		d := v - m
		sum += d * d
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

// ZScore standardizes the latest value against the mean and standard
// deviation of the whole window. A constant window returns 0 rather
// than ±Inf.
func ZScore(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sd := StdDev(values)
	if sd < stdEpsilon {
		return 0
	}
	z := (values[len(values)-1] - Mean(values)) / sd
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return 0
	}
	return z
}

// ZScoreNorm is ZScore passed through the logistic combinator, so a
// constant series lands on the neutral midpoint 0.5 and the result always
// honors the [0,1] factor contract.
func ZScoreNorm(values []float64) float64 {
	return Logistic(ZScore(values))
}

// PercentileRank returns the rank of latest within the historical window,
// in [0,1]. Ties resolve to the average rank. An empty window returns the
// neutral midpoint.
func PercentileRank(values []float64, latest float64) float64 {
	if math.IsNaN(latest) {
		return 0.5
	}
	below, equal, n := 0, 0, 0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		n++
		switch {
		case v < latest:
			below++
		case v == latest:
			equal++
		}
	}
	if n == 0 {
		return 0.5
	}
	// average rank over the tied block
	rank := float64(below) + (float64(equal)+1)/2
	return Clamp01(rank / float64(n))
}

// RollingMinMax rescales the latest value linearly against the trailing
// window's min and max. A flat window (min == max) returns 0.5.
func RollingMinMax(values []float64, window int) float64 {
	if len(values) == 0 {
		return 0.5
	}
	start := 0
	if window > 0 && len(values) > window {
		start = len(values) - window
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values[start:] {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) || hi-lo < stdEpsilon {
		return 0.5
	}
	return Clamp01((values[len(values)-1] - lo) / (hi - lo))
}
