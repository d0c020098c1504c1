package normalize

import "math"

// tradingDaysPerYear scales daily volatility to an annual figure.
const tradingDaysPerYear = 252

// Returns converts a close series to simple period returns. A zero or
// non-finite base yields a 0 return for that step.
func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		if prev == 0 || math.IsNaN(prev) || math.IsInf(prev, 0) {
			out = append(out, 0)
			continue
		}
		r := closes[i]/prev - 1
		if math.IsNaN(r) || math.IsInf(r, 0) {
			r = 0
		}
		out = append(out, r)
	}
	return out
}

// VWAP returns the volume-weighted typical price over the trailing window.
// Zero total volume falls back to the plain mean of typical prices.
func VWAP(highs, lows, closes, volumes []float64, window int) float64 {
	n := len(closes)
	if n == 0 || len(highs) != n || len(lows) != n || len(volumes) != n {
		return 0
	}
	start := 0
	if window > 0 && n > window {
		start = n - window
	}
	var pv, vol float64
	typ := make([]float64, 0, n-start)
	for i := start; i < n; i++ {
		tp := (highs[i] + lows[i] + closes[i]) / 3
		if math.IsNaN(tp) || math.IsInf(tp, 0) {
			continue
		}
		typ = append(typ, tp)
		if v := volumes[i]; v > 0 && !math.IsInf(v, 0) {
			pv += tp * v
			vol += v
		}
	}
	if vol == 0 {
		return Mean(typ)
	}
	return pv / vol
}

// OBV accumulates on-balance volume: volume is added on up closes and
// subtracted on down closes. The result has the same length as closes,
// starting at 0.
func OBV(closes, volumes []float64) []float64 {
	n := len(closes)
	if n == 0 || len(volumes) != n {
		return nil
	}
	out := make([]float64, n)
	for i := 1; i < n; i++ {
		v := volumes[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		switch {
		case closes[i] > closes[i-1]:
			out[i] = out[i-1] + v
		case closes[i] < closes[i-1]:
			out[i] = out[i-1] - v
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// AnnualizedVol is the standard deviation of trailing-window daily returns
// scaled to a yearly horizon.
func AnnualizedVol(closes []float64, window int) float64 {
	rets := Returns(closes)
	if len(rets) == 0 {
		return 0
	}
	if window > 0 && len(rets) > window {
		rets = rets[len(rets)-window:]
	}
	return StdDev(rets) * math.Sqrt(tradingDaysPerYear)
}

// MaxDrawdown returns the deepest peak-to-trough decline over the trailing
// window as a positive fraction in [0,1].
func MaxDrawdown(closes []float64, window int) float64 {
	if len(closes) == 0 {
		return 0
	}
	start := 0
	if window > 0 && len(closes) > window {
		start = len(closes) - window
	}
	peak, worst := math.Inf(-1), 0.0
	for _, c := range closes[start:] {
		if math.IsNaN(c) || math.IsInf(c, 0) || c <= 0 {
			continue
		}
		if c > peak {
			peak = c
		}
		if peak > 0 {
			if dd := 1 - c/peak; dd > worst {
				worst = dd
			}
		}
	}
	return Clamp01(worst)
}
