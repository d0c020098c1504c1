package organisms

import (
	"math"

	"github.com/wonny/unslug/backend/internal/contracts"
	"github.com/wonny/unslug/backend/internal/normalize"
	"github.com/wonny/unslug/backend/internal/strategycfg"
	"github.com/wonny/unslug/backend/internal/trust"
)

// UNSLUG factor windows, in trading days.
const (
	reboundWindow   = 20
	meanWindow      = 125
	regimeWindow    = 200
	liquidityWindow = 20
	consistencyVol  = 20
)

// unslugExtractor scores recovery potential in beaten-down symbols.
// High trust means the price sits near a durable low and has started
// turning up on acceptable liquidity.
type unslugExtractor struct {
	oc *strategycfg.OrganismConfig
}

func (x *unslugExtractor) addFactors(series []contracts.InputSlice, b *trust.Builder, meta map[string]any) error {
	closes := contracts.Closes(series)

	// rebound: latest short-horizon return ranked against its own history
	if len(closes) >= 2*reboundWindow {
		rets := windowedReturns(closes, reboundWindow)
		latest := rets[len(rets)-1]
		if err := b.AddFactor("rebound", latest, normalize.PercentileRank(rets[:len(rets)-1], latest)); err != nil {
			return err
		}
	}

	// distance_to_mean: depth below the medium-term range, deeper is
	// more unslug opportunity
	if len(closes) >= meanWindow {
		pos := normalize.RollingMinMax(closes, meanWindow)
		if err := b.AddFactor("distance_to_mean", pos, 1-pos); err != nil {
			return err
		}
	}

	// liquidity_floor: average dollar volume against the configured floor
	if x.oc.LiquidityFloor > 0 && len(series) >= liquidityWindow {
		adv := avgDollarVolume(series, liquidityWindow)
		raw := adv / x.oc.LiquidityFloor
		value := 0.0
		if raw > 0 {
			value = normalize.Logistic(2 * math.Log(raw))
		}
		if err := b.AddFactor("liquidity_floor", adv, value); err != nil {
			return err
		}
	}

	// regime: price against the long moving average
	if len(closes) >= regimeWindow {
		sma := normalize.Mean(closes[len(closes)-regimeWindow:])
		raw := closes[len(closes)-1] / sma
		if err := b.AddFactor("regime", raw, normalize.Logistic(10*(raw-1))); err != nil {
			return err
		}
	}

	// consistency: calm tape scores higher than a violent one
	if len(closes) >= 2*consistencyVol {
		vols := rollingVolSeries(closes, consistencyVol)
		latest := vols[len(vols)-1]
		rank := normalize.PercentileRank(vols[:len(vols)-1], latest)
		if err := b.AddFactor("consistency", latest, 1-rank); err != nil {
			return err
		}
	}

	// band_position: retracement band placement above the anchor low
	if x.oc.Band != nil {
		scanner := NewBandScanner(x.oc.Band.AnchorWindowDays, x.oc.Band.HitLookbackDays)
		if res, ok := scanner.Scan(series); ok {
			meta["band"] = res
			if err := b.AddFactor("band_position", res.Position, 1-res.Position); err != nil {
				return err
			}
		}
	}

	return nil
}

// windowedReturns gives the w-day simple return at every index where a
// full window exists.
func windowedReturns(closes []float64, w int) []float64 {
	out := make([]float64, 0, len(closes)-w)
	for i := w; i < len(closes); i++ {
		base := closes[i-w]
		if base <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, closes[i]/base-1)
	}
	return out
}

// rollingVolSeries computes the trailing w-day annualized volatility at
// each index with enough history.
func rollingVolSeries(closes []float64, w int) []float64 {
	out := make([]float64, 0, len(closes))
	for i := w + 1; i <= len(closes); i++ {
		out = append(out, normalize.AnnualizedVol(closes[:i], w))
	}
	return out
}

// avgDollarVolume is the mean of close*volume over the trailing window.
func avgDollarVolume(series []contracts.InputSlice, w int) float64 {
	start := 0
	if len(series) > w {
		start = len(series) - w
	}
	sum, n := 0.0, 0
	for _, s := range series[start:] {
		sum += s.Close * s.Volume
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
