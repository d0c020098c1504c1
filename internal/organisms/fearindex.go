package organisms

import (
	"math"

	"github.com/wonny/unslug/backend/internal/contracts"
	"github.com/wonny/unslug/backend/internal/normalize"
	"github.com/wonny/unslug/backend/internal/trust"
)

// FearIndex windows, in trading days.
const (
	fearMomentumSMA  = 125
	fearStrengthWin  = 252
	fearVolWindow    = 20
	fearBreadthDelta = 20
	fearDrawdownWin  = 90
	fearGapWindow    = 20
	fearGapThreshold = 0.02
)

// FeaturePutCallRatio is the optional per-slice feature carrying the
// put/call ratio sourced from the options feed.
const FeaturePutCallRatio = "put_call_ratio"

// fearExtractor reads the psychology of the tape. Every component is
// oriented so that a high value means greed or calm and a low value means
// fear; the engine inverts the signal mapping so extreme greed surfaces
// as RISK.
type fearExtractor struct{}

func (x *fearExtractor) addFactors(series []contracts.InputSlice, b *trust.Builder, meta map[string]any) error {
	closes := contracts.Closes(series)
	volumes := contracts.Volumes(series)

	// momentum: price over its medium moving average, ranked historically
	if len(closes) >= 2*fearMomentumSMA {
		ratios := smaRatioSeries(closes, fearMomentumSMA)
		latest := ratios[len(ratios)-1]
		if err := b.AddFactor("momentum", latest, normalize.PercentileRank(ratios[:len(ratios)-1], latest)); err != nil {
			return err
		}
	}

	// strength: position inside the 52-week range
	if len(closes) >= fearStrengthWin {
		pos := normalize.RollingMinMax(closes, fearStrengthWin)
		if err := b.AddFactor("strength", pos, pos); err != nil {
			return err
		}
	}

	// volatility: calm tape reads as greed, violent tape as fear
	if len(closes) >= 2*fearVolWindow {
		vols := rollingVolSeries(closes, fearVolWindow)
		latest := vols[len(vols)-1]
		rank := normalize.PercentileRank(vols[:len(vols)-1], latest)
		if err := b.AddFactor("volatility", latest, 1-rank); err != nil {
			return err
		}
	}

	// breadth: on-balance volume delta ranked against history
	if len(closes) >= 2*fearBreadthDelta {
		obv := normalize.OBV(closes, volumes)
		deltas := make([]float64, 0, len(obv)-fearBreadthDelta)
		for i := fearBreadthDelta; i < len(obv); i++ {
			deltas = append(deltas, obv[i]-obv[i-fearBreadthDelta])
		}
		latest := deltas[len(deltas)-1]
		if err := b.AddFactor("breadth", latest, normalize.PercentileRank(deltas[:len(deltas)-1], latest)); err != nil {
			return err
		}
	}

	// drawdown: proximity to the recent peak
	if len(closes) >= fearDrawdownWin {
		dd := normalize.MaxDrawdown(closes, fearDrawdownWin)
		if err := b.AddFactor("drawdown", dd, 1-dd); err != nil {
			return err
		}
	}

	// gap_frequency: overnight dislocations signal stress
	if len(series) >= fearGapWindow+1 {
		gaps := 0
		recent := series[len(series)-fearGapWindow:]
		for i, sl := range recent {
			var prev contracts.InputSlice
			if i == 0 {
				prev = series[len(series)-fearGapWindow-1]
			} else {
				prev = recent[i-1]
			}
			if prev.Close > 0 && math.Abs(sl.Open/prev.Close-1) > fearGapThreshold {
				gaps++
			}
		}
		frac := float64(gaps) / float64(fearGapWindow)
		if err := b.AddFactor("gap_frequency", frac, 1-normalize.Clamp01(frac)); err != nil {
			return err
		}
	}

	// sentiment: put/call ratio when the feed supplies it, volume
	// pressure otherwise
	if pcr, ok := putCallSeries(series); ok {
		latest := pcr[len(pcr)-1]
		rank := normalize.PercentileRank(pcr[:len(pcr)-1], latest)
		if err := b.AddFactor("sentiment", latest, 1-rank); err != nil {
			return err
		}
	} else if len(volumes) >= 2*fearBreadthDelta {
		latest := volumes[len(volumes)-1]
		rank := normalize.PercentileRank(volumes[:len(volumes)-1], latest)
		if err := b.AddFactor("sentiment", latest, 1-rank); err != nil {
			return err
		}
	}

	return nil
}

// smaRatioSeries is close divided by its trailing w-day average, at each
// index with a full window.
func smaRatioSeries(closes []float64, w int) []float64 {
	out := make([]float64, 0, len(closes)-w+1)
	for i := w; i <= len(closes); i++ {
		sma := normalize.Mean(closes[i-w : i])
		if sma <= 0 {
			out = append(out, 1)
			continue
		}
		out = append(out, closes[i-1]/sma)
	}
	return out
}

// putCallSeries collects the put/call feature where present. It needs at
// least a handful of observations to rank against.
func putCallSeries(series []contracts.InputSlice) ([]float64, bool) {
	out := make([]float64, 0, len(series))
	for _, sl := range series {
		if v, ok := sl.Features[FeaturePutCallRatio]; ok && !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	if len(out) < 5 {
		return nil, false
	}
	return out, true
}
