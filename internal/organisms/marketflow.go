package organisms

import (
	"math"

	"github.com/wonny/unslug/backend/internal/contracts"
	"github.com/wonny/unslug/backend/internal/normalize"
	"github.com/wonny/unslug/backend/internal/trust"
)

// MarketFlow windows, in trading days.
const (
	flowFastTurnover = 20
	flowSlowTurnover = 60
	flowBiasWindow   = 20
	flowVWAPWindow   = 60
)

// flowExtractor measures participation: is money moving in, and is the
// movement directional or churn.
type flowExtractor struct{}

func (x *flowExtractor) addFactors(series []contracts.InputSlice, b *trust.Builder, meta map[string]any) error {
	closes := contracts.Closes(series)
	volumes := contracts.Volumes(series)

	// turnover_accel: fast dollar volume against slow dollar volume
	if len(series) >= flowSlowTurnover {
		fast := avgDollarVolume(series, flowFastTurnover)
		slow := avgDollarVolume(series, flowSlowTurnover)
		value := 0.5
		if fast > 0 && slow > 0 {
			value = normalize.Logistic(3 * math.Log(fast/slow))
		}
		if err := b.AddFactor("turnover_accel", fast/math.Max(slow, 1), value); err != nil {
			return err
		}
	}

	// breadth: cumulative volume flow ranked against its own history
	if len(closes) >= 2*flowBiasWindow {
		obv := normalize.OBV(closes, volumes)
		latest := obv[len(obv)-1]
		if err := b.AddFactor("breadth", latest, normalize.PercentileRank(obv[:len(obv)-1], latest)); err != nil {
			return err
		}
	}

	// directional_bias: share of up days in the recent window
	if len(closes) >= flowBiasWindow+1 {
		up := 0
		for i := len(closes) - flowBiasWindow; i < len(closes); i++ {
			if closes[i] > closes[i-1] {
				up++
			}
		}
		frac := float64(up) / float64(flowBiasWindow)
		if err := b.AddFactor("directional_bias", frac, normalize.Clamp01(frac)); err != nil {
			return err
		}
	}

	// regime: close against the volume-weighted average price
	if len(series) >= flowVWAPWindow {
		var highs, lows []float64
		for _, sl := range series {
			highs = append(highs, sl.High)
			lows = append(lows, sl.Low)
		}
		vwap := normalize.VWAP(highs, lows, closes, volumes, flowVWAPWindow)
		if vwap > 0 {
			raw := closes[len(closes)-1] / vwap
			if err := b.AddFactor("regime", raw, normalize.Logistic(8*(raw-1))); err != nil {
				return err
			}
		}
	}

	return nil
}
