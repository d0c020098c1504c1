package contracts

import (
	"math"
	"sort"
	"time"
)

// InputSlice is one sampled observation of an instrument. A contiguous
// sequence ordered oldest→newest is the unit of computation for every
// organism.
type InputSlice struct {
	Symbol   string    `json:"symbol"`
	Interval string    `json:"interval"` // "1d", "1h", "5m"
	TS       time.Time `json:"ts"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
	AdjClose *float64  `json:"adj_close,omitempty"`

	// Optional precomputed features (rsi, vwap_deviation, rolling_vol,
	// liquidity_ratio, sentiment). Extractors treat missing keys as
	// absent, never as zero.
	Features map[string]float64 `json:"features,omitempty"`
}

// Validate checks the OHLCV invariant: low ≤ open,close ≤ high and
// volume ≥ 0, with all fields finite. A slice failing this never reaches
// factor extraction.
func (s *InputSlice) Validate() error {
	for _, v := range []float64{s.Open, s.High, s.Low, s.Close, s.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &InvalidSliceError{Symbol: s.Symbol, TS: s.TS, Reason: "non-finite value"}
		}
	}
	if s.Low > s.High {
		return &InvalidSliceError{Symbol: s.Symbol, TS: s.TS, Reason: "low above high"}
	}
	if s.Open < s.Low || s.Open > s.High {
		return &InvalidSliceError{Symbol: s.Symbol, TS: s.TS, Reason: "open outside low/high range"}
	}
	if s.Close < s.Low || s.Close > s.High {
		return &InvalidSliceError{Symbol: s.Symbol, TS: s.TS, Reason: "close outside low/high range"}
	}
	if s.Volume < 0 {
		return &InvalidSliceError{Symbol: s.Symbol, TS: s.TS, Reason: "negative volume"}
	}
	return nil
}

// CleanSeries sorts a series oldest→newest and drops slices violating the
// OHLCV invariant. The dropped slice errors are returned so callers can
// log them; computation continues with whatever history remains.
func CleanSeries(series []InputSlice) ([]InputSlice, []error) {
	valid := make([]InputSlice, 0, len(series))
	var dropped []error

	for i := range series {
		if err := series[i].Validate(); err != nil {
			dropped = append(dropped, err)
			continue
		}
		valid = append(valid, series[i])
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].TS.Before(valid[j].TS)
	})

	return valid, dropped
}

// Closes extracts the close column from a series.
func Closes(series []InputSlice) []float64 {
	out := make([]float64, len(series))
	for i := range series {
		out[i] = series[i].Close
	}
	return out
}

// Volumes extracts the volume column from a series.
func Volumes(series []InputSlice) []float64 {
	out := make([]float64, len(series))
	for i := range series {
		out[i] = series[i].Volume
	}
	return out
}
