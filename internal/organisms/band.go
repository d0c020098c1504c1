package organisms

import (
	"time"

	"github.com/wonny/unslug/backend/internal/contracts"
	"github.com/wonny/unslug/backend/internal/normalize"
)

// Fibonacci retracement levels measured up from the anchor low.
const (
	fibShallow = 0.236
	fibDeep    = 0.382
)

// BandResult describes where the latest close sits relative to the
// retracement bands above the anchor low.
type BandResult struct {
	AnchorLow  float64   `json:"anchor_low"`
	AnchorTS   time.Time `json:"anchor_ts"`
	RangeHigh  float64   `json:"range_high"`
	Level236   float64   `json:"level_236"`
	Level382   float64   `json:"level_382"`
	Label      string    `json:"label"`
	Hits       int       `json:"hits"`
	// Position is the close's location in [anchor, high], clamped to [0,1].
	Position float64 `json:"position"`
}

// BandScanner locates the anchor low inside a long window and measures
// how the recent tape interacts with the retracement bands above it.
type BandScanner struct {
	anchorWindow int
	hitLookback  int
}

// NewBandScanner builds a scanner with the given windows in trading days.
func NewBandScanner(anchorWindowDays, hitLookbackDays int) *BandScanner {
	return &BandScanner{anchorWindow: anchorWindowDays, hitLookback: hitLookbackDays}
}

// Scan reports the band placement for the series, or ok=false when the
// series is too short or has no usable range.
func (s *BandScanner) Scan(series []contracts.InputSlice) (*BandResult, bool) {
	if len(series) == 0 {
		return nil, false
	}
	start := 0
	if s.anchorWindow > 0 && len(series) > s.anchorWindow {
		start = len(series) - s.anchorWindow
	}
	window := series[start:]

	anchorIdx := 0
	high := window[0].Close
	for i, sl := range window {
		if sl.Close < window[anchorIdx].Close {
			anchorIdx = i
		}
		if sl.Close > high {
			high = sl.Close
		}
	}
	anchor := window[anchorIdx].Close
	if high <= anchor {
		return nil, false
	}

	span := high - anchor
	res := &BandResult{
		AnchorLow: anchor,
		AnchorTS:  window[anchorIdx].TS,
		RangeHigh: high,
		Level236:  anchor + fibShallow*span,
		Level382:  anchor + fibDeep*span,
	}

	latest := window[len(window)-1].Close
	res.Position = normalize.Clamp01((latest - anchor) / span)
	res.Label = bandLabel(latest, res)

	// hits: closes inside the accumulation bands over the recent lookback
	lookStart := len(window) - s.hitLookback
	if lookStart < 0 {
		lookStart = 0
	}
	for _, sl := range window[lookStart:] {
		if sl.Close <= res.Level382 {
			res.Hits++
		}
	}

	return res, true
}

func bandLabel(close float64, r *BandResult) string {
	switch {
	case close < r.AnchorLow:
		return "Below 0%"
	case close <= r.Level236:
		return "0-23.6%"
	case close <= r.Level382:
		return "23.6-38.2%"
	default:
		return "Above 38.2%"
	}
}
