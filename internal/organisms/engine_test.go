package organisms

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/wonny/unslug/backend/internal/contracts"
	"github.com/wonny/unslug/backend/internal/strategycfg"
	"github.com/wonny/unslug/backend/pkg/logger"
)

// genSeries builds a deterministic daily series with a mild oscillation
// so every factor window sees variation.
func genSeries(n int, base float64) []contracts.InputSlice {
	out := make([]contracts.InputSlice, 0, n)
	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	price := base
	for i := 0; i < n; i++ {
		move := 0.01 * math.Sin(float64(i)/7) * price
		drift := 0.0003 * price
		open := price
		close := price + move + drift
		high := math.Max(open, close) * 1.005
		low := math.Min(open, close) * 0.995
		out = append(out, contracts.InputSlice{
			Symbol:   "SPY",
			Interval: "1d",
			TS:       ts.AddDate(0, 0, i),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    close,
			Volume:   1e6 + 1e5*math.Abs(math.Sin(float64(i)/3)),
		})
		price = close
	}
	return out
}

func testConfig(t *testing.T) *strategycfg.Config {
	t.Helper()
	cfg, err := strategycfg.Parse([]byte(`
meta:
  strategy_id: test
  version: "1"
organisms:
  unslug:
    method: arithmetic
    thresholds:
      high: 0.7
      mid: 0.4
    min_history: 40
    liquidity_floor: 1000000
    band:
      anchor_window_days: 250
      hit_lookback_days: 30
  fear_index:
    method: arithmetic
    thresholds:
      high: 0.7
      mid: 0.4
    min_history: 40
  market_flow:
    method: arithmetic
    thresholds:
      high: 0.65
      mid: 0.35
    min_history: 60
`))
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestComputeTrustAllOrganisms(t *testing.T) {
	engine := NewEngine(testConfig(t), logger.NewNop())
	series := genSeries(500, 100)

	for _, org := range []contracts.Organism{
		contracts.OrganismUnslug,
		contracts.OrganismFearIndex,
		contracts.OrganismMarketFlow,
	} {
		out, err := engine.ComputeTrust(context.Background(), org, "SPY", series)
		if err != nil {
			t.Fatalf("%s: %v", org, err)
		}
		if out.Trust < 0 || out.Trust > 1 || math.IsNaN(out.Trust) {
			t.Errorf("%s trust = %v out of [0,1]", org, out.Trust)
		}
		if len(out.Explain) == 0 {
			t.Errorf("%s produced no explain entries", org)
		}
		if out.Symbol != "SPY" {
			t.Errorf("%s symbol = %q", org, out.Symbol)
		}
		if _, err := contracts.ParseSignal(string(out.Signal)); err != nil {
			t.Errorf("%s signal = %q", org, out.Signal)
		}
	}
}

func TestComputeTrustShortHistory(t *testing.T) {
	engine := NewEngine(testConfig(t), logger.NewNop())
	_, err := engine.ComputeTrust(context.Background(), contracts.OrganismUnslug, "SPY", genSeries(10, 100))
	if !errors.Is(err, contracts.ErrInsufficientHistory) {
		t.Errorf("error = %v, want ErrInsufficientHistory", err)
	}
}

func TestComputeTrustOmitsLongWindowFactors(t *testing.T) {
	engine := NewEngine(testConfig(t), logger.NewNop())
	// 60 days: enough for rebound/liquidity/consistency, not for the
	// 125- and 200-day windows
	out, err := engine.ComputeTrust(context.Background(), contracts.OrganismUnslug, "SPY", genSeries(60, 100))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range out.Explain {
		if e.Name == "distance_to_mean" || e.Name == "regime" {
			t.Errorf("factor %q should be omitted on short history", e.Name)
		}
	}
	if len(out.Explain) == 0 {
		t.Fatal("expected at least the short-window factors")
	}
}

func TestComputeTrustWeightedMeanShortHistory(t *testing.T) {
	// Weights cover the full factor set. On 60 days the long-window
	// factors sit out; the surviving weights must be renormalized, not
	// rejected for no longer summing to 1.
	cfg, err := strategycfg.Parse([]byte(`
meta:
  strategy_id: test
  version: "1"
organisms:
  unslug:
    method: weighted_mean
    weights:
      rebound: 0.30
      distance_to_mean: 0.20
      liquidity_floor: 0.10
      regime: 0.15
      consistency: 0.10
      band_position: 0.15
    thresholds:
      high: 0.7
      mid: 0.4
    min_history: 40
    liquidity_floor: 1000000
    band:
      anchor_window_days: 250
      hit_lookback_days: 30
`))
	if err != nil {
		t.Fatal(err)
	}
	engine := NewEngine(cfg, logger.NewNop())
	out, err := engine.ComputeTrust(context.Background(), contracts.OrganismUnslug, "SPY", genSeries(60, 100))
	if err != nil {
		t.Fatalf("weighted mean over surviving factors: %v", err)
	}
	if out.Trust < 0 || out.Trust > 1 || math.IsNaN(out.Trust) {
		t.Errorf("trust = %v out of [0,1]", out.Trust)
	}
	if len(out.Explain) == 0 {
		t.Fatal("expected the short-window factors to score")
	}
}

func TestComputeTrustMissingConfigBlock(t *testing.T) {
	cfg, err := strategycfg.Parse([]byte(`
meta:
  strategy_id: test
  version: "1"
organisms:
  unslug:
    method: arithmetic
    thresholds:
      high: 0.7
      mid: 0.4
    min_history: 10
`))
	if err != nil {
		t.Fatal(err)
	}
	engine := NewEngine(cfg, logger.NewNop())
	_, err = engine.ComputeTrust(context.Background(), contracts.OrganismMarketFlow, "SPY", genSeries(300, 100))
	if !contracts.IsRequiredDecision(err) {
		t.Errorf("error = %v, want RequiredDecisionError", err)
	}
}

func TestComputeTrustMissingThresholds(t *testing.T) {
	cfg, err := strategycfg.Parse([]byte(`
meta:
  strategy_id: test
  version: "1"
organisms:
  unslug:
    method: arithmetic
    min_history: 10
`))
	if err != nil {
		t.Fatal(err)
	}
	engine := NewEngine(cfg, logger.NewNop())
	_, err = engine.ComputeTrust(context.Background(), contracts.OrganismUnslug, "SPY", genSeries(300, 100))
	if !contracts.IsRequiredDecision(err) {
		t.Errorf("error = %v, want RequiredDecisionError", err)
	}
}

func TestComputeTrustCancelledContext(t *testing.T) {
	engine := NewEngine(testConfig(t), logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := engine.ComputeTrust(ctx, contracts.OrganismUnslug, "SPY", genSeries(300, 100)); err == nil {
		t.Error("expected context error")
	}
}

func TestMapSignal(t *testing.T) {
	th := strategycfg.Thresholds{High: 0.7, Mid: 0.4}
	tests := []struct {
		score    float64
		inverted bool
		want     contracts.Signal
	}{
		{0.8, false, contracts.SignalBuy},
		{0.7, false, contracts.SignalBuy},
		{0.5, false, contracts.SignalNeutral},
		{0.39, false, contracts.SignalRisk},
		{0.8, true, contracts.SignalRisk},
		{0.5, true, contracts.SignalNeutral},
		{0.2, true, contracts.SignalBuy},
	}
	for _, tt := range tests {
		got := mapSignal(tt.score, th, tt.inverted)
		if got != tt.want {
			t.Errorf("mapSignal(%v, inverted=%v) = %s, want %s", tt.score, tt.inverted, got, tt.want)
		}
	}
}

func TestFearSentimentUsesPutCallWhenPresent(t *testing.T) {
	series := genSeries(300, 100)
	// rising put/call ratio means rising fear, sentiment should be low
	for i := range series {
		series[i].Features = map[string]float64{
			FeaturePutCallRatio: 0.7 + 0.002*float64(i),
		}
	}
	engine := NewEngine(testConfig(t), logger.NewNop())
	out, err := engine.ComputeTrust(context.Background(), contracts.OrganismFearIndex, "SPY", series)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range out.Explain {
		if e.Name == "sentiment" {
			if e.Value > 0.2 {
				t.Errorf("sentiment = %v, want low with put/call at its peak", e.Value)
			}
			return
		}
	}
	t.Error("sentiment factor missing")
}
