package scan

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/wonny/unslug/backend/internal/contracts"
	"github.com/wonny/unslug/backend/internal/organisms"
	"github.com/wonny/unslug/backend/internal/strategycfg"
	"github.com/wonny/unslug/backend/pkg/logger"
)

const testStrategyYAML = `
meta:
  strategy_id: test
  version: "1"
organisms:
  unslug:
    method: arithmetic
    thresholds: {high: 0.7, mid: 0.4}
    min_history: 40
  fear_index:
    method: arithmetic
    thresholds: {high: 0.7, mid: 0.4}
    min_history: 40
  market_flow:
    method: arithmetic
    thresholds: {high: 0.65, mid: 0.35}
    min_history: 60
recommendation:
  buy_unslug_min: 0.6
  buy_fear_min: 0.5
  risk_unslug_max: 0.4
  risk_fear_max: 0.3
city:
  thriving_min: 0.65
  stable_min: 0.45
`

type fakeSource struct {
	mu     sync.Mutex
	fail   map[string]error
	series map[string][]contracts.InputSlice
	calls  int
}

func (s *fakeSource) FetchSeries(ctx context.Context, symbol, interval string, lookback int) ([]contracts.InputSlice, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if err, ok := s.fail[symbol]; ok {
		return nil, err
	}
	return s.series[symbol], nil
}

type memSignals struct {
	mu     sync.Mutex
	nextID int64
	recs   map[int64]*contracts.SignalRecord
}

func newMemSignals() *memSignals {
	return &memSignals{recs: make(map[int64]*contracts.SignalRecord)}
}

func (m *memSignals) SaveSignal(ctx context.Context, rec *contracts.SignalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec.ID = m.nextID
	cp := *rec
	m.recs[rec.ID] = &cp
	return nil
}

func (m *memSignals) LatestBySymbol(ctx context.Context, symbol string) (*contracts.SignalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recs {
		if r.Symbol == symbol {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memSignals) ListLatest(ctx context.Context, n int) ([]contracts.SignalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []contracts.SignalRecord{}
	for _, r := range m.recs {
		out = append(out, *r)
	}
	return out, nil
}

func (m *memSignals) ApproveSignal(ctx context.Context, signalID int64, status contracts.Status) (*contracts.SignalRecord, bool, error) {
	return nil, false, fmt.Errorf("not used in scan tests")
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	recs []*contracts.SignalRecord
}

func (b *recordingBroadcaster) BroadcastSignal(rec *contracts.SignalRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recs = append(b.recs, rec)
}

func genSeries(n int, base float64) []contracts.InputSlice {
	out := make([]contracts.InputSlice, 0, n)
	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	price := base
	for i := 0; i < n; i++ {
		move := 0.01*math.Sin(float64(i)/7)*price + 0.0003*price
		open := price
		close := price + move
		out = append(out, contracts.InputSlice{
			Symbol: "X", Interval: "1d", TS: ts.AddDate(0, 0, i),
			Open: open,
			High: math.Max(open, close) * 1.005,
			Low:  math.Min(open, close) * 0.995,
			Close: close, Volume: 1e6,
		})
		price = close
	}
	return out
}

func newTestRunner(t *testing.T, source contracts.DataSource, signals contracts.SignalRepository, b Broadcaster) *Runner {
	t.Helper()
	cfg, err := strategycfg.Parse([]byte(testStrategyYAML))
	if err != nil {
		t.Fatal(err)
	}
	hash, err := strategycfg.Hash(cfg)
	if err != nil {
		t.Fatal(err)
	}
	runner, err := NewRunner(Options{
		Engine:      organisms.NewEngine(cfg, logger.NewNop()),
		Config:      cfg,
		ConfigHash:  hash,
		Source:      source,
		Signals:     signals,
		Log:         logger.NewNop(),
		Interval:    "1d",
		Lookback:    500,
		Workers:     3,
		Broadcaster: b,
	})
	if err != nil {
		t.Fatal(err)
	}
	return runner
}

func TestRunCycleScoresAllSymbols(t *testing.T) {
	symbols := []string{"SPY", "QQQ", "IWM"}
	source := &fakeSource{series: map[string][]contracts.InputSlice{}}
	for i, s := range symbols {
		source.series[s] = genSeries(400, 100+float64(i)*10)
	}
	signals := newMemSignals()
	bcast := &recordingBroadcaster{}
	runner := newTestRunner(t, source, signals, bcast)

	res, err := runner.RunCycle(context.Background(), symbols)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Scored) != 3 || len(res.Failed) != 0 {
		t.Fatalf("scored=%d failed=%v", len(res.Scored), res.Failed)
	}
	for _, rec := range res.Scored {
		if rec.Status != contracts.StatusPendingReview {
			t.Errorf("%s status = %s, want PENDING_REVIEW", rec.Symbol, rec.Status)
		}
		if rec.Meta["config_hash"] == "" {
			t.Errorf("%s missing config hash", rec.Symbol)
		}
		if rec.CombinedTrust < 0 || rec.CombinedTrust > 1 {
			t.Errorf("%s combined trust = %v", rec.Symbol, rec.CombinedTrust)
		}
		if len(rec.Explain) != 3 {
			t.Errorf("%s explain organisms = %d, want 3", rec.Symbol, len(rec.Explain))
		}
	}
	if len(signals.recs) != 3 {
		t.Errorf("persisted records = %d, want 3", len(signals.recs))
	}
	if len(bcast.recs) != 3 {
		t.Errorf("broadcasts = %d, want 3", len(bcast.recs))
	}
	if res.City == nil {
		t.Fatalf("city token missing: %v", res.CityErr)
	}
}

func TestRunCycleIsolatesSymbolFailures(t *testing.T) {
	source := &fakeSource{
		series: map[string][]contracts.InputSlice{
			"SPY": genSeries(400, 100),
			"QQQ": genSeries(5, 100), // too short
		},
		fail: map[string]error{"BAD": fmt.Errorf("feed down")},
	}
	signals := newMemSignals()
	runner := newTestRunner(t, source, signals, nil)

	res, err := runner.RunCycle(context.Background(), []string{"SPY", "QQQ", "BAD"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Scored) != 1 {
		t.Errorf("scored = %d, want 1", len(res.Scored))
	}
	if len(res.Failed) != 2 {
		t.Errorf("failed = %v, want QQQ and BAD", res.Failed)
	}
	if _, ok := res.Failed["BAD"]; !ok {
		t.Error("BAD should have failed on fetch")
	}
	if _, ok := res.Failed["QQQ"]; !ok {
		t.Error("QQQ should have failed on history")
	}
}

func TestRunCycleAssignsIDsAndKeepsHistory(t *testing.T) {
	source := &fakeSource{series: map[string][]contracts.InputSlice{"SPY": genSeries(400, 100)}}
	signals := newMemSignals()
	runner := newTestRunner(t, source, signals, nil)

	res1, err := runner.RunCycle(context.Background(), []string{"SPY"})
	if err != nil {
		t.Fatal(err)
	}
	if res1.Scored[0].ID == 0 {
		t.Error("record ID must be assigned on save")
	}
	if _, err := runner.RunCycle(context.Background(), []string{"SPY"}); err != nil {
		t.Fatal(err)
	}
	// every cycle appends a fresh pending record; decided history stays
	if len(signals.recs) != 2 {
		t.Errorf("records = %d, want 2", len(signals.recs))
	}
}

func TestRunCycleEmptySymbols(t *testing.T) {
	runner := newTestRunner(t, &fakeSource{}, newMemSignals(), nil)
	if _, err := runner.RunCycle(context.Background(), nil); err == nil {
		t.Error("expected error for empty symbol list")
	}
}

func TestRunCycleCancelledContext(t *testing.T) {
	source := &fakeSource{series: map[string][]contracts.InputSlice{"SPY": genSeries(400, 100)}}
	runner := newTestRunner(t, source, newMemSignals(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := runner.RunCycle(ctx, []string{"SPY"}); err == nil {
		t.Error("expected context error")
	}
}
