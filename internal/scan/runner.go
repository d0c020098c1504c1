// Package scan runs one scoring cycle end to end: fetch series, score
// every organism per symbol, derive the recommendation, and persist the
// pending record for human review.
package scan

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonny/unslug/backend/internal/contracts"
	"github.com/wonny/unslug/backend/internal/gate"
	"github.com/wonny/unslug/backend/internal/organisms"
	"github.com/wonny/unslug/backend/internal/strategycfg"
	"github.com/wonny/unslug/backend/pkg/logger"
)

// Broadcaster pushes fresh records to live subscribers. Optional.
type Broadcaster interface {
	BroadcastSignal(rec *contracts.SignalRecord)
}

// Cache keeps the latest record per symbol hot for the read path. Optional.
type Cache interface {
	SetLatestSignal(ctx context.Context, rec *contracts.SignalRecord) error
}

// Options wires a Runner.
type Options struct {
	Engine      *organisms.Engine
	Config      *strategycfg.Config
	ConfigHash  string
	Source      contracts.DataSource
	Signals     contracts.SignalRepository
	Clock       contracts.Clock
	Log         *logger.Logger
	Interval    string
	Lookback    int
	Workers     int
	Broadcaster Broadcaster
	Cache       Cache
}

// Runner executes scoring cycles with a bounded worker pool. One symbol
// failing never takes down the cycle.
type Runner struct {
	opts Options
}

// NewRunner validates the wiring and returns a Runner.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Engine == nil || opts.Config == nil || opts.Source == nil || opts.Signals == nil {
		return nil, fmt.Errorf("scan runner missing required dependencies")
	}
	if opts.Clock == nil {
		opts.Clock = contracts.SystemClock{}
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Log == nil {
		opts.Log = logger.NewNop()
	}
	return &Runner{opts: opts}, nil
}

// CycleResult summarizes one run.
type CycleResult struct {
	Scored  []*contracts.SignalRecord
	Failed  map[string]error
	City    *contracts.CityToken
	CityErr error
}

// RunCycle scores all symbols and persists pending records. The returned
// error covers only cycle-level failures; per-symbol failures land in
// CycleResult.Failed.
func (r *Runner) RunCycle(ctx context.Context, symbols []string) (*CycleResult, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols to scan")
	}

	type outcome struct {
		symbol string
		rec    *contracts.SignalRecord
		err    error
	}

	jobs := make(chan string)
	results := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < r.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				rec, err := r.scoreSymbol(ctx, symbol)
				results <- outcome{symbol: symbol, rec: rec, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, s := range symbols {
			select {
			case jobs <- s:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	res := &CycleResult{Failed: make(map[string]error)}
	for out := range results {
		if out.err != nil {
			r.opts.Log.WithError(out.err).WithField("symbol", out.symbol).Error("symbol scan failed")
			res.Failed[out.symbol] = out.err
			continue
		}
		res.Scored = append(res.Scored, out.rec)
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	r.deriveCity(res)

	r.opts.Log.WithFields(map[string]interface{}{
		"scored": len(res.Scored),
		"failed": len(res.Failed),
	}).Info("scan cycle finished")

	return res, nil
}

// scoreSymbol runs the full per-symbol pipeline.
func (r *Runner) scoreSymbol(ctx context.Context, symbol string) (*contracts.SignalRecord, error) {
	series, err := r.opts.Source.FetchSeries(ctx, symbol, r.opts.Interval, r.opts.Lookback)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}

	outputs := make(map[contracts.Organism]*contracts.OrganismOutput, 3)
	for _, org := range []contracts.Organism{
		contracts.OrganismUnslug,
		contracts.OrganismFearIndex,
		contracts.OrganismMarketFlow,
	} {
		out, err := r.opts.Engine.ComputeTrust(ctx, org, symbol, series)
		if err != nil {
			return nil, fmt.Errorf("score %s/%s: %w", symbol, org, err)
		}
		outputs[org] = out
	}

	u := outputs[contracts.OrganismUnslug]
	f := outputs[contracts.OrganismFearIndex]
	flow := outputs[contracts.OrganismMarketFlow]

	rec, err := gate.Recommend(r.opts.Config.Recommendation, u.Trust, f.Trust)
	if err != nil {
		return nil, fmt.Errorf("recommend %s: %w", symbol, err)
	}

	ts := u.TS
	now := r.opts.Clock.Now()
	record := &contracts.SignalRecord{
		Symbol:        symbol,
		TS:            ts,
		UnslugScore:   u.Trust,
		FearScore:     f.Trust,
		FlowScore:     flow.Trust,
		CombinedTrust: gate.CombinedTrust(u.Trust, f.Trust),
		Signal:        rec.Suggested,
		Status:        contracts.StatusPendingReview,
		Recommendation: rec,
		Explain: map[string][]contracts.ExplainEntry{
			string(contracts.OrganismUnslug):     u.Explain,
			string(contracts.OrganismFearIndex):  f.Explain,
			string(contracts.OrganismMarketFlow): flow.Explain,
		},
		Meta: map[string]any{
			"config_hash": r.opts.ConfigHash,
			"interval":    r.opts.Interval,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if band, ok := u.Meta["band"]; ok {
		record.Meta["band"] = band
	}

	if err := r.opts.Signals.SaveSignal(ctx, record); err != nil {
		return nil, fmt.Errorf("save %s: %w", symbol, err)
	}

	if r.opts.Cache != nil {
		if err := r.opts.Cache.SetLatestSignal(ctx, record); err != nil {
			r.opts.Log.WithError(err).WithField("symbol", symbol).Warn("cache update failed")
		}
	}
	if r.opts.Broadcaster != nil {
		r.opts.Broadcaster.BroadcastSignal(record)
	}

	return record, nil
}

// deriveCity summarizes the cycle into a city token from the mean scores
// of everything scored.
func (r *Runner) deriveCity(res *CycleResult) {
	if len(res.Scored) == 0 {
		res.CityErr = fmt.Errorf("no scored symbols")
		return
	}
	var u, f, fl float64
	for _, rec := range res.Scored {
		u += rec.UnslugScore
		f += rec.FearScore
		fl += rec.FlowScore
	}
	n := float64(len(res.Scored))
	token, err := gate.CityToken(r.opts.Config.City, u/n, f/n, fl/n)
	if err != nil {
		res.CityErr = err
		return
	}
	res.City = &token
}
