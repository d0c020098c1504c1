// Package organisms implements the three scoring organisms: UNSLUG for
// depressed-price recovery, FearIndex for market psychology, and
// MarketFlow for participation and direction. Each one turns a cleaned
// price series into bounded factors, aggregates them into a trust score,
// and maps the score onto a BUY/NEUTRAL/RISK signal using configured
// thresholds only.
package organisms

import (
	"context"
	"fmt"

	"github.com/wonny/unslug/backend/internal/contracts"
	"github.com/wonny/unslug/backend/internal/explain"
	"github.com/wonny/unslug/backend/internal/strategycfg"
	"github.com/wonny/unslug/backend/internal/trust"
	"github.com/wonny/unslug/backend/pkg/logger"
)

// Engine dispatches scoring requests to the per-organism extractors.
type Engine struct {
	cfg *strategycfg.Config
	log *logger.Logger
}

// NewEngine creates an Engine bound to one strategy config revision.
func NewEngine(cfg *strategycfg.Config, log *logger.Logger) *Engine {
	return &Engine{cfg: cfg, log: log}
}

// extractor adds an organism's factors to the builder and may stash
// organism-specific detail into meta.
type extractor interface {
	addFactors(series []contracts.InputSlice, b *trust.Builder, meta map[string]any) error
}

// ComputeTrust scores one symbol's series with one organism. Invalid
// slices are dropped, not repaired; factors whose window exceeds the
// available history are omitted rather than guessed.
func (e *Engine) ComputeTrust(ctx context.Context, org contracts.Organism, symbol string, series []contracts.InputSlice) (*contracts.OrganismOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	oc, err := e.cfg.Organism(org)
	if err != nil {
		return nil, err
	}

	clean, dropped := contracts.CleanSeries(series)
	if len(dropped) > 0 {
		e.log.WithFields(map[string]interface{}{
			"symbol":   symbol,
			"organism": string(org),
			"dropped":  len(dropped),
		}).Warn("dropped invalid slices")
	}
	if len(clean) < oc.MinHistory {
		return nil, fmt.Errorf("%s: %d slices, need %d: %w",
			symbol, len(clean), oc.MinHistory, contracts.ErrInsufficientHistory)
	}

	method, err := trust.ParseMethod(oc.Method)
	if err != nil {
		return nil, err
	}

	var ext extractor
	inverted := false
	switch org {
	case contracts.OrganismUnslug:
		ext = &unslugExtractor{oc: oc}
	case contracts.OrganismFearIndex:
		// high psychology trust means greed; extreme greed is the risk
		ext = &fearExtractor{}
		inverted = true
	case contracts.OrganismMarketFlow:
		ext = &flowExtractor{}
	default:
		return nil, fmt.Errorf("unknown organism %q", org)
	}

	meta := map[string]any{"method": oc.Method}
	b := trust.NewBuilder()
	if err := ext.addFactors(clean, b, meta); err != nil {
		return nil, err
	}

	score, err := b.Compute(method, trust.Options{
		Weights:   oc.Weights,
		Cap:       oc.Cap,
		Steepness: oc.Steepness,
		MinWeight: oc.MinWeight,
	})
	if err != nil {
		return nil, err
	}

	th, err := oc.SignalThresholds()
	if err != nil {
		return nil, err
	}
	signal := mapSignal(score, th, inverted)

	factors := b.Factors()
	meta["factor_count"] = len(factors)
	meta["dropped_slices"] = len(dropped)

	out := &contracts.OrganismOutput{
		Organism: org,
		Symbol:   symbol,
		TS:       clean[len(clean)-1].TS,
		Signal:   signal,
		Trust:    score,
		Explain:  explain.Entries(factors, 0),
		Meta:     meta,
	}

	e.log.WithFields(map[string]interface{}{
		"symbol":   symbol,
		"organism": string(org),
		"trust":    score,
		"signal":   string(signal),
	}).Debug("organism scored")

	return out, nil
}

// mapSignal places a trust score into a signal zone. The inverted form
// is for organisms whose high score marks danger instead of opportunity.
func mapSignal(score float64, th strategycfg.Thresholds, inverted bool) contracts.Signal {
	var strong, weak = contracts.SignalBuy, contracts.SignalRisk
	if inverted {
		strong, weak = contracts.SignalRisk, contracts.SignalBuy
	}
	switch {
	case score >= th.High:
		return strong
	case score < th.Mid:
		return weak
	default:
		return contracts.SignalNeutral
	}
}
