package feed

import (
	"context"

	"github.com/wonny/unslug/backend/internal/contracts"
	"github.com/wonny/unslug/backend/internal/organisms"
	"github.com/wonny/unslug/backend/pkg/logger"
)

// EnrichedSource wraps a base DataSource and attaches the put/call ratio
// to the latest slice so the sentiment factor can use it. Scraper
// failures degrade to the plain series; sentiment then falls back to
// volume pressure.
type EnrichedSource struct {
	base    contracts.DataSource
	scraper *CboeScraper
	log     *logger.Logger
}

// NewEnrichedSource wires the wrapper.
func NewEnrichedSource(base contracts.DataSource, scraper *CboeScraper, log *logger.Logger) *EnrichedSource {
	return &EnrichedSource{base: base, scraper: scraper, log: log}
}

// FetchSeries implements contracts.DataSource.
func (e *EnrichedSource) FetchSeries(ctx context.Context, symbol, interval string, lookback int) ([]contracts.InputSlice, error) {
	series, err := e.base.FetchSeries(ctx, symbol, interval, lookback)
	if err != nil {
		return nil, err
	}
	if e.scraper == nil || len(series) == 0 {
		return series, nil
	}

	stats, err := e.scraper.FetchPutCall(ctx)
	if err != nil {
		e.log.WithError(err).Warn("put/call enrichment unavailable")
		return series, nil
	}

	last := len(series) - 1
	if series[last].Features == nil {
		series[last].Features = make(map[string]float64, 1)
	}
	series[last].Features[organisms.FeaturePutCallRatio] = stats.Total
	return series, nil
}
