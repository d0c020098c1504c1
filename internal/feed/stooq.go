// Package feed pulls market data from the upstream providers: daily OHLCV
// series from Stooq and the put/call ratio from the Cboe statistics page.
package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/unslug/backend/internal/contracts"
	"github.com/wonny/unslug/backend/pkg/httputil"
	"github.com/wonny/unslug/backend/pkg/logger"
)

// StooqSource implements contracts.DataSource over the Stooq daily CSV
// endpoint.
type StooqSource struct {
	client  *httputil.Client
	baseURL string
	log     *logger.Logger
}

// NewStooqSource creates the source.
func NewStooqSource(client *httputil.Client, baseURL string, log *logger.Logger) *StooqSource {
	return &StooqSource{client: client, baseURL: strings.TrimRight(baseURL, "/"), log: log}
}

// FetchSeries downloads and parses the daily series, returning the last
// lookback rows oldest first. Rows that fail the OHLCV invariant are
// dropped by the caller, not here; rows that fail to parse at all are
// skipped with a warning.
func (s *StooqSource) FetchSeries(ctx context.Context, symbol, interval string, lookback int) ([]contracts.InputSlice, error) {
	iv, err := stooqInterval(interval)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/q/d/l/?s=%s&i=%s", s.baseURL, stooqSymbol(symbol), iv)
	body, err := s.client.GetBody(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("stooq fetch %s: %w", symbol, err)
	}

	series, err := parseStooqCSV(symbol, interval, body, s.log)
	if err != nil {
		return nil, fmt.Errorf("stooq parse %s: %w", symbol, err)
	}
	if lookback > 0 && len(series) > lookback {
		series = series[len(series)-lookback:]
	}
	return series, nil
}

// stooqSymbol maps a plain US ticker to Stooq's naming. Symbols already
// carrying a market suffix pass through.
func stooqSymbol(symbol string) string {
	s := strings.ToLower(symbol)
	if strings.Contains(s, ".") {
		return s
	}
	return s + ".us"
}

func stooqInterval(interval string) (string, error) {
	switch interval {
	case "1d", "d", "":
		return "d", nil
	case "1w", "w":
		return "w", nil
	case "1mo", "m":
		return "m", nil
	}
	return "", fmt.Errorf("unsupported interval %q", interval)
}

// parseStooqCSV reads the "Date,Open,High,Low,Close,Volume" layout.
func parseStooqCSV(symbol, interval string, body []byte, log *logger.Logger) ([]contracts.InputSlice, error) {
	reader := csv.NewReader(strings.NewReader(string(body)))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data rows")
	}

	header := rows[0]
	if len(header) < 6 || !strings.EqualFold(header[0], "Date") {
		return nil, fmt.Errorf("unexpected header %v", header)
	}

	out := make([]contracts.InputSlice, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 6 {
			continue
		}
		ts, err := time.Parse("2006-01-02", row[0])
		if err != nil {
			log.WithField("row", row[0]).Warn("skipping unparseable date")
			continue
		}
		vals := make([]float64, 5)
		ok := true
		for i := 0; i < 5; i++ {
			v, err := strconv.ParseFloat(row[i+1], 64)
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		if !ok {
			log.WithField("date", row[0]).Warn("skipping unparseable row")
			continue
		}
		out = append(out, contracts.InputSlice{
			Symbol:   symbol,
			Interval: interval,
			TS:       ts.UTC(),
			Open:     vals[0],
			High:     vals[1],
			Low:      vals[2],
			Close:    vals[3],
			Volume:   vals[4],
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no parseable rows")
	}
	return out, nil
}
