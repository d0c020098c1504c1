package feed

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/unslug/backend/pkg/httputil"
	"github.com/wonny/unslug/backend/pkg/logger"
)

// statsPath is the Cboe daily market statistics page carrying the
// ratio table.
const statsPath = "/us/options/market_statistics/daily/"

// PutCallStats holds the ratios scraped from the daily statistics table.
type PutCallStats struct {
	Total  float64 `json:"total"`
	Index  float64 `json:"index"`
	Equity float64 `json:"equity"`
}

// CboeScraper pulls the put/call ratios off the Cboe statistics page.
type CboeScraper struct {
	client  *httputil.Client
	baseURL string
	log     *logger.Logger
}

// NewCboeScraper creates the scraper.
func NewCboeScraper(client *httputil.Client, baseURL string, log *logger.Logger) *CboeScraper {
	return &CboeScraper{client: client, baseURL: strings.TrimRight(baseURL, "/"), log: log}
}

// FetchPutCall scrapes the current ratios. The page lays the numbers out
// in a two-column table of "NAME PUT/CALL RATIO" rows.
func (c *CboeScraper) FetchPutCall(ctx context.Context) (*PutCallStats, error) {
	body, err := c.client.GetBody(ctx, c.baseURL+statsPath)
	if err != nil {
		return nil, fmt.Errorf("cboe fetch: %w", err)
	}
	return parsePutCall(body)
}

func parsePutCall(body []byte) (*PutCallStats, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("cboe parse: %w", err)
	}

	stats := &PutCallStats{}
	found := 0
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		name := strings.ToUpper(strings.TrimSpace(cells.Eq(0).Text()))
		value, err := strconv.ParseFloat(strings.TrimSpace(cells.Eq(1).Text()), 64)
		if err != nil {
			return
		}
		switch {
		case strings.Contains(name, "TOTAL"):
			stats.Total = value
			found++
		case strings.Contains(name, "INDEX"):
			stats.Index = value
			found++
		case strings.Contains(name, "EQUITY"):
			stats.Equity = value
			found++
		}
	})

	if found == 0 {
		return nil, fmt.Errorf("cboe parse: no ratio rows found")
	}
	return stats, nil
}
