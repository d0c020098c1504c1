package redis

import (
	"context"

	"github.com/wonny/unslug/backend/internal/contracts"
)

// SignalCache keeps the most recent signal per symbol so read paths can
// skip the database between scan cycles.
type SignalCache struct {
	cache *Cache
}

// NewSignalCache creates a signal cache on top of the shared client.
func NewSignalCache(client *Client) *SignalCache {
	return &SignalCache{cache: NewCache(client, "unslug")}
}

// SetLatestSignal stores rec as the latest signal for its symbol.
func (s *SignalCache) SetLatestSignal(ctx context.Context, rec *contracts.SignalRecord) error {
	if rec == nil {
		return nil
	}
	return s.cache.Set(ctx, LatestSignalKey(rec.Symbol), rec, TTLDaily)
}

// GetLatestSignal returns the cached latest signal for symbol, if any.
func (s *SignalCache) GetLatestSignal(ctx context.Context, symbol string) (*contracts.SignalRecord, bool, error) {
	var rec contracts.SignalRecord
	found, err := s.cache.Get(ctx, LatestSignalKey(symbol), &rec)
	if err != nil || !found {
		return nil, false, err
	}
	return &rec, true, nil
}

// InvalidateSignal drops the cached record for symbol.
func (s *SignalCache) InvalidateSignal(ctx context.Context, symbol string) error {
	return s.cache.Delete(ctx, LatestSignalKey(symbol))
}
