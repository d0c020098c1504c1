package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/unslug/backend/internal/contracts"
	"github.com/wonny/unslug/backend/pkg/logger"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// SignalCache is the optional read-through cache for latest-signal lookups.
type SignalCache interface {
	GetLatestSignal(ctx context.Context, symbol string) (*contracts.SignalRecord, bool, error)
}

// SignalHandler handles signal read endpoints
type SignalHandler struct {
	signals contracts.SignalRepository
	cache   SignalCache
	logger  *logger.Logger
}

// NewSignalHandler creates a new signal handler. cache may be nil.
func NewSignalHandler(signals contracts.SignalRepository, cache SignalCache, log *logger.Logger) *SignalHandler {
	return &SignalHandler{
		signals: signals,
		cache:   cache,
		logger:  log,
	}
}

// ListLatest returns the newest record per symbol, strongest combined
// trust first.
// GET /api/signals?limit=20
func (h *SignalHandler) ListLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxListLimit {
			n = maxListLimit
		}
		limit = n
	}

	records, err := h.signals.ListLatest(ctx, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list signals")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve signals")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"signals": records,
	})
}

// GetLatest returns the most recent record for a symbol.
// GET /api/signals/{symbol}/latest
func (h *SignalHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	if symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	if h.cache != nil {
		if rec, found, err := h.cache.GetLatestSignal(ctx, symbol); err == nil && found {
			respondJSON(w, http.StatusOK, rec)
			return
		}
	}

	rec, err := h.signals.LatestBySymbol(ctx, symbol)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to get latest signal")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve signal")
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "No signal for symbol")
		return
	}

	respondJSON(w, http.StatusOK, rec)
}
