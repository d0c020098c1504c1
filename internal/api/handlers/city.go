package handlers

import (
	"net/http"

	"github.com/wonny/unslug/backend/internal/contracts"
	"github.com/wonny/unslug/backend/internal/gate"
	"github.com/wonny/unslug/backend/internal/strategycfg"
	"github.com/wonny/unslug/backend/pkg/logger"
)

// cityUniverseLimit bounds how many symbols feed the city view.
const cityUniverseLimit = 100

// CityHandler derives the city visualization token from the latest
// scored signals.
type CityHandler struct {
	signals contracts.SignalRepository
	rule    *strategycfg.CityRule
	logger  *logger.Logger
}

// NewCityHandler creates a new city handler
func NewCityHandler(signals contracts.SignalRepository, rule *strategycfg.CityRule, log *logger.Logger) *CityHandler {
	return &CityHandler{
		signals: signals,
		rule:    rule,
		logger:  log,
	}
}

// GetCity returns the current city state from mean per-organism trust
// across the latest record of every scored symbol.
// GET /api/city
func (h *CityHandler) GetCity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.signals.ListLatest(ctx, cityUniverseLimit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load signals for city view")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve city state")
		return
	}
	if len(records) == 0 {
		respondError(w, http.StatusNotFound, "No signals scored yet")
		return
	}

	var unslug, fear, flow float64
	for _, rec := range records {
		unslug += rec.UnslugScore
		fear += rec.FearScore
		flow += rec.FlowScore
	}
	n := float64(len(records))

	token, err := gate.CityToken(h.rule, unslug/n, fear/n, flow/n)
	if err != nil {
		h.logger.WithError(err).Error("City rule missing from strategy config")
		respondError(w, http.StatusInternalServerError, "City rule is not configured")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"city":    token,
		"symbols": len(records),
	})
}
