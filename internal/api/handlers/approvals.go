package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/unslug/backend/internal/contracts"
	"github.com/wonny/unslug/backend/internal/gate"
	"github.com/wonny/unslug/backend/pkg/logger"
)

// ApprovalHandler handles the human review endpoints
type ApprovalHandler struct {
	approver  *gate.Approver
	approvals contracts.ApprovalRepository
	logger    *logger.Logger
}

// NewApprovalHandler creates a new approval handler
func NewApprovalHandler(approver *gate.Approver, approvals contracts.ApprovalRepository, log *logger.Logger) *ApprovalHandler {
	return &ApprovalHandler{
		approver:  approver,
		approvals: approvals,
		logger:    log,
	}
}

// ApproveRequest is the body for a review decision
type ApproveRequest struct {
	ApprovedBy string `json:"approved_by"`
	Decision   string `json:"decision"` // "BUY", "NEUTRAL", "RISK"
	Note       string `json:"note"`
}

// Approve applies a review decision to a pending signal.
// POST /api/signals/{id}/approve
func (h *ApprovalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	signalID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "signal id must be an integer")
		return
	}

	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ApprovedBy == "" {
		respondError(w, http.StatusBadRequest, "approved_by is required")
		return
	}

	decision, err := contracts.ParseSignal(req.Decision)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid decision (valid: BUY, NEUTRAL, RISK)")
		return
	}

	rec, err := h.approver.Approve(ctx, signalID, req.ApprovedBy, decision, req.Note)
	if err != nil {
		var conflict *contracts.AlreadyApprovedError
		if errors.As(err, &conflict) {
			respondJSON(w, http.StatusConflict, map[string]interface{}{
				"error":    "Signal already approved",
				"signalId": conflict.SignalID,
				"status":   conflict.Status,
			})
			return
		}
		if strings.Contains(err.Error(), "not found") {
			respondError(w, http.StatusNotFound, "Signal not found")
			return
		}
		h.logger.WithError(err).WithField("signal_id", signalID).Error("Failed to approve signal")
		respondError(w, http.StatusInternalServerError, "Failed to approve signal")
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// ListBySymbol returns the approval audit trail for a symbol.
// GET /api/approvals/{symbol}
func (h *ApprovalHandler) ListBySymbol(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	if symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	records, err := h.approvals.ListApprovals(ctx, symbol)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to list approvals")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve approvals")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":    symbol,
		"count":     len(records),
		"approvals": records,
	})
}
