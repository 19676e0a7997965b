package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"fleetgap.app/console/internal/backend"
	"fleetgap.app/console/internal/console"
	"github.com/gin-gonic/gin"
)

// ValidationHandler exposes the validation session lifecycle: open with a
// fresh analysis, inspect, act, close.
type ValidationHandler struct {
	validator *console.Validator
	list      *console.ListController
}

func NewValidationHandler(validator *console.Validator, list *console.ListController) *ValidationHandler {
	return &ValidationHandler{
		validator: validator,
		list:      list,
	}
}

type openValidationRequest struct {
	AlertID int64 `json:"alert_id" binding:"required"`
}

// Open starts a session for an alert on the current page. Analysis fetch
// failures do not fail the request; they show up in the session state.
func (h *ValidationHandler) Open(c *gin.Context) {
	ctx := c.Request.Context()

	var req openValidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: alert_id is required"})
		return
	}

	alert, ok := h.list.FindAlert(req.AlertID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found on current page"})
		return
	}

	view, err := h.validator.Open(ctx, alert)
	if err != nil {
		switch {
		case errors.Is(err, console.ErrNotEligible):
			c.JSON(http.StatusConflict, gin.H{"error": "alert has no report or is already resolved"})
		case errors.Is(err, console.ErrActionInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": "an action is still in flight for this report"})
		default:
			slog.ErrorContext(ctx, "failed to open validation session", "error", err, "alert_id", req.AlertID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open validation session"})
		}
		return
	}

	c.JSON(http.StatusOK, view)
}

// State returns the current session view.
func (h *ValidationHandler) State(c *gin.Context) {
	reportID, ok := h.reportID(c)
	if !ok {
		return
	}

	view, err := h.validator.State(reportID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "validation session not found"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// Close discards the session.
func (h *ValidationHandler) Close(c *gin.Context) {
	reportID, ok := h.reportID(c)
	if !ok {
		return
	}
	h.validator.Close(reportID)
	c.Status(http.StatusNoContent)
}

// Certify dispatches certification for the report's gaps.
func (h *ValidationHandler) Certify(c *gin.Context) {
	reportID, ok := h.reportID(c)
	if !ok {
		return
	}
	view, err := h.validator.Certify(c.Request.Context(), reportID)
	h.respondAction(c, view, err)
}

type escalateRequest struct {
	Notes string `json:"notes"`
}

// Escalate dispatches an escalation with optional notes.
func (h *ValidationHandler) Escalate(c *gin.Context) {
	reportID, ok := h.reportID(c)
	if !ok {
		return
	}

	// Notes are optional; an empty body is a valid escalation.
	var req escalateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	view, err := h.validator.Escalate(c.Request.Context(), reportID, req.Notes)
	h.respondAction(c, view, err)
}

type breachRequest struct {
	Notes     string `json:"notes"`
	Confirmed bool   `json:"confirmed"`
}

// Breach dispatches a contract breach. The body must carry confirmed=true.
func (h *ValidationHandler) Breach(c *gin.Context) {
	reportID, ok := h.reportID(c)
	if !ok {
		return
	}

	var req breachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	view, err := h.validator.Breach(c.Request.Context(), reportID, req.Notes, req.Confirmed)
	h.respondAction(c, view, err)
}

// respondAction maps lifecycle errors onto HTTP statuses. A successful
// dispatch returns 202: the backend resolves the alert asynchronously and
// the list catches up on the next refresh.
func (h *ValidationHandler) respondAction(c *gin.Context, view console.SessionView, err error) {
	if err == nil {
		c.JSON(http.StatusAccepted, view)
		return
	}

	ctx := c.Request.Context()
	switch {
	case errors.Is(err, console.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "validation session not found"})
	case errors.Is(err, console.ErrActionInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "another action is already in flight"})
	case errors.Is(err, console.ErrNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": "no analysis loaded; reopen the session"})
	case errors.Is(err, console.ErrNoGaps):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "analysis has no gaps to act on"})
	case errors.Is(err, console.ErrAlreadyEscalated):
		c.JSON(http.StatusConflict, gin.H{"error": "alert is already escalated"})
	case errors.Is(err, console.ErrConfirmationRequired):
		c.JSON(http.StatusPreconditionRequired, gin.H{"error": "breach requires confirmed=true"})
	default:
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Message, "upstream_status": apiErr.StatusCode})
			return
		}
		slog.ErrorContext(ctx, "lifecycle action failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

func (h *ValidationHandler) reportID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("reportID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report id"})
		return 0, false
	}
	return id, true
}
