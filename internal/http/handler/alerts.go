package handler

import (
	"net/http"

	"fleetgap.app/console/internal/console"
	"fleetgap.app/console/internal/model"
	"github.com/gin-gonic/gin"
)

// Refresher decouples the handler from the scheduler loop.
type Refresher interface {
	Kick(trigger console.Trigger)
}

// AlertsHandler serves the list state. Mutations (refresh, paging, filters)
// return 202 with the pre-mutation snapshot; the refreshed state arrives over
// the WebSocket push once the backend answers.
type AlertsHandler struct {
	list      *console.ListController
	refresher Refresher
}

func NewAlertsHandler(list *console.ListController, refresher Refresher) *AlertsHandler {
	return &AlertsHandler{
		list:      list,
		refresher: refresher,
	}
}

// Snapshot returns the current list state without touching the backend.
func (h *AlertsHandler) Snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.list.Snapshot())
}

// Refresh requests an immediate refetch.
func (h *AlertsHandler) Refresh(c *gin.Context) {
	h.refresher.Kick(console.TriggerManual)
	c.JSON(http.StatusAccepted, gin.H{"status": "refreshing"})
}

// NextPage advances the page. Filters stay as they are.
func (h *AlertsHandler) NextPage(c *gin.Context) {
	h.list.NextPage()
	c.JSON(http.StatusAccepted, h.list.Snapshot())
}

// PrevPage goes back one page. Filters stay as they are.
func (h *AlertsHandler) PrevPage(c *gin.Context) {
	h.list.PrevPage()
	c.JSON(http.StatusAccepted, h.list.Snapshot())
}

type setFiltersRequest struct {
	// Absent fields are left untouched; an explicit empty string clears the
	// filter back to "all".
	Status   *string `json:"status"`
	Severity *string `json:"severity"`
}

// SetFilters updates the status and/or severity filter. Any filter change
// resets the list to page 1.
func (h *AlertsHandler) SetFilters(c *gin.Context) {
	var req setFiltersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if req.Status != nil {
		if !validStatusFilter(*req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status filter: " + *req.Status})
			return
		}
		h.list.SetStatusFilter(*req.Status)
	}
	if req.Severity != nil {
		if !validSeverityFilter(*req.Severity) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown severity filter: " + *req.Severity})
			return
		}
		h.list.SetSeverityFilter(*req.Severity)
	}

	c.JSON(http.StatusAccepted, h.list.Snapshot())
}

func validStatusFilter(s string) bool {
	switch model.AlertStatus(s) {
	case "", model.AlertStatusOpen, model.AlertStatusEscalated,
		model.AlertStatusCompleted, model.AlertStatusContractBreach:
		return true
	}
	return false
}

func validSeverityFilter(s string) bool {
	switch model.AlertSeverity(s) {
	case "", model.AlertSeverityCritical, model.AlertSeverityWarning, model.AlertSeverityInfo:
		return true
	}
	return false
}
