package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"fleetgap.app/console/internal/journal"
	"github.com/gin-gonic/gin"
)

const maxJournalLimit = 200

// JournalHandler exposes the dispatched-action journal for audit review.
type JournalHandler struct {
	store journal.Store
}

func NewJournalHandler(store journal.Store) *JournalHandler {
	return &JournalHandler{store: store}
}

type journalListResponse struct {
	Entries []journal.Entry `json:"entries"`
}

// ListRecent returns the latest dispatched actions, newest first.
func (h *JournalHandler) ListRecent(c *gin.Context) {
	ctx := c.Request.Context()

	limit := int64(50)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed <= 0 || parsed > maxJournalLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 200"})
			return
		}
		limit = parsed
	}

	entries, err := h.store.ListRecent(ctx, int32(limit))
	if err != nil {
		slog.ErrorContext(ctx, "failed to list journal entries", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list journal entries"})
		return
	}
	c.JSON(http.StatusOK, journalListResponse{Entries: entries})
}

// ListByReport returns every action dispatched against one report.
func (h *JournalHandler) ListByReport(c *gin.Context) {
	ctx := c.Request.Context()

	reportID, err := strconv.ParseInt(c.Param("reportID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report id"})
		return
	}

	entries, err := h.store.ListByReport(ctx, reportID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list journal entries", "error", err, "report_id", reportID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list journal entries"})
		return
	}
	c.JSON(http.StatusOK, journalListResponse{Entries: entries})
}
