package console

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fleetgap.app/console/common/logger"
	"fleetgap.app/console/internal/backend"
	"fleetgap.app/console/internal/metrics"
	"fleetgap.app/console/internal/model"
)

// Trigger describes what caused a list refresh. Background polls are
// distinguished from explicit refreshes so the dashboard does not flash a
// full loading state on every tick.
type Trigger string

const (
	TriggerInitial Trigger = "initial"
	TriggerManual  Trigger = "manual"
	TriggerPoll    Trigger = "poll"
	TriggerAction  Trigger = "action"
)

// Repository is the slice of the backend client the list controller needs.
type Repository interface {
	ListAlerts(ctx context.Context, page int, filters backend.Filters) (*model.GapAlertPage, error)
	Stats(ctx context.Context) (*model.GapAlertStats, error)
	MonitoringInterval(ctx context.Context) (int, error)
}

// Snapshot is an immutable view of the list state, safe to hand to HTTP
// handlers and WebSocket clients.
type Snapshot struct {
	Alerts         []model.GapAlert     `json:"alerts"`
	Stats          *model.GapAlertStats `json:"stats,omitempty"`
	Page           int                  `json:"page"`
	TotalPages     int                  `json:"total_pages"`
	TotalCount     int                  `json:"total_count"`
	StatusFilter   string               `json:"status_filter"`
	SeverityFilter string               `json:"severity_filter"`
	Loaded         bool                 `json:"loaded"`
	LastRefreshed  time.Time            `json:"last_refreshed"`
	Trigger        Trigger              `json:"trigger"`
	ListError      string               `json:"list_error,omitempty"`
	StatsError     string               `json:"stats_error,omitempty"`
}

// ListController owns the alert list, its pagination and filters, and the
// stats panel. All mutations go through its methods; nothing else touches
// the held slice.
type ListController struct {
	repo            Repository
	defaultInterval time.Duration

	mu             sync.Mutex
	alerts         []model.GapAlert
	stats          *model.GapAlertStats
	page           int
	totalPages     int
	totalCount     int
	statusFilter   string
	severityFilter string
	loaded         bool
	lastRefreshed  time.Time
	lastTrigger    Trigger
	listErr        string
	statsErr       string

	onSnapshot    func(Snapshot)
	onStateChange func()
	pending       *PendingSet
}

type ListControllerConfig struct {
	DefaultInterval time.Duration

	// OnSnapshot receives a fresh snapshot after every refresh (WebSocket
	// push). Optional.
	OnSnapshot func(Snapshot)

	// OnStateChange fires when page or filters change, so the scheduler can
	// tear down and recreate its timer instead of polling stale state.
	// Optional.
	OnStateChange func()

	// Pending reconciles dispatched actions against fresh list data. Optional.
	Pending *PendingSet
}

func NewListController(repo Repository, cfg ListControllerConfig) *ListController {
	interval := cfg.DefaultInterval
	if interval <= 0 {
		interval = 60 * time.Minute
	}
	return &ListController{
		repo:            repo,
		defaultInterval: interval,
		page:            1,
		onSnapshot:      cfg.OnSnapshot,
		onStateChange:   cfg.OnStateChange,
		pending:         cfg.Pending,
	}
}

// Refresh fetches the current page and the stats. The two calls fail
// independently: a broken stats endpoint never blocks the list and vice
// versa. Failures keep prior data in place and are logged, never propagated -
// the dashboard always has something to render.
func (c *ListController) Refresh(ctx context.Context, trigger Trigger) Snapshot {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Trigger:   logger.Ptr(string(trigger)),
		Component: "console.list",
	})

	sc := logger.StartSpan(ctx, "console.refresh")
	defer sc.End()
	ctx = sc.Context()

	c.mu.Lock()
	page := c.page
	filters := backend.Filters{Status: c.statusFilter, Severity: c.severityFilter}
	c.mu.Unlock()

	listResp, listErr := c.repo.ListAlerts(ctx, page, filters)
	metrics.ObserveRefresh(string(trigger), listErr)
	if listErr != nil {
		sc.RecordError(listErr)
		slog.ErrorContext(ctx, "alert list fetch failed", "error", listErr)
	}

	statsResp, statsErr := c.repo.Stats(ctx)
	if statsErr != nil {
		slog.ErrorContext(ctx, "stats fetch failed", "error", statsErr)
	}

	c.mu.Lock()
	if listErr == nil {
		c.alerts = listResp.Data
		c.totalCount = listResp.TotalCount
		c.totalPages = listResp.TotalPages
		// Trust the page echoed by the server: the requested page may no
		// longer exist after a filter change raced with this fetch.
		if listResp.Page > 0 {
			c.page = listResp.Page
		}
		c.loaded = true
		c.listErr = ""
	} else {
		c.listErr = listErr.Error()
	}
	if statsErr == nil {
		c.stats = statsResp
		c.statsErr = ""
	} else {
		c.statsErr = statsErr.Error()
	}
	c.lastRefreshed = time.Now()
	c.lastTrigger = trigger
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if listErr == nil && c.pending != nil {
		c.pending.Reconcile(snap.Alerts)
	}

	if c.onSnapshot != nil {
		c.onSnapshot(snap)
	}
	return snap
}

// Snapshot returns the current state without touching the backend.
func (c *ListController) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// SetStatusFilter changes the status filter and resets to page 1.
// An empty string means "all".
func (c *ListController) SetStatusFilter(status string) {
	c.mu.Lock()
	c.statusFilter = status
	c.page = 1
	c.mu.Unlock()
	c.stateChanged()
}

// SetSeverityFilter changes the severity filter and resets to page 1.
func (c *ListController) SetSeverityFilter(severity string) {
	c.mu.Lock()
	c.severityFilter = severity
	c.page = 1
	c.mu.Unlock()
	c.stateChanged()
}

// NextPage advances one page, clamped to the last known total. Filters are
// untouched.
func (c *ListController) NextPage() {
	c.mu.Lock()
	if c.totalPages == 0 || c.page < c.totalPages {
		c.page++
	}
	c.mu.Unlock()
	c.stateChanged()
}

// PrevPage goes back one page, never below 1. Filters are untouched.
func (c *ListController) PrevPage() {
	c.mu.Lock()
	if c.page > 1 {
		c.page--
	}
	c.mu.Unlock()
	c.stateChanged()
}

// MonitoringInterval reads the server-configured poll cadence, falling back
// to the default when the call fails or the value is absent or zero.
func (c *ListController) MonitoringInterval(ctx context.Context) time.Duration {
	minutes, err := c.repo.MonitoringInterval(ctx)
	if err != nil {
		slog.WarnContext(ctx, "monitoring interval fetch failed, using default",
			"error", err, "default", c.defaultInterval)
		return c.defaultInterval
	}
	if minutes <= 0 {
		return c.defaultInterval
	}
	return time.Duration(minutes) * time.Minute
}

// FindAlert looks up an alert on the current page by ID.
func (c *ListController) FindAlert(alertID int64) (model.GapAlert, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.alerts {
		if a.ID == alertID {
			return a, true
		}
	}
	return model.GapAlert{}, false
}

func (c *ListController) snapshotLocked() Snapshot {
	alerts := make([]model.GapAlert, len(c.alerts))
	copy(alerts, c.alerts)

	var stats *model.GapAlertStats
	if c.stats != nil {
		s := *c.stats
		stats = &s
	}

	return Snapshot{
		Alerts:         alerts,
		Stats:          stats,
		Page:           c.page,
		TotalPages:     c.totalPages,
		TotalCount:     c.totalCount,
		StatusFilter:   c.statusFilter,
		SeverityFilter: c.severityFilter,
		Loaded:         c.loaded,
		LastRefreshed:  c.lastRefreshed,
		Trigger:        c.lastTrigger,
		ListError:      c.listErr,
		StatsError:     c.statsErr,
	}
}

func (c *ListController) stateChanged() {
	if c.onStateChange != nil {
		c.onStateChange()
	}
}
