// Package backend wraps the fleet-data collection service's REST API. The
// backend computes gap analyses server-side; this client treats it as an
// opaque collaborator returning confidence-scored evidence per report.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fleetgap.app/console/internal/model"
)

// PageSize is fixed by the list view contract.
const PageSize = 10

// DefaultAnalysisTimeout matches the backend's worst-case processing budget
// for a gap analysis. Deliberately generous; the underlying computation can
// be slow. The lifecycle posts share the same ceiling since certify,
// escalate and breach can be equally slow.
const DefaultAnalysisTimeout = 15 * time.Minute

// DefaultRequestTimeout bounds the plain GETs (list, stats, interval). These
// feed the single scheduler goroutine, so a wedged backend must fail the
// request rather than hold the loop.
const DefaultRequestTimeout = 30 * time.Second

type Config struct {
	BaseURL         string
	APIKey          string
	AnalysisTimeout time.Duration
	RequestTimeout  time.Duration
}

// Filters narrows the alert list. Empty string means "all" and the query
// parameter is omitted entirely.
type Filters struct {
	Status   string
	Severity string
}

// ActionResult is the outcome of a certify/escalate/breach post. Accepted is
// the primary 202 path: work continues server-side and the real resulting
// alert status is only knowable from a later list fetch.
type ActionResult struct {
	Accepted      bool   `json:"-"` // HTTP 202: background job started
	Status        string `json:"status"`
	GapsCertified int    `json:"gapsCertified"` // legacy 200 completion signal
}

// Client talks to the fleet-data backend's gap alert and gap analysis
// surfaces.
type Client struct {
	baseURL         string
	apiKey          string
	httpClient      *http.Client
	analysisTimeout time.Duration
	requestTimeout  time.Duration
}

func New(cfg Config) *Client {
	analysisTimeout := cfg.AnalysisTimeout
	if analysisTimeout <= 0 {
		analysisTimeout = DefaultAnalysisTimeout
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		// Per-request deadlines come from contexts; the transport itself
		// stays unbounded so the analysis ceiling is not capped by it.
		httpClient:      &http.Client{},
		analysisTimeout: analysisTimeout,
		requestTimeout:  requestTimeout,
	}
}

// ListAlerts fetches one 1-indexed page of alerts. Status/severity filters
// are appended only when non-empty.
func (c *Client) ListAlerts(ctx context.Context, page int, filters Filters) (*model.GapAlertPage, error) {
	if page < 1 {
		page = 1
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(PageSize))
	if filters.Status != "" {
		q.Set("status", filters.Status)
	}
	if filters.Severity != "" {
		q.Set("severity", filters.Severity)
	}

	var resp model.GapAlertPage
	if err := c.getJSON(ctx, "/api/gapalerts?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	return &resp, nil
}

// Stats fetches the status/severity counts over the unfiltered population.
func (c *Client) Stats(ctx context.Context) (*model.GapAlertStats, error) {
	var resp model.GapAlertStats
	if err := c.getJSON(ctx, "/api/gapalerts/stats", &resp); err != nil {
		return nil, fmt.Errorf("fetching stats: %w", err)
	}
	return &resp, nil
}

// MonitoringInterval reads the server-configured check interval in minutes.
// Callers apply the default when the call fails or the value is absent/zero.
func (c *Client) MonitoringInterval(ctx context.Context) (int, error) {
	var resp struct {
		CheckIntervalMinutes int `json:"checkIntervalMinutes"`
	}
	if err := c.getJSON(ctx, "/api/gapalerts/monitoring-interval", &resp); err != nil {
		return 0, fmt.Errorf("fetching monitoring interval: %w", err)
	}
	return resp.CheckIntervalMinutes, nil
}

// FetchAnalysis retrieves the detailed gap analysis for a report. The request
// is abortable and capped at the analysis timeout; hitting the cap surfaces
// ErrAnalysisTimeout rather than a generic transport error.
func (c *Client) FetchAnalysis(ctx context.Context, reportID int64) (*model.GapAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, c.analysisTimeout)
	defer cancel()

	var resp model.GapAnalysis
	err := c.getJSON(ctx, fmt.Sprintf("/api/gapanalysis/%d/analysis", reportID), &resp)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("fetching analysis for report %d: %w", reportID, ErrAnalysisTimeout)
		}
		return nil, fmt.Errorf("fetching analysis for report %d: %w", reportID, err)
	}
	return &resp, nil
}

// Certify starts the server-side certification job for a report.
func (c *Client) Certify(ctx context.Context, reportID int64, idempotencyKey string) (*ActionResult, error) {
	return c.postAction(ctx, fmt.Sprintf("/api/gapanalysis/%d/validate", reportID), nil, idempotencyKey)
}

// Escalate flags a report for escalation with an optional justification.
func (c *Client) Escalate(ctx context.Context, reportID int64, notes, idempotencyKey string) (*ActionResult, error) {
	return c.postAction(ctx, fmt.Sprintf("/api/gapanalysis/%d/escalate", reportID), &notesBody{Notes: notes}, idempotencyKey)
}

// Breach marks a report as a contract breach with an optional justification.
// Irreversible; the caller is responsible for operator confirmation.
func (c *Client) Breach(ctx context.Context, reportID int64, notes, idempotencyKey string) (*ActionResult, error) {
	return c.postAction(ctx, fmt.Sprintf("/api/gapanalysis/%d/breach", reportID), &notesBody{Notes: notes}, idempotencyKey)
}

type notesBody struct {
	Notes string `json:"notes"`
}

// postAction dispatches a lifecycle action. HTTP 202 is the primary success
// path (fire-and-forget: the job continues server-side); HTTP 200 is accepted
// as the legacy completion signal. Anything else is an error. The action
// posts share the analysis timeout ceiling.
func (c *Client) postAction(ctx context.Context, path string, body *notesBody, idempotencyKey string) (*ActionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.analysisTimeout)
	defer cancel()

	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting action: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusOK:
		result := &ActionResult{Accepted: resp.StatusCode == http.StatusAccepted}
		if err := json.Unmarshal(raw, result); err != nil {
			// A 202 with an unparseable body is still an accepted job.
			slog.DebugContext(ctx, "action response body not JSON", "path", path, "status", resp.StatusCode)
		}
		return result, nil
	default:
		return nil, newAPIError(resp.StatusCode, raw)
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	// Callers that need a longer ceiling (the analysis fetch) set their own
	// deadline; everything else gets the modest request timeout.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return newAPIError(resp.StatusCode, raw)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
