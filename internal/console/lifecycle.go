package console

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"fleetgap.app/console/common/id"
	"fleetgap.app/console/common/logger"
	"fleetgap.app/console/internal/audit"
	"fleetgap.app/console/internal/backend"
	"fleetgap.app/console/internal/journal"
	"fleetgap.app/console/internal/metrics"
	"fleetgap.app/console/internal/model"
)

var (
	// ErrNotEligible rejects opening validation for an alert without a
	// generated report or outside the OPEN/ESCALATED statuses.
	ErrNotEligible = errors.New("alert not eligible for validation")
	// ErrSessionNotFound means no validation session is open for the report.
	ErrSessionNotFound = errors.New("validation session not found")
	// ErrNotReady rejects actions while no analysis is loaded.
	ErrNotReady = errors.New("session has no loaded analysis")
	// ErrActionInFlight enforces one lifecycle action at a time per session.
	ErrActionInFlight = errors.New("another action is in flight")
	// ErrNoGaps rejects actions on an analysis with zero gaps.
	ErrNoGaps = errors.New("analysis has no gaps to act on")
	// ErrAlreadyEscalated hides the escalate action once used.
	ErrAlreadyEscalated = errors.New("alert is already escalated")
	// ErrConfirmationRequired rejects a breach without explicit confirmation.
	// No request is issued; a breach is irreversible.
	ErrConfirmationRequired = errors.New("breach requires confirmation")
)

type ActionKind string

const (
	ActionCertify  ActionKind = "certify"
	ActionEscalate ActionKind = "escalate"
	ActionBreach   ActionKind = "breach"
)

// expectedStatus is what the backend's background job should eventually set.
func (k ActionKind) expectedStatus() model.AlertStatus {
	switch k {
	case ActionCertify:
		return model.AlertStatusCompleted
	case ActionEscalate:
		return model.AlertStatusEscalated
	default:
		return model.AlertStatusContractBreach
	}
}

// Phase is the validation session's state. One tagged state instead of
// independent loading/certifying/escalating/breaching booleans: two actions
// in flight at once is unrepresentable.
type Phase string

const (
	PhaseLoading    Phase = "loading"
	PhaseReady      Phase = "ready"
	PhaseLoadError  Phase = "load_error"
	PhaseSubmitting Phase = "submitting"
	PhaseClosed     Phase = "closed"
)

// AnalysisClient is the slice of the backend client the validator needs.
type AnalysisClient interface {
	FetchAnalysis(ctx context.Context, reportID int64) (*model.GapAnalysis, error)
	Certify(ctx context.Context, reportID int64, idempotencyKey string) (*backend.ActionResult, error)
	Escalate(ctx context.Context, reportID int64, notes, idempotencyKey string) (*backend.ActionResult, error)
	Breach(ctx context.Context, reportID int64, notes, idempotencyKey string) (*backend.ActionResult, error)
}

type session struct {
	reportID   int64
	alert      model.GapAlert
	phase      Phase
	analysis   *model.GapAnalysis
	loadErr    string
	submitting ActionKind
	actionErr  string
	openedAt   time.Time
}

// SessionView is the JSON-safe projection of a session handed to the
// dashboard.
type SessionView struct {
	ReportID       int64              `json:"report_id"`
	AlertID        int64              `json:"alert_id"`
	Phase          Phase              `json:"phase"`
	Analysis       *model.GapAnalysis `json:"analysis,omitempty"`
	LoadError      string             `json:"load_error,omitempty"`
	Submitting     ActionKind         `json:"submitting,omitempty"`
	ActionError    string             `json:"action_error,omitempty"`
	AllowedActions []ActionKind       `json:"allowed_actions"`
	OpenedAt       time.Time          `json:"opened_at"`
}

// Validator drives validation sessions: one per report, fresh analysis on
// every open, exactly one lifecycle action in flight at a time.
type Validator struct {
	client  AnalysisClient
	journal journal.Store
	audit   audit.Publisher
	pending *PendingSet

	// onComplete runs after a successful dispatch, sequenced after the
	// backend's response but off the request path so closing the session is
	// never blocked by the follow-up list refresh.
	onComplete func(ctx context.Context)

	mu       sync.Mutex
	sessions map[int64]*session
}

type ValidatorConfig struct {
	Journal    journal.Store
	Audit      audit.Publisher
	Pending    *PendingSet
	OnComplete func(ctx context.Context)
}

func NewValidator(client AnalysisClient, cfg ValidatorConfig) *Validator {
	return &Validator{
		client:     client,
		journal:    cfg.Journal,
		audit:      cfg.Audit,
		pending:    cfg.Pending,
		onComplete: cfg.OnComplete,
		sessions:   make(map[int64]*session),
	}
}

// Open starts a validation session for an eligible alert. Any previous
// session for the report is discarded and the analysis is re-fetched: stale
// evidence must never be shown across alerts. A failed or timed-out fetch
// leaves the session in a persistent load-error state with no automatic
// retry; the operator closes and reopens.
func (v *Validator) Open(ctx context.Context, alert model.GapAlert) (SessionView, error) {
	if !alert.Eligible() {
		return SessionView{}, ErrNotEligible
	}
	reportID := *alert.PDFReportID

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		AlertID:   logger.Ptr(alert.ID),
		ReportID:  logger.Ptr(reportID),
		Component: "console.validator",
	})

	v.mu.Lock()
	if existing, ok := v.sessions[reportID]; ok && existing.phase == PhaseSubmitting {
		v.mu.Unlock()
		return SessionView{}, ErrActionInFlight
	}
	sess := &session{
		reportID: reportID,
		alert:    alert,
		phase:    PhaseLoading,
		openedAt: time.Now(),
	}
	v.sessions[reportID] = sess
	v.mu.Unlock()

	start := time.Now()
	analysis, err := v.client.FetchAnalysis(ctx, reportID)
	metrics.ObserveAnalysisFetch(time.Since(start), err)

	v.mu.Lock()
	defer v.mu.Unlock()

	// The session may have been replaced or closed while fetching; only the
	// newest open wins.
	current, ok := v.sessions[reportID]
	if !ok || current != sess {
		return SessionView{}, ErrSessionNotFound
	}

	if err != nil {
		sess.phase = PhaseLoadError
		if errors.Is(err, backend.ErrAnalysisTimeout) {
			sess.loadErr = "analysis timed out; close and reopen to retry"
		} else {
			sess.loadErr = logger.Truncate(err.Error(), 200)
		}
		slog.ErrorContext(ctx, "analysis fetch failed", "error", err)
		return v.viewLocked(sess), nil
	}

	sess.phase = PhaseReady
	sess.analysis = analysis
	slog.InfoContext(ctx, "analysis loaded",
		"total_gaps", analysis.TotalGaps,
		"average_confidence", analysis.AverageConfidence)
	return v.viewLocked(sess), nil
}

// State returns the current view of a session.
func (v *Validator) State(reportID int64) (SessionView, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	sess, ok := v.sessions[reportID]
	if !ok {
		return SessionView{}, ErrSessionNotFound
	}
	return v.viewLocked(sess), nil
}

// Close discards a session. Allowed during submission (the dispatch still
// completes server-side); the session simply disappears from view.
func (v *Validator) Close(reportID int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.sessions, reportID)
}

// Certify dispatches certification for the report's gaps.
func (v *Validator) Certify(ctx context.Context, reportID int64) (SessionView, error) {
	return v.act(ctx, reportID, ActionCertify, "", true)
}

// Escalate dispatches an escalation with an optional justification.
func (v *Validator) Escalate(ctx context.Context, reportID int64, notes string) (SessionView, error) {
	return v.act(ctx, reportID, ActionEscalate, notes, true)
}

// Breach dispatches a contract breach. Refused without confirmation: the
// transition is terminal and has business consequences.
func (v *Validator) Breach(ctx context.Context, reportID int64, notes string, confirmed bool) (SessionView, error) {
	return v.act(ctx, reportID, ActionBreach, notes, confirmed)
}

func (v *Validator) act(ctx context.Context, reportID int64, kind ActionKind, notes string, confirmed bool) (SessionView, error) {
	v.mu.Lock()
	sess, ok := v.sessions[reportID]
	if !ok {
		v.mu.Unlock()
		return SessionView{}, ErrSessionNotFound
	}
	if sess.phase == PhaseSubmitting {
		view := v.viewLocked(sess)
		v.mu.Unlock()
		return view, ErrActionInFlight
	}
	if sess.phase != PhaseReady {
		view := v.viewLocked(sess)
		v.mu.Unlock()
		return view, ErrNotReady
	}
	if sess.analysis == nil || !sess.analysis.HasGaps() {
		view := v.viewLocked(sess)
		v.mu.Unlock()
		return view, ErrNoGaps
	}
	if kind == ActionEscalate && sess.alert.Status == model.AlertStatusEscalated {
		view := v.viewLocked(sess)
		v.mu.Unlock()
		return view, ErrAlreadyEscalated
	}
	if kind == ActionBreach && !confirmed {
		view := v.viewLocked(sess)
		v.mu.Unlock()
		return view, ErrConfirmationRequired
	}

	sess.phase = PhaseSubmitting
	sess.submitting = kind
	sess.actionErr = ""
	alert := sess.alert
	v.mu.Unlock()

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		AlertID:   logger.Ptr(alert.ID),
		ReportID:  logger.Ptr(reportID),
		Action:    logger.Ptr(string(kind)),
		Component: "console.validator",
	})

	sc := logger.StartSpan(ctx, "console.action")
	ctx = sc.Context()

	token := id.NewToken()
	result, err := v.dispatch(ctx, reportID, kind, notes, token)
	sc.RecordError(err)
	sc.End()
	metrics.ObserveAction(string(kind), err)
	v.record(ctx, alert, reportID, kind, notes, token, result, err)

	v.mu.Lock()
	defer v.mu.Unlock()

	current, stillOpen := v.sessions[reportID]
	if err != nil {
		slog.ErrorContext(ctx, "lifecycle action failed", "error", err)
		if stillOpen && current == sess {
			sess.phase = PhaseReady
			sess.submitting = ""
			sess.actionErr = logger.Truncate(err.Error(), 200)
			return v.viewLocked(sess), err
		}
		return SessionView{}, err
	}

	slog.InfoContext(ctx, "lifecycle action dispatched",
		"accepted", result.Accepted,
		"reported_status", result.Status)

	if v.pending != nil {
		v.pending.Add(alert.ID, kind.expectedStatus())
	}
	if stillOpen && current == sess {
		sess.phase = PhaseClosed
		sess.submitting = ""
	}

	if v.onComplete != nil {
		// Sequenced after the response; detached so the session close is
		// never held up by the list refresh.
		go v.onComplete(context.WithoutCancel(ctx))
	}

	if stillOpen && current == sess {
		return v.viewLocked(sess), nil
	}
	return SessionView{}, nil
}

func (v *Validator) dispatch(ctx context.Context, reportID int64, kind ActionKind, notes, token string) (*backend.ActionResult, error) {
	switch kind {
	case ActionCertify:
		return v.client.Certify(ctx, reportID, token)
	case ActionEscalate:
		return v.client.Escalate(ctx, reportID, notes, token)
	default:
		return v.client.Breach(ctx, reportID, notes, token)
	}
}

// record persists the journal entry and publishes the audit event.
// Both are best-effort: the action already happened server-side, so a
// bookkeeping failure is logged rather than surfaced as an action failure.
func (v *Validator) record(ctx context.Context, alert model.GapAlert, reportID int64, kind ActionKind, notes, token string, result *backend.ActionResult, actionErr error) {
	entry := &journal.Entry{
		AlertID:        alert.ID,
		ReportID:       reportID,
		Action:         string(kind),
		IdempotencyKey: token,
		Notes:          notes,
	}
	switch {
	case actionErr != nil:
		entry.Outcome = journal.OutcomeFailed
		entry.ErrorMessage = actionErr.Error()
		var apiErr *backend.APIError
		if errors.As(actionErr, &apiErr) {
			entry.HTTPStatus = apiErr.StatusCode
		}
	case result.Accepted:
		entry.Outcome = journal.OutcomeAccepted
		entry.HTTPStatus = 202
	default:
		entry.Outcome = journal.OutcomeCompleted
		entry.HTTPStatus = 200
	}

	if v.journal != nil {
		if err := v.journal.Record(ctx, entry); err != nil {
			slog.ErrorContext(ctx, "journal write failed", "error", err)
		}
	}
	if v.audit != nil {
		event := audit.Event{
			AlertID:        alert.ID,
			ReportID:       reportID,
			Action:         string(kind),
			Outcome:        string(entry.Outcome),
			IdempotencyKey: token,
		}
		if err := v.audit.Publish(ctx, event); err != nil {
			slog.ErrorContext(ctx, "audit publish failed", "error", err)
		}
	}
}

func (v *Validator) viewLocked(sess *session) SessionView {
	return SessionView{
		ReportID:       sess.reportID,
		AlertID:        sess.alert.ID,
		Phase:          sess.phase,
		Analysis:       sess.analysis,
		LoadError:      sess.loadErr,
		Submitting:     sess.submitting,
		ActionError:    sess.actionErr,
		AllowedActions: allowedActions(sess),
		OpenedAt:       sess.openedAt,
	}
}

// allowedActions reflects the entry rules: nothing until an analysis with
// gaps is loaded, and escalate disappears once the alert is escalated.
func allowedActions(sess *session) []ActionKind {
	if sess.phase != PhaseReady || sess.analysis == nil || !sess.analysis.HasGaps() {
		return []ActionKind{}
	}
	actions := []ActionKind{ActionCertify}
	if sess.alert.Status != model.AlertStatusEscalated {
		actions = append(actions, ActionEscalate)
	}
	actions = append(actions, ActionBreach)
	return actions
}
