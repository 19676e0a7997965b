// Package journal persists a record of every lifecycle action the console
// dispatches to the backend. The journal is evidence for operators and
// support; the lifecycle itself never consults it - the authoritative alert
// state stays server-resident.
package journal

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleetgap.app/console/common/id"
)

type Outcome string

const (
	// OutcomeAccepted records a 202: the backend job is still running.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeCompleted records a legacy 200 synchronous completion.
	OutcomeCompleted Outcome = "completed"
	// OutcomeFailed records a dispatch that the backend rejected.
	OutcomeFailed Outcome = "failed"
)

// Entry is one dispatched certify/escalate/breach call.
type Entry struct {
	ID             int64     `json:"id"`
	AlertID        int64     `json:"alert_id"`
	ReportID       int64     `json:"report_id"`
	Action         string    `json:"action"`
	IdempotencyKey string    `json:"idempotency_key"`
	Notes          string    `json:"notes,omitempty"`
	HTTPStatus     int       `json:"http_status"`
	Outcome        Outcome   `json:"outcome"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	DispatchedAt   time.Time `json:"dispatched_at"`
}

// Store defines the contract for journal data access.
type Store interface {
	Record(ctx context.Context, entry *Entry) error
	ListByReport(ctx context.Context, reportID int64) ([]Entry, error)
	ListRecent(ctx context.Context, limit int32) ([]Entry, error)
}

type pgStore struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) Record(ctx context.Context, entry *Entry) error {
	if entry.ID == 0 {
		entry.ID = id.New()
	}
	if entry.DispatchedAt.IsZero() {
		entry.DispatchedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO action_journal
			(id, alert_id, report_id, action, idempotency_key, notes, http_status, outcome, error_message, dispatched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.AlertID, entry.ReportID, entry.Action, entry.IdempotencyKey,
		nullable(entry.Notes), entry.HTTPStatus, string(entry.Outcome),
		nullable(entry.ErrorMessage), entry.DispatchedAt,
	)
	return err
}

func (s *pgStore) ListByReport(ctx context.Context, reportID int64) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, alert_id, report_id, action, idempotency_key, notes, http_status, outcome, error_message, dispatched_at
		FROM action_journal
		WHERE report_id = $1
		ORDER BY dispatched_at DESC`,
		reportID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *pgStore) ListRecent(ctx context.Context, limit int32) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, alert_id, report_id, action, idempotency_key, notes, http_status, outcome, error_message, dispatched_at
		FROM action_journal
		ORDER BY dispatched_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var notes, errMsg *string
		var outcome string
		if err := rows.Scan(&e.ID, &e.AlertID, &e.ReportID, &e.Action, &e.IdempotencyKey,
			&notes, &e.HTTPStatus, &outcome, &errMsg, &e.DispatchedAt); err != nil {
			return nil, err
		}
		e.Outcome = Outcome(outcome)
		if notes != nil {
			e.Notes = *notes
		}
		if errMsg != nil {
			e.ErrorMessage = *errMsg
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
