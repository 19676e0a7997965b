// Package audit publishes lifecycle events to a Redis stream so downstream
// consumers (compliance tooling, notification fan-out) can follow what
// operators did without polling the journal table.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Event struct {
	AlertID        int64
	ReportID       int64
	Action         string
	Outcome        string
	IdempotencyKey string
	OccurredAt     time.Time
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type redisPublisher struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisPublisher(client *redis.Client, stream string, logger *slog.Logger) Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisPublisher{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisPublisher) Publish(ctx context.Context, event Event) error {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	fields := map[string]any{
		"alert_id":    event.AlertID,
		"report_id":   event.ReportID,
		"action":      event.Action,
		"outcome":     event.Outcome,
		"occurred_at": occurredAt.Format(time.RFC3339),
	}
	if event.IdempotencyKey != "" {
		fields["idempotency_key"] = event.IdempotencyKey
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}

	p.logger.InfoContext(ctx, "published audit event", "alert_id", event.AlertID, "report_id", event.ReportID, "action", event.Action, "outcome", event.Outcome)
	return nil
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}
