package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within
// a context. Fields flow through context enrichment so business context
// (alert_id, report_id, ...) shows up in every log statement without being
// threaded by hand.
type LogFields struct {
	AlertID   *int64  // Gap alert ID
	ReportID  *int64  // PDF report ID backing a validation session
	Action    *string // Lifecycle action ("certify", "escalate", "breach")
	Page      *int    // Alert list page in play
	Trigger   *string // What caused a refresh ("poll", "manual", "action")
	Component string  // Component name (e.g. "console.scheduler")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking
// precedence. Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.AlertID != nil {
		result.AlertID = next.AlertID
	}
	if next.ReportID != nil {
		result.ReportID = next.ReportID
	}
	if next.Action != nil {
		result.Action = next.Action
	}
	if next.Page != nil {
		result.Page = next.Page
	}
	if next.Trigger != nil {
		result.Trigger = next.Trigger
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{AlertID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if
// truncated. Useful for logging potentially long error bodies.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
