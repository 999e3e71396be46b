package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Handlers and workers enrich the context once (session, ticket, queue message) and every
// log statement below them picks the fields up.
type LogFields struct {
	SessionID *string // Intake conversation ID
	TicketID  *string // Finalized ticket ID
	MessageID *string // Redis stream message ID
	Action    *string // Chat action (start, respond, confirm)
	Tracker   *string // Issue tracker the ticket is delivered to
	Component string  // Component name (OTel semantic convention style, e.g., "intake.worker.delivery")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
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

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.SessionID != nil {
		result.SessionID = new.SessionID
	}
	if new.TicketID != nil {
		result.TicketID = new.TicketID
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.Action != nil {
		result.Action = new.Action
	}
	if new.Tracker != nil {
		result.Tracker = new.Tracker
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{SessionID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen bytes, appending "..." if truncated.
// Useful for logging user-provided text such as problem statements.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
