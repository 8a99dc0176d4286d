package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/openclaw/gcalbridge/internal/logging"
)

// RequestAudit captures information about a bridge request for audit logging.
// It covers account linking and calendar reads.
//
// # Privacy Considerations
//
// The UserID field contains PII. Audit entries log the anonymized hash by
// default; the raw identifier is only included when IncludePII is enabled on
// the AuditLogger, for deployments whose audit stream has access controls.
type RequestAudit struct {
	// Operation name (link_account, list_calendars, events_today, events_week)
	Operation string

	// User identity (from the X-User-Id header)
	UserID string

	// Window label for event reads ("today", "week"); empty otherwise
	Timeframe string

	// Fan-out details for aggregation requests
	Calendars int
	Failures  int

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// NewRequestAudit creates a new RequestAudit with timing started.
// Call Complete() when the request finishes.
func NewRequestAudit(operation, userID string) *RequestAudit {
	return &RequestAudit{
		Operation: operation,
		UserID:    userID,
		StartTime: time.Now(),
	}
}

// WithTimeframe sets the window label.
func (ra *RequestAudit) WithTimeframe(label string) *RequestAudit {
	ra.Timeframe = label
	return ra
}

// WithFanout sets the aggregation fan-out details.
func (ra *RequestAudit) WithFanout(calendars, failures int) *RequestAudit {
	ra.Calendars = calendars
	ra.Failures = failures
	return ra
}

// WithSpanContext extracts trace context from the current span.
func (ra *RequestAudit) WithSpanContext(ctx context.Context) *RequestAudit {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ra.TraceID = span.SpanContext().TraceID().String()
		ra.SpanID = span.SpanContext().SpanID().String()
	}
	return ra
}

// Complete marks the request as finished and calculates duration.
// Returns the same RequestAudit for method chaining.
func (ra *RequestAudit) Complete(success bool, err error) *RequestAudit {
	ra.Duration = time.Since(ra.StartTime)
	ra.Success = success
	if err != nil {
		ra.Error = err.Error()
	}
	return ra
}

// Status returns "success" or "error" based on the Success field.
func (ra *RequestAudit) Status() string {
	if ra.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes with the anonymized user identifier.
func (ra *RequestAudit) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("operation", ra.Operation),
		slog.String("user_hash", logging.AnonymizeUserID(ra.UserID)),
		slog.Duration("duration", ra.Duration),
		slog.Bool("success", ra.Success),
	}

	if ra.Timeframe != "" {
		attrs = append(attrs, slog.String("timeframe", ra.Timeframe))
	}
	if ra.Calendars > 0 {
		attrs = append(attrs, slog.Int("calendars", ra.Calendars))
	}
	if ra.Failures > 0 {
		attrs = append(attrs, slog.Int("calendar_failures", ra.Failures))
	}
	if ra.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ra.TraceID))
	}
	if ra.Error != "" {
		attrs = append(attrs, slog.String("error", ra.Error))
	}

	return attrs
}

// LogAuditAttrs returns slog attributes including the raw user identifier.
//
// # Security Warning
//
// This method includes PII. Ensure audit logs are stored securely with
// appropriate access controls and retention.
func (ra *RequestAudit) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("operation", ra.Operation),
		slog.String("user", ra.UserID),
		slog.Duration("duration", ra.Duration),
		slog.Bool("success", ra.Success),
	}

	if ra.Timeframe != "" {
		attrs = append(attrs, slog.String("timeframe", ra.Timeframe))
	}
	if ra.Calendars > 0 {
		attrs = append(attrs, slog.Int("calendars", ra.Calendars))
	}
	if ra.Failures > 0 {
		attrs = append(attrs, slog.Int("calendar_failures", ra.Failures))
	}
	if ra.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ra.TraceID))
	}
	if ra.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ra.SpanID))
	}
	if ra.Error != "" {
		attrs = append(attrs, slog.String("error", ra.Error))
	}

	return attrs
}

// AuditLogger provides structured audit logging for bridge requests.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates a new AuditLogger with the given slog.Logger.
// By default, PII is not included (anonymized identifiers are used instead).
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: false,
		enabled:    true,
	}
}

// SetIncludePII sets whether to include raw user identifiers in audit logs.
func (al *AuditLogger) SetIncludePII(include bool) {
	al.includePII = include
}

// SetEnabled sets whether audit logging is enabled.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// LogRequest logs a completed bridge request.
// If the logger is configured with IncludePII, raw user identifiers are
// logged; otherwise only anonymized hashes appear.
func (al *AuditLogger) LogRequest(ra *RequestAudit) {
	if !al.enabled {
		return
	}

	var attrs []slog.Attr
	if al.includePII {
		attrs = ra.LogAuditAttrs()
	} else {
		attrs = ra.LogAttrs()
	}

	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ra.Success {
		al.logger.Info("request_completed", args...)
	} else {
		al.logger.Warn("request_failed", args...)
	}
}
