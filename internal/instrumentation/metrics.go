package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	// Common attributes (reused across metrics)
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrGrant     = "grant_type"
	attrTimeframe = "timeframe"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Google API metrics
	providerOperationsTotal   metric.Int64Counter
	providerOperationDuration metric.Float64Histogram

	// OAuth metrics
	oauthExchangesTotal metric.Int64Counter

	// Aggregation metrics
	aggregationsTotal        metric.Int64Counter
	aggregationDuration      metric.Float64Histogram
	aggregationFanout        metric.Int64Histogram
	calendarFetchErrorsTotal metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	// HTTP Metrics
	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	// Google API Metrics
	m.providerOperationsTotal, err = meter.Int64Counter(
		"google_api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operations_total counter: %w", err)
	}

	m.providerOperationDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operation_duration_seconds histogram: %w", err)
	}

	// OAuth Metrics
	m.oauthExchangesTotal, err = meter.Int64Counter(
		"oauth_token_exchanges_total",
		metric.WithDescription("Total number of OAuth token endpoint requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_exchanges_total counter: %w", err)
	}

	// Aggregation Metrics
	m.aggregationsTotal, err = meter.Int64Counter(
		"calendar_aggregations_total",
		metric.WithDescription("Total number of multi-calendar aggregation runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_aggregations_total counter: %w", err)
	}

	m.aggregationDuration, err = meter.Float64Histogram(
		"calendar_aggregation_duration_seconds",
		metric.WithDescription("Multi-calendar aggregation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_aggregation_duration_seconds histogram: %w", err)
	}

	m.aggregationFanout, err = meter.Int64Histogram(
		"calendar_aggregation_fanout",
		metric.WithDescription("Number of calendars fetched per aggregation run"),
		metric.WithUnit("{calendar}"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 25, 50, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_aggregation_fanout histogram: %w", err)
	}

	m.calendarFetchErrorsTotal, err = meter.Int64Counter(
		"calendar_fetch_errors_total",
		metric.WithDescription("Total number of per-calendar fetch failures tolerated during aggregation"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_fetch_errors_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordProviderOperation records a Google API operation with service, operation,
// status, and duration.
//
// Parameters:
//   - service: Provider surface ("calendar" or "oauth")
//   - operation: Operation type (list_calendars, list_events, exchange_code, refresh_token)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordProviderOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m.providerOperationsTotal == nil || m.providerOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.providerOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.providerOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordTokenExchange records an OAuth token endpoint request with grant type
// and result. Result should be one of: "success", "failure".
func (m *Metrics) RecordTokenExchange(ctx context.Context, grantType, result string) {
	if m.oauthExchangesTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrGrant, grantType),
		attribute.String(attrResult, result),
	}

	m.oauthExchangesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAggregation records one multi-calendar aggregation run.
//
// Parameters:
//   - timeframe: Window label ("today" or "week")
//   - status: Result status ("success" or "error")
//   - calendars: Number of readable calendars fanned out to
//   - failures: Number of per-calendar fetch failures tolerated
//   - duration: Time taken for the whole run
func (m *Metrics) RecordAggregation(ctx context.Context, timeframe, status string, calendars, failures int, duration time.Duration) {
	if m.aggregationsTotal == nil || m.aggregationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTimeframe, timeframe),
		attribute.String(attrStatus, status),
	}

	m.aggregationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.aggregationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.aggregationFanout.Record(ctx, int64(calendars), metric.WithAttributes(attribute.String(attrTimeframe, timeframe)))

	if failures > 0 {
		m.calendarFetchErrorsTotal.Add(ctx, int64(failures), metric.WithAttributes(attribute.String(attrTimeframe, timeframe)))
	}
}
