// Package instrumentation provides OpenTelemetry-based metrics and tracing
// for the calendar bridge.
//
// It wires a meter provider (Prometheus, OTLP, or stdout exporters), an
// optional tracer provider, and a Metrics recorder with counters and
// histograms for HTTP traffic, provider API calls, token exchanges, and the
// multi-calendar aggregation fan-out.
//
// Configuration is environment-driven; see DefaultConfig. When
// instrumentation is disabled every recorder degrades to a no-op, so callers
// never need to nil-check.
package instrumentation
