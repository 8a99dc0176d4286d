// Package server exposes the bridge over HTTP.
//
// The main server carries the OAuth linking routes and the calendar routes,
// authenticated by the X-User-Id header, and answers Kubernetes liveness and
// readiness probes. Prometheus metrics are served on a dedicated port by
// MetricsServer so operational data stays off the application listener.
package server
