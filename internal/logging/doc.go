// Package logging provides structured logging helpers built on log/slog.
//
// It defines canonical attribute keys used across the codebase, constructors
// for common attributes, and sanitization helpers so that tokens and user
// identifiers never appear in log output in the clear.
package logging
