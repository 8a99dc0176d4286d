package google

import "fmt"

// ConfigError indicates missing or invalid OAuth client settings. Fatal,
// never retried.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return "oauth config: missing " + e.Field
}

// ExchangeError indicates the token endpoint rejected a request or returned
// malformed data. The provider's error code (for example "invalid_grant")
// is preserved in the message. A rejected authorization code must never be
// retried; codes are single-use.
type ExchangeError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *ExchangeError) Error() string {
	msg := fmt.Sprintf("token exchange failed (status %d)", e.StatusCode)
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Description != "" {
		msg += ": " + e.Description
	}
	return msg
}
