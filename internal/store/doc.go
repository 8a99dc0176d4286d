// Package store persists per-user credential records.
//
// A record holds the long-lived refresh token and the user's timezone. The
// Store interface distinguishes absence (no linked account, ErrNotFound)
// from corrupt state (a stored record that fails validation), which is a
// fatal read error and never auto-repaired. FileStore is the default
// implementation, one JSON file per user with restrictive permissions.
package store
