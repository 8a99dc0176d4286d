package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates no record exists for the user: the account was never
// linked. Callers map this to "please authorize first", not to a server
// fault.
var ErrNotFound = errors.New("no credential record for user")

// Record is one user's stored credential state. All fields are mandatory; a
// stored record missing any of them is corrupt.
type Record struct {
	RefreshToken string    `json:"refresh_token"`
	Provider     string    `json:"provider"`
	Timezone     string    `json:"timezone"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate reports the first missing mandatory field.
func (r Record) Validate() error {
	if r.RefreshToken == "" {
		return errors.New("record missing refresh_token")
	}
	if r.Provider == "" {
		return errors.New("record missing provider")
	}
	if r.Timezone == "" {
		return errors.New("record missing timezone")
	}
	if r.CreatedAt.IsZero() {
		return errors.New("record missing created_at")
	}
	return nil
}

// Store is the credential store consumed by the bridge.
type Store interface {
	// Get returns the user's record, ErrNotFound if the account was never
	// linked, or a distinct error if the stored record is corrupt.
	Get(ctx context.Context, userID string) (Record, error)

	// Put writes the user's record, replacing any previous one.
	Put(ctx context.Context, userID string, record Record) error
}
