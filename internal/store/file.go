package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// FileStore stores one JSON file per user under a directory. The directory
// is created with 0700 and files are written with 0600; records contain
// long-lived secrets.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a FileStore.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("store directory is required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// path maps a user id to a file name. User ids are typically email
// addresses; escaping keeps them filesystem-safe without collisions.
func (s *FileStore) path(userID string) string {
	return filepath.Join(s.dir, url.PathEscape(userID)+".json")
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, userID string) (Record, error) {
	data, err := os.ReadFile(s.path(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("reading credential record: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("corrupt credential record for user: %w", err)
	}
	if err := record.Validate(); err != nil {
		return Record{}, fmt.Errorf("corrupt credential record for user: %w", err)
	}

	return record, nil
}

// Put implements Store.
func (s *FileStore) Put(_ context.Context, userID string, record Record) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("refusing to store invalid record: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credential record: %w", err)
	}

	if err := os.WriteFile(s.path(userID), data, 0600); err != nil {
		return fmt.Errorf("writing credential record: %w", err)
	}

	return nil
}
