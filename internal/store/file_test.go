package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validRecord() Record {
	return Record{
		RefreshToken: "1//refresh",
		Provider:     "google",
		Timezone:     "America/Santiago",
		CreatedAt:    time.Date(2024, time.June, 12, 15, 0, 0, 0, time.UTC),
	}
}

func TestRecord_Validate(t *testing.T) {
	if err := validRecord().Validate(); err != nil {
		t.Errorf("valid record failed validation: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Record)
	}{
		{"missing refresh token", func(r *Record) { r.RefreshToken = "" }},
		{"missing provider", func(r *Record) { r.Provider = "" }},
		{"missing timezone", func(r *Record) { r.Timezone = "" }},
		{"missing created at", func(r *Record) { r.CreatedAt = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := validRecord()
			tt.mutate(&record)
			if record.Validate() == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	ctx := context.Background()
	want := validRecord()

	if err := fs.Put(ctx, "alice@example.com", want); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := fs.Get(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if got.RefreshToken != want.RefreshToken || got.Provider != want.Provider ||
		got.Timezone != want.Timezone || !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestFileStore_NotFound(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	_, err = fs.Get(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestFileStore_CorruptRecordIsNotNotFound(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	// Write garbage where the record should be.
	path := filepath.Join(dir, "alice@example.com.json")
	if err := os.WriteFile(path, []byte("not json"), 0600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	_, err = fs.Get(context.Background(), "alice@example.com")
	if err == nil {
		t.Fatal("expected error for corrupt record")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("corrupt record must not be reported as absence")
	}
}

func TestFileStore_IncompleteRecordIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	path := filepath.Join(dir, "alice@example.com.json")
	if err := os.WriteFile(path, []byte(`{"provider": "google"}`), 0600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	_, err = fs.Get(context.Background(), "alice@example.com")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want a corrupt-record error", err)
	}
}

func TestFileStore_RejectsInvalidPut(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	record := validRecord()
	record.RefreshToken = ""

	if err := fs.Put(context.Background(), "alice@example.com", record); err == nil {
		t.Error("expected Put to reject an invalid record")
	}
}

func TestFileStore_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if err := fs.Put(context.Background(), "alice@example.com", validRecord()); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "alice@example.com.json"))
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}
}

func TestFileStore_EscapesUserID(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	ctx := context.Background()
	userID := "weird/../user"

	if err := fs.Put(ctx, userID, validRecord()); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := fs.Get(ctx, userID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.RefreshToken != "1//refresh" {
		t.Errorf("unexpected record: %+v", got)
	}

	// Nothing may escape the store directory.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected exactly one file in store dir, got %d", len(entries))
	}
}
