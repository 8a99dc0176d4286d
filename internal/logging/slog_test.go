package logging

import (
	"errors"
	"log/slog"
	"testing"
)

func TestWithOperation(t *testing.T) {
	logger := slog.Default()
	result := WithOperation(logger, "test_operation")
	if result == nil {
		t.Error("WithOperation returned nil")
	}
}

func TestWithUser(t *testing.T) {
	logger := slog.Default()
	result := WithUser(logger, "alice")
	if result == nil {
		t.Error("WithUser returned nil")
	}
}

func TestOperationAttr(t *testing.T) {
	attr := Operation("test_op")
	if attr.Key != KeyOperation {
		t.Errorf("Operation key = %q, want %q", attr.Key, KeyOperation)
	}
	if attr.Value.String() != "test_op" {
		t.Errorf("Operation value = %q, want %q", attr.Value.String(), "test_op")
	}
}

func TestCalendarIDAttr(t *testing.T) {
	attr := CalendarID("team@group.calendar.google.com")
	if attr.Key != KeyCalendarID {
		t.Errorf("CalendarID key = %q, want %q", attr.Key, KeyCalendarID)
	}
	if attr.Value.String() != "team@group.calendar.google.com" {
		t.Errorf("CalendarID value = %q, want %q", attr.Value.String(), "team@group.calendar.google.com")
	}
}

func TestTimeframeAttr(t *testing.T) {
	attr := Timeframe("week")
	if attr.Key != KeyTimeframe {
		t.Errorf("Timeframe key = %q, want %q", attr.Key, KeyTimeframe)
	}
	if attr.Value.String() != "week" {
		t.Errorf("Timeframe value = %q, want %q", attr.Value.String(), "week")
	}
}

func TestStatusAttr(t *testing.T) {
	attr := Status(StatusSuccess)
	if attr.Key != KeyStatus {
		t.Errorf("Status key = %q, want %q", attr.Key, KeyStatus)
	}
	if attr.Value.String() != StatusSuccess {
		t.Errorf("Status value = %q, want %q", attr.Value.String(), StatusSuccess)
	}
}

func TestErr(t *testing.T) {
	// Test with error
	err := errors.New("test error")
	attr := Err(err)
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "test error" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "test error")
	}

	// Test with nil - should return an empty group that slog will omit
	attr = Err(nil)
	// Empty Group has empty key
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty string (empty group)", attr.Key)
	}
}

func TestAnonymizeUserID(t *testing.T) {
	tests := []struct {
		userID   string
		wantLen  int  // Expected length of result (0 for empty)
		hasValue bool // Whether result should have a value
	}{
		{"jane@example.com", 21, true}, // "user:" + 16 hex chars
		{"alice", 21, true},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.userID, func(t *testing.T) {
			result := AnonymizeUserID(tt.userID)
			if tt.hasValue {
				if len(result) != tt.wantLen {
					t.Errorf("AnonymizeUserID(%q) length = %d, want %d", tt.userID, len(result), tt.wantLen)
				}
				if result[:5] != "user:" {
					t.Errorf("AnonymizeUserID(%q) should start with 'user:', got %q", tt.userID, result)
				}
			} else {
				if result != "" {
					t.Errorf("AnonymizeUserID(%q) = %q, want empty string", tt.userID, result)
				}
			}
		})
	}

	// Test deterministic hashing
	hash1 := AnonymizeUserID("alice")
	hash2 := AnonymizeUserID("alice")
	if hash1 != hash2 {
		t.Error("AnonymizeUserID should return deterministic results")
	}

	// Test different user IDs produce different hashes
	hash3 := AnonymizeUserID("bob")
	if hash1 == hash3 {
		t.Error("Different user IDs should produce different hashes")
	}
}

func TestUserHash(t *testing.T) {
	attr := UserHash("alice")
	if attr.Key != KeyUserHash {
		t.Errorf("UserHash key = %q, want %q", attr.Key, KeyUserHash)
	}
	if len(attr.Value.String()) != 21 {
		t.Errorf("UserHash value length = %d, want 21", len(attr.Value.String()))
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"", "<empty>"},
		{"abc123", "[token:6 chars]"},
		{"a_very_long_token_string", "[token:24 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := SanitizeToken(tt.token)
			if result != tt.expected {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, result, tt.expected)
			}
		})
	}
}

func TestStatusConstants(t *testing.T) {
	if StatusSuccess != "success" {
		t.Errorf("StatusSuccess = %q, want %q", StatusSuccess, "success")
	}
	if StatusError != "error" {
		t.Errorf("StatusError = %q, want %q", StatusError, "error")
	}
}
