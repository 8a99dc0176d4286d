package calendar

import (
	"errors"
	"testing"
	"time"
)

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parsing %q: %v", value, err)
	}
	return ts
}

func TestComputeWindow_WeekSantiago(t *testing.T) {
	// Wednesday afternoon UTC; Santiago is UTC-4 in June.
	now := mustParse(t, "2024-06-12T15:00:00Z")

	window, err := ComputeWindow(LabelWeek, "America/Santiago", now)
	if err != nil {
		t.Fatalf("ComputeWindow() error = %v", err)
	}

	wantStart := mustParse(t, "2024-06-10T04:00:00Z")
	wantEnd := mustParse(t, "2024-06-17T04:00:00Z")

	if !window.Start.Equal(wantStart) {
		t.Errorf("week start = %v, want %v", window.Start, wantStart)
	}
	if !window.End.Equal(wantEnd) {
		t.Errorf("week end = %v, want %v", window.End, wantEnd)
	}
	if window.Label != LabelWeek {
		t.Errorf("label = %q, want %q", window.Label, LabelWeek)
	}
}

func TestComputeWindow_Today(t *testing.T) {
	tests := []struct {
		name      string
		timezone  string
		now       string
		wantStart string
		wantEnd   string
	}{
		{
			name:      "santiago afternoon",
			timezone:  "America/Santiago",
			now:       "2024-06-12T15:00:00Z",
			wantStart: "2024-06-12T04:00:00Z",
			wantEnd:   "2024-06-13T04:00:00Z",
		},
		{
			name:     "utc",
			timezone: "UTC",
			now:      "2024-06-12T15:00:00Z",

			wantStart: "2024-06-12T00:00:00Z",
			wantEnd:   "2024-06-13T00:00:00Z",
		},
		{
			name:      "tokyo crosses civil date",
			timezone:  "Asia/Tokyo",
			now:       "2024-06-12T20:00:00Z", // already June 13 in Tokyo
			wantStart: "2024-06-12T15:00:00Z",
			wantEnd:   "2024-06-13T15:00:00Z",
		},
		{
			name:      "half hour offset",
			timezone:  "Asia/Kolkata",
			now:       "2024-06-12T15:00:00Z",
			wantStart: "2024-06-11T18:30:00Z",
			wantEnd:   "2024-06-12T18:30:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window, err := ComputeWindow(LabelToday, tt.timezone, mustParse(t, tt.now))
			if err != nil {
				t.Fatalf("ComputeWindow() error = %v", err)
			}
			if !window.Start.Equal(mustParse(t, tt.wantStart)) {
				t.Errorf("start = %v, want %v", window.Start, tt.wantStart)
			}
			if !window.End.Equal(mustParse(t, tt.wantEnd)) {
				t.Errorf("end = %v, want %v", window.End, tt.wantEnd)
			}
			if window.End.Sub(window.Start) != 24*time.Hour {
				t.Errorf("duration = %v, want 24h", window.End.Sub(window.Start))
			}
		})
	}
}

func TestComputeWindow_WeekStartsMonday(t *testing.T) {
	// Every day of one UTC week must map to the same Monday-start window.
	wantStart := mustParse(t, "2024-06-10T00:00:00Z")

	for day := 10; day <= 16; day++ {
		now := time.Date(2024, time.June, day, 12, 0, 0, 0, time.UTC)
		window, err := ComputeWindow(LabelWeek, "UTC", now)
		if err != nil {
			t.Fatalf("ComputeWindow() error = %v", err)
		}
		if !window.Start.Equal(wantStart) {
			t.Errorf("day %d: week start = %v, want %v", day, window.Start, wantStart)
		}
		if window.End.Sub(window.Start) != 7*24*time.Hour {
			t.Errorf("day %d: duration = %v, want 168h", day, window.End.Sub(window.Start))
		}
	}
}

func TestComputeWindow_Idempotent(t *testing.T) {
	now := mustParse(t, "2024-06-12T15:00:00Z")

	first, err := ComputeWindow(LabelToday, "America/Santiago", now)
	if err != nil {
		t.Fatalf("ComputeWindow() error = %v", err)
	}
	second, err := ComputeWindow(LabelToday, "America/Santiago", now)
	if err != nil {
		t.Fatalf("ComputeWindow() error = %v", err)
	}

	if !first.Start.Equal(second.Start) || !first.End.Equal(second.End) {
		t.Errorf("windows differ for identical inputs: %v vs %v", first, second)
	}
}

func TestComputeWindow_UnknownTimezone(t *testing.T) {
	_, err := ComputeWindow(LabelToday, "Not/AZone", time.Now())
	if !errors.Is(err, ErrUnknownTimezone) {
		t.Errorf("error = %v, want ErrUnknownTimezone", err)
	}
}

func TestComputeWindow_UnknownLabel(t *testing.T) {
	_, err := ComputeWindow("month", "UTC", time.Now())
	if err == nil {
		t.Error("expected error for unknown label")
	}
}

func TestTimeWindow_Valid(t *testing.T) {
	now := time.Now()

	if (TimeWindow{}).Valid() {
		t.Error("zero window should not be valid")
	}
	if (TimeWindow{Start: now}).Valid() {
		t.Error("window without end should not be valid")
	}
	if (TimeWindow{Start: now, End: now.Add(-time.Hour)}).Valid() {
		t.Error("inverted window should not be valid")
	}
	if !(TimeWindow{Start: now, End: now.Add(time.Hour)}).Valid() {
		t.Error("ordered window should be valid")
	}
}

func TestEventTime_Effective(t *testing.T) {
	precise := EventTime{DateTime: "2024-06-12T09:00:00-04:00", Date: "2024-06-12"}
	if precise.Effective() != "2024-06-12T09:00:00-04:00" {
		t.Errorf("Effective() = %q, want the precise timestamp", precise.Effective())
	}

	allDay := EventTime{Date: "2024-06-12"}
	if allDay.Effective() != "2024-06-12" {
		t.Errorf("Effective() = %q, want the all-day date", allDay.Effective())
	}
}
