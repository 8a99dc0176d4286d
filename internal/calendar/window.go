package calendar

import (
	"fmt"
	"time"
)

// Window labels.
const (
	LabelToday = "today"
	LabelWeek  = "week"
)

// TimeWindow is an absolute half-open time range [Start, End) derived from a
// civil date in a target timezone.
type TimeWindow struct {
	Start time.Time
	End   time.Time
	Label string
}

// Valid reports whether both bounds are set and ordered.
func (w TimeWindow) Valid() bool {
	return !w.Start.IsZero() && !w.End.IsZero() && w.Start.Before(w.End)
}

// ComputeWindow computes the absolute window for "today" or "week" as
// observed in the given IANA timezone at the reference instant.
//
// "today" is [local midnight, +24h). "week" is [local Monday midnight,
// +7*24h). The UTC offset is taken once, at the reference instant, and
// applied to the local civil date; a DST transition falling exactly on local
// midnight shifts the boundary by the transition amount. Results never
// depend on the host process's timezone.
func ComputeWindow(label, timezone string, now time.Time) (TimeWindow, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("%w: %q", ErrUnknownTimezone, timezone)
	}

	local := now.In(loc)
	year, month, day := local.Date()
	_, offsetSeconds := local.Zone()

	// Local midnight of the civil date, expressed as an absolute instant.
	dayStart := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).
		Add(-time.Duration(offsetSeconds) * time.Second)

	switch label {
	case LabelToday:
		return TimeWindow{
			Start: dayStart,
			End:   dayStart.Add(24 * time.Hour),
			Label: LabelToday,
		}, nil
	case LabelWeek:
		// Monday-start week; time.Weekday has Sunday=0.
		daysFromMonday := (int(local.Weekday()) + 6) % 7
		weekStart := dayStart.Add(-time.Duration(daysFromMonday) * 24 * time.Hour)
		return TimeWindow{
			Start: weekStart,
			End:   weekStart.Add(7 * 24 * time.Hour),
			Label: LabelWeek,
		}, nil
	default:
		return TimeWindow{}, fmt.Errorf("unknown window label %q", label)
	}
}
