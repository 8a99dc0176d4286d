package calendar

import (
	"errors"
	"fmt"
)

// ErrUnknownTimezone is returned by ComputeWindow when the supplied IANA
// timezone name cannot be resolved. It is a configuration error and fatal to
// the request; there is no fallback timezone.
var ErrUnknownTimezone = errors.New("unknown timezone")

// InvalidRangeError indicates a window missing one or both bounds. It is a
// caller bug and is raised before any network call.
type InvalidRangeError struct {
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return "invalid time range: " + e.Reason
}

// DirectoryFetchError indicates the calendarList fetch failed. It is fatal
// to the whole aggregation.
type DirectoryFetchError struct {
	StatusCode int
	Message    string
}

func (e *DirectoryFetchError) Error() string {
	return fmt.Sprintf("calendar directory fetch failed (status %d): %s", e.StatusCode, e.Message)
}

// EventFetchError indicates a single calendar's event fetch failed. The
// Aggregator converts it into a per-calendar error entry instead of failing
// the aggregate call.
type EventFetchError struct {
	CalendarID string
	StatusCode int
	Message    string
}

func (e *EventFetchError) Error() string {
	return fmt.Sprintf("event fetch for calendar %q failed (status %d): %s", e.CalendarID, e.StatusCode, e.Message)
}

// CalendarError is the per-calendar failure entry in an aggregation result.
type CalendarError struct {
	CalendarID string `json:"calendar_id"`
	Message    string `json:"message"`
}
