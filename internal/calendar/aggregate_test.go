package calendar

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is an EventSource backed by in-memory fixtures.
type fakeSource struct {
	mu sync.Mutex

	directory    []ListEntry
	directoryErr error

	events    map[string][]Event
	eventErrs map[string]error

	fetched []string
}

func (f *fakeSource) ListCalendars(ctx context.Context, accessToken string) ([]ListEntry, error) {
	if f.directoryErr != nil {
		return nil, f.directoryErr
	}
	return f.directory, nil
}

func (f *fakeSource) ListEvents(ctx context.Context, accessToken, calendarID string, window TimeWindow, opts EventsOptions) (EventsPage, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, calendarID)
	f.mu.Unlock()

	if err, ok := f.eventErrs[calendarID]; ok {
		return EventsPage{}, err
	}
	return EventsPage{Events: f.events[calendarID]}, nil
}

func TestAggregator_MergesAndSorts(t *testing.T) {
	source := &fakeSource{
		directory: []ListEntry{
			{ID: "cal-a", Summary: "Work", AccessRole: "owner", BackgroundColor: "#fff"},
			{ID: "cal-b", Summary: "Shared", AccessRole: "reader"},
		},
		events: map[string][]Event{
			"cal-a": {{ID: "e1", Start: EventTime{DateTime: "2024-06-10T09:00:00Z"}}},
			"cal-b": {{ID: "e2", Start: EventTime{DateTime: "2024-06-10T08:00:00Z"}}},
		},
	}

	agg := NewAggregator(source, nil, nil)

	result, err := agg.Aggregate(context.Background(), "token", testWindow(t))
	require.NoError(t, err)

	require.Len(t, result.Events, 2)
	assert.Equal(t, "e2", result.Events[0].ID, "earlier start must sort first")
	assert.Equal(t, "e1", result.Events[1].ID)
	assert.Empty(t, result.Errors)

	// Tagging carries the source calendar's metadata.
	assert.Equal(t, "cal-b", result.Events[0].CalendarID)
	assert.Equal(t, "Shared", result.Events[0].CalendarSummary)
	assert.Equal(t, "cal-a", result.Events[1].CalendarID)
	assert.Equal(t, "Work", result.Events[1].CalendarSummary)
	assert.Equal(t, "#fff", result.Events[1].CalendarColor)
}

func TestAggregator_FiltersUnreadableCalendars(t *testing.T) {
	source := &fakeSource{
		directory: []ListEntry{
			{ID: "cal-a", AccessRole: "writer"},
			{ID: "cal-busy", AccessRole: "freeBusyReader"},
			{ID: "cal-none", AccessRole: ""},
		},
		events: map[string][]Event{
			"cal-a": {{ID: "e1", Start: EventTime{DateTime: "2024-06-10T09:00:00Z"}}},
		},
	}

	agg := NewAggregator(source, nil, nil)

	result, err := agg.Aggregate(context.Background(), "token", testWindow(t))
	require.NoError(t, err)

	require.Len(t, result.Calendars, 1)
	assert.Equal(t, "cal-a", result.Calendars[0].ID)
	assert.Equal(t, []string{"cal-a"}, source.fetched, "unreadable calendars must not be fetched")
}

func TestAggregator_PartialFailure(t *testing.T) {
	source := &fakeSource{
		directory: []ListEntry{
			{ID: "cal-a", AccessRole: "owner"},
			{ID: "cal-b", AccessRole: "reader"},
		},
		events: map[string][]Event{
			"cal-b": {{ID: "e2", Start: EventTime{DateTime: "2024-06-10T08:00:00Z"}}},
		},
		eventErrs: map[string]error{
			"cal-a": &EventFetchError{CalendarID: "cal-a", StatusCode: 500, Message: "backend error"},
		},
	}

	agg := NewAggregator(source, nil, nil)

	result, err := agg.Aggregate(context.Background(), "token", testWindow(t))
	require.NoError(t, err, "a single calendar's failure must not fail the aggregate")

	require.Len(t, result.Events, 1)
	assert.Equal(t, "e2", result.Events[0].ID)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "cal-a", result.Errors[0].CalendarID)
	assert.Contains(t, result.Errors[0].Message, "backend error")
}

func TestAggregator_DirectoryFailureIsFatal(t *testing.T) {
	source := &fakeSource{
		directoryErr: &DirectoryFetchError{StatusCode: 401, Message: "Invalid Credentials"},
	}

	agg := NewAggregator(source, nil, nil)

	_, err := agg.Aggregate(context.Background(), "token", testWindow(t))

	var dirErr *DirectoryFetchError
	require.ErrorAs(t, err, &dirErr)
	assert.Equal(t, 401, dirErr.StatusCode)
}

func TestAggregator_ZeroCalendars(t *testing.T) {
	source := &fakeSource{
		directory: []ListEntry{
			{ID: "cal-busy", AccessRole: "freeBusyReader"},
		},
	}

	agg := NewAggregator(source, nil, nil)

	result, err := agg.Aggregate(context.Background(), "token", testWindow(t))
	require.NoError(t, err, "zero readable calendars is not a failure")
	assert.Empty(t, result.Events)
	assert.Empty(t, result.Calendars)
	assert.Empty(t, result.Errors)
}

func TestAggregator_StableSortOnEqualStarts(t *testing.T) {
	// Equal effective starts keep per-calendar fetch order: all of cal-a's
	// events precede cal-b's because cal-a comes first in the directory.
	source := &fakeSource{
		directory: []ListEntry{
			{ID: "cal-a", AccessRole: "owner"},
			{ID: "cal-b", AccessRole: "owner"},
		},
		events: map[string][]Event{
			"cal-a": {
				{ID: "a1", Start: EventTime{DateTime: "2024-06-10T09:00:00Z"}},
				{ID: "a2", Start: EventTime{DateTime: "2024-06-10T09:00:00Z"}},
			},
			"cal-b": {
				{ID: "b1", Start: EventTime{DateTime: "2024-06-10T09:00:00Z"}},
			},
		},
	}

	agg := NewAggregator(source, nil, nil)

	result, err := agg.Aggregate(context.Background(), "token", testWindow(t))
	require.NoError(t, err)

	ids := make([]string, 0, len(result.Events))
	for _, event := range result.Events {
		ids = append(ids, event.ID)
	}
	assert.Equal(t, []string{"a1", "a2", "b1"}, ids)
}

func TestAggregator_AllDayAndTimedEventsInterleave(t *testing.T) {
	// An all-day date sorts before any timed event on the same day because
	// "2024-06-10" < "2024-06-10T..." lexicographically.
	source := &fakeSource{
		directory: []ListEntry{
			{ID: "cal-a", AccessRole: "owner"},
		},
		events: map[string][]Event{
			"cal-a": {
				{ID: "timed", Start: EventTime{DateTime: "2024-06-10T09:00:00Z"}},
				{ID: "allday", Start: EventTime{Date: "2024-06-10"}},
			},
		},
	}

	agg := NewAggregator(source, nil, nil)

	result, err := agg.Aggregate(context.Background(), "token", testWindow(t))
	require.NoError(t, err)

	require.Len(t, result.Events, 2)
	assert.Equal(t, "allday", result.Events[0].ID)
	assert.Equal(t, "timed", result.Events[1].ID)
}

func TestAggregator_EventsMatchCalendarList(t *testing.T) {
	source := &fakeSource{
		directory: []ListEntry{
			{ID: "cal-a", AccessRole: "owner"},
			{ID: "cal-b", AccessRole: "reader"},
		},
		events: map[string][]Event{
			"cal-a": {{ID: "e1", Start: EventTime{DateTime: "2024-06-10T09:00:00Z"}}},
			"cal-b": {{ID: "e2", Start: EventTime{DateTime: "2024-06-10T10:00:00Z"}}},
		},
	}

	agg := NewAggregator(source, nil, nil)

	result, err := agg.Aggregate(context.Background(), "token", testWindow(t))
	require.NoError(t, err)

	known := map[string]bool{}
	for _, entry := range result.Calendars {
		known[entry.ID] = true
	}
	for _, event := range result.Events {
		assert.True(t, known[event.CalendarID], "event %s references unknown calendar %s", event.ID, event.CalendarID)
	}
}
