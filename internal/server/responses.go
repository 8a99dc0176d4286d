package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/openclaw/gcalbridge/internal/bridge"
	"github.com/openclaw/gcalbridge/internal/calendar"
)

// windowResponse mirrors the provider's query parameter names.
type windowResponse struct {
	TimeMin string `json:"timeMin"`
	TimeMax string `json:"timeMax"`
}

// calendarSummaryResponse is the compact calendar shape inside a range
// response.
type calendarSummaryResponse struct {
	ID         string `json:"id"`
	Summary    string `json:"summary"`
	Primary    bool   `json:"primary"`
	AccessRole string `json:"access_role"`
}

// calendarDetailResponse is the full calendar shape for /calendar/list.
type calendarDetailResponse struct {
	ID          string        `json:"id"`
	Summary     string        `json:"summary"`
	Description string        `json:"description,omitempty"`
	Timezone    string        `json:"timezone,omitempty"`
	AccessRole  string        `json:"access_role"`
	Primary     bool          `json:"primary"`
	Color       colorResponse `json:"color"`
	Selected    bool          `json:"selected"`
}

type colorResponse struct {
	Background string `json:"background,omitempty"`
	Foreground string `json:"foreground,omitempty"`
}

// eventResponse is one aggregated event in a range response.
type eventResponse struct {
	ID            string              `json:"id"`
	CalendarID    string              `json:"calendar_id"`
	CalendarName  string              `json:"calendar_name"`
	CalendarColor string              `json:"calendar_color,omitempty"`
	Summary       string              `json:"summary,omitempty"`
	Description   string              `json:"description,omitempty"`
	Location      string              `json:"location,omitempty"`
	HTMLLink      string              `json:"html_link,omitempty"`
	Status        string              `json:"status,omitempty"`
	Start         calendar.EventTime  `json:"start"`
	End           calendar.EventTime  `json:"end"`
	Attendees     []calendar.Attendee `json:"attendees,omitempty"`
	Organizer     *calendar.Person    `json:"organizer,omitempty"`
	Creator       *calendar.Person    `json:"creator,omitempty"`
}

// rangeResponse is the body of /calendar/today and /calendar/week.
type rangeResponse struct {
	Timeframe      string                    `json:"timeframe"`
	Window         windowResponse            `json:"window"`
	UserID         string                    `json:"user_id"`
	Timezone       string                    `json:"timezone"`
	TotalCalendars int                       `json:"total_calendars"`
	TotalEvents    int                       `json:"total_events"`
	Calendars      []calendarSummaryResponse `json:"calendars"`
	Events         []eventResponse           `json:"events"`
	CalendarErrors []calendar.CalendarError  `json:"calendar_errors,omitempty"`
}

func newRangeResponse(result bridge.EventsResult) rangeResponse {
	calendars := make([]calendarSummaryResponse, 0, len(result.Calendars))
	for _, entry := range result.Calendars {
		calendars = append(calendars, calendarSummaryResponse{
			ID:         entry.ID,
			Summary:    entry.Summary,
			Primary:    entry.Primary,
			AccessRole: entry.AccessRole,
		})
	}

	events := make([]eventResponse, 0, len(result.Events))
	for _, event := range result.Events {
		events = append(events, eventResponse{
			ID:            event.ID,
			CalendarID:    event.CalendarID,
			CalendarName:  event.CalendarSummary,
			CalendarColor: event.CalendarColor,
			Summary:       event.Summary,
			Description:   event.Description,
			Location:      event.Location,
			HTMLLink:      event.HTMLLink,
			Status:        event.Status,
			Start:         event.Start,
			End:           event.End,
			Attendees:     event.Attendees,
			Organizer:     event.Organizer,
			Creator:       event.Creator,
		})
	}

	return rangeResponse{
		Timeframe: result.Window.Label,
		Window: windowResponse{
			TimeMin: result.Window.Start.UTC().Format(time.RFC3339),
			TimeMax: result.Window.End.UTC().Format(time.RFC3339),
		},
		UserID:         result.UserID,
		Timezone:       result.Timezone,
		TotalCalendars: len(result.Calendars),
		TotalEvents:    len(result.Events),
		Calendars:      calendars,
		Events:         events,
		CalendarErrors: result.Errors,
	}
}

// listResponse is the body of /calendar/list.
type listResponse struct {
	UserID         string                   `json:"user_id"`
	Timezone       string                   `json:"timezone"`
	TotalCalendars int                      `json:"total_calendars"`
	Calendars      []calendarDetailResponse `json:"calendars"`
}

func newListResponse(directory bridge.DirectoryResult) listResponse {
	calendars := make([]calendarDetailResponse, 0, len(directory.Entries))
	for _, entry := range directory.Entries {
		calendars = append(calendars, calendarDetailResponse{
			ID:          entry.ID,
			Summary:     entry.Summary,
			Description: entry.Description,
			Timezone:    entry.TimeZone,
			AccessRole:  entry.AccessRole,
			Primary:     entry.Primary,
			Color: colorResponse{
				Background: entry.BackgroundColor,
				Foreground: entry.ForegroundColor,
			},
			Selected: entry.Selected,
		})
	}
	return listResponse{
		UserID:         directory.UserID,
		Timezone:       directory.Timezone,
		TotalCalendars: len(directory.Entries),
		Calendars:      calendars,
	}
}

// errorBody is the uniform error response shape.
type errorBody struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string, details map[string]any) {
	writeJSON(w, status, errorBody{Error: message, Details: details})
}
