package calendar

// EventTime is the provider's representation of an event boundary. Exactly
// one of Date (all-day, "2006-01-02") or DateTime (RFC3339) is expected to be
// set; malformed upstream events are tolerated by falling back to Date.
type EventTime struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// Effective returns the sort key for an event boundary: the precise RFC3339
// timestamp if present, else the all-day date. Both forms compare
// chronologically under lexicographic string comparison.
func (t EventTime) Effective() string {
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

// Person identifies an event organizer or creator.
type Person struct {
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Self        bool   `json:"self,omitempty"`
}

// Attendee is a single event attendee.
type Attendee struct {
	Email          string `json:"email,omitempty"`
	DisplayName    string `json:"displayName,omitempty"`
	ResponseStatus string `json:"responseStatus,omitempty"` // "needsAction", "declined", "tentative", "accepted"
	Optional       bool   `json:"optional,omitempty"`
	Organizer      bool   `json:"organizer,omitempty"`
}

// Event is a single calendar event as returned by the events endpoint.
type Event struct {
	ID          string     `json:"id"`
	Status      string     `json:"status,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	HTMLLink    string     `json:"htmlLink,omitempty"`
	Start       EventTime  `json:"start"`
	End         EventTime  `json:"end"`
	Attendees   []Attendee `json:"attendees,omitempty"`
	Organizer   *Person    `json:"organizer,omitempty"`
	Creator     *Person    `json:"creator,omitempty"`
}

// ListEntry is one calendar in the user's calendar directory.
type ListEntry struct {
	ID              string `json:"id"`
	Summary         string `json:"summary,omitempty"`
	Description     string `json:"description,omitempty"`
	TimeZone        string `json:"timeZone,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	ForegroundColor string `json:"foregroundColor,omitempty"`
	Selected        bool   `json:"selected,omitempty"`
	Primary         bool   `json:"primary,omitempty"`
	AccessRole      string `json:"accessRole,omitempty"` // "owner", "writer", "reader", "freeBusyReader"
}

// Readable reports whether the entry grants at least read access to event
// details. freeBusyReader and empty roles are excluded.
func (e ListEntry) Readable() bool {
	switch e.AccessRole {
	case "reader", "writer", "owner":
		return true
	}
	return false
}

// SourcedEvent is an Event tagged with its source calendar. Created only by
// the Aggregator and never mutated afterwards.
type SourcedEvent struct {
	Event

	CalendarID      string
	CalendarSummary string
	CalendarColor   string
}

// calendarListResponse is the wire shape of the calendarList endpoint.
type calendarListResponse struct {
	Items         []ListEntry `json:"items"`
	NextPageToken string      `json:"nextPageToken,omitempty"`
}

// eventsResponse is the wire shape of the per-calendar events endpoint.
type eventsResponse struct {
	Items         []Event `json:"items"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
}
