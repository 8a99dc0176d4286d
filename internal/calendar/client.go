package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/openclaw/gcalbridge/internal/instrumentation"
	"github.com/openclaw/gcalbridge/internal/logging"
)

// Provider endpoint defaults.
const (
	// DefaultBaseURL is the Google Calendar v3 REST base URL.
	DefaultBaseURL = "https://www.googleapis.com/calendar/v3"

	// DefaultMaxResults is the page size requested from the events endpoint.
	// The provider caps it at its own maximum.
	DefaultMaxResults = 250

	// DefaultOrderBy is the event ordering requested from the provider.
	DefaultOrderBy = "startTime"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// HTTPClient used for outbound requests. Defaults to a client with a
	// 30 second timeout.
	HTTPClient *http.Client

	// BaseURL of the provider REST API. Defaults to DefaultBaseURL.
	// Overridable for tests.
	BaseURL string

	// TimeZone passed to the events endpoint when the caller does not
	// supply one.
	TimeZone string

	// Logger for request-level logging. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics recorder; nil disables recording.
	Metrics *instrumentation.Metrics
}

// Client is a raw REST client for the calendarList and events endpoints.
// It authenticates with a bearer access token supplied per call.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeZone   string
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// NewClient creates a Client from the given configuration.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		timeZone:   cfg.TimeZone,
		logger:     logger,
		metrics:    cfg.Metrics,
	}
}

// EventsOptions are the optional parameters of an events fetch.
type EventsOptions struct {
	// ExpandRecurring controls the provider's singleEvents behavior:
	// recurring series are expanded into concrete instances. Defaults to
	// true when nil.
	ExpandRecurring *bool

	// OrderBy defaults to DefaultOrderBy.
	OrderBy string

	// MaxResults defaults to DefaultMaxResults.
	MaxResults int

	// TimeZone defaults to the client's configured timezone.
	TimeZone string

	// PageToken continues a previous page. The aggregator consumes a
	// single page; continuation is the caller's choice.
	PageToken string
}

func (o EventsOptions) expandRecurring() bool {
	if o.ExpandRecurring == nil {
		return true
	}
	return *o.ExpandRecurring
}

// EventsPage is one page of events from a single calendar.
type EventsPage struct {
	Events        []Event
	NextPageToken string
}

// ListCalendars fetches the user's calendar directory in the provider's
// native order. No filtering is applied here; restricting to readable
// calendars is the aggregator's concern. Any failure, including an error
// object embedded in a 2xx body, is a DirectoryFetchError.
func (c *Client) ListCalendars(ctx context.Context, accessToken string) ([]ListEntry, error) {
	ctx, span := instrumentation.StartProviderSpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationListCalendars)
	defer span.End()

	start := time.Now()

	status, body, err := c.get(ctx, c.baseURL+"/users/me/calendarList", accessToken)
	if err != nil {
		c.recordOperation(ctx, instrumentation.OperationListCalendars, instrumentation.StatusError, start)
		instrumentation.SetSpanError(span, err)
		return nil, &DirectoryFetchError{StatusCode: 0, Message: err.Error()}
	}

	var payload calendarListResponse
	if decodeErr := decodePayload(status, body, &payload); decodeErr != nil {
		ferr := &DirectoryFetchError{StatusCode: status, Message: decodeErr.message}
		c.recordOperation(ctx, instrumentation.OperationListCalendars, instrumentation.StatusError, start)
		instrumentation.SetSpanError(span, ferr)
		return nil, ferr
	}

	c.recordOperation(ctx, instrumentation.OperationListCalendars, instrumentation.StatusSuccess, start)
	instrumentation.SetSpanSuccess(span)

	c.logger.DebugContext(ctx, "calendar directory fetched",
		logging.Operation("list_calendars"),
		slog.Int("calendars", len(payload.Items)),
	)

	return payload.Items, nil
}

// ListEvents fetches one page of events from a single calendar within the
// given window. Both window bounds are mandatory; a missing bound raises
// InvalidRangeError before any network call. Any provider failure is an
// EventFetchError carrying the calendar identifier.
func (c *Client) ListEvents(ctx context.Context, accessToken, calendarID string, window TimeWindow, opts EventsOptions) (EventsPage, error) {
	if window.Start.IsZero() || window.End.IsZero() {
		return EventsPage{}, &InvalidRangeError{Reason: "window start and end are required"}
	}

	ctx, span := instrumentation.StartProviderSpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationListEvents,
		instrumentation.NewSpanAttributeBuilder().WithCalendar(calendarID).Build()...)
	defer span.End()

	start := time.Now()

	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = DefaultOrderBy
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	timeZone := opts.TimeZone
	if timeZone == "" {
		timeZone = c.timeZone
	}

	query := url.Values{}
	query.Set("timeMin", window.Start.UTC().Format(time.RFC3339))
	query.Set("timeMax", window.End.UTC().Format(time.RFC3339))
	query.Set("singleEvents", strconv.FormatBool(opts.expandRecurring()))
	query.Set("orderBy", orderBy)
	query.Set("maxResults", strconv.Itoa(maxResults))
	if timeZone != "" {
		query.Set("timeZone", timeZone)
	}
	if opts.PageToken != "" {
		query.Set("pageToken", opts.PageToken)
	}

	endpoint := c.baseURL + "/calendars/" + url.PathEscape(calendarID) + "/events?" + query.Encode()

	status, body, err := c.get(ctx, endpoint, accessToken)
	if err != nil {
		c.recordOperation(ctx, instrumentation.OperationListEvents, instrumentation.StatusError, start)
		instrumentation.SetSpanError(span, err)
		return EventsPage{}, &EventFetchError{CalendarID: calendarID, StatusCode: 0, Message: err.Error()}
	}

	var payload eventsResponse
	if decodeErr := decodePayload(status, body, &payload); decodeErr != nil {
		ferr := &EventFetchError{CalendarID: calendarID, StatusCode: status, Message: decodeErr.message}
		c.recordOperation(ctx, instrumentation.OperationListEvents, instrumentation.StatusError, start)
		instrumentation.SetSpanError(span, ferr)
		return EventsPage{}, ferr
	}

	c.recordOperation(ctx, instrumentation.OperationListEvents, instrumentation.StatusSuccess, start)
	instrumentation.SetSpanSuccess(span)

	c.logger.DebugContext(ctx, "events fetched",
		logging.Operation("list_events"),
		logging.CalendarID(calendarID),
		slog.Int("events", len(payload.Items)),
	)

	return EventsPage{Events: payload.Items, NextPageToken: payload.NextPageToken}, nil
}

// get issues a bearer-authenticated GET and returns the status and raw body.
func (c *Client) get(ctx context.Context, endpoint, accessToken string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response body: %w", err)
	}

	return resp.StatusCode, body, nil
}

func (c *Client) recordOperation(ctx context.Context, operation, status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordProviderOperation(ctx, instrumentation.ServiceCalendar, operation, status, time.Since(start))
}

// apiError is the provider's error object, which can appear inside any
// response body regardless of HTTP status.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// apiErrorEnvelope wraps the provider's embedded error object.
type apiErrorEnvelope struct {
	Error *apiError `json:"error"`
}

// payloadError describes why a response body could not be accepted.
type payloadError struct {
	message string
}

// decodePayload classifies a provider response: a non-2xx status, an error
// object embedded in the body, or an undecodable body all fail; otherwise the
// body is unmarshaled into v. The embedded-error check runs on every
// response, including 2xx, because the provider can report failures inside a
// success status.
func decodePayload(status int, body []byte, v any) *payloadError {
	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		return &payloadError{message: envelope.Error.Message}
	}

	if status < 200 || status >= 300 {
		return &payloadError{message: truncateBody(body)}
	}

	if err := json.Unmarshal(body, v); err != nil {
		return &payloadError{message: fmt.Sprintf("decoding response: %v", err)}
	}

	return nil
}

// truncateBody bounds error messages sourced from raw response bodies.
func truncateBody(body []byte) string {
	const max = 512
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	if s == "" {
		return "empty response body"
	}
	return s
}
