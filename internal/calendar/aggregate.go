package calendar

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openclaw/gcalbridge/internal/instrumentation"
	"github.com/openclaw/gcalbridge/internal/logging"
)

// EventSource is the provider surface the Aggregator consumes. *Client
// satisfies it; tests substitute fakes.
type EventSource interface {
	ListCalendars(ctx context.Context, accessToken string) ([]ListEntry, error)
	ListEvents(ctx context.Context, accessToken, calendarID string, window TimeWindow, opts EventsOptions) (EventsPage, error)
}

// Result is the outcome of one aggregation run. Callers must check both the
// returned error (full failure) and Errors (partial degradation).
type Result struct {
	// Events from every calendar that answered, sorted ascending by
	// effective start, stable on ties.
	Events []SourcedEvent

	// Calendars is the readable subset of the directory, in provider order.
	Calendars []ListEntry

	// Errors holds one entry per calendar whose fetch failed.
	Errors []CalendarError
}

// Aggregator fans out event fetches across every readable calendar and
// merges the results.
type Aggregator struct {
	source  EventSource
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewAggregator creates an Aggregator over the given event source.
func NewAggregator(source EventSource, logger *slog.Logger, metrics *instrumentation.Metrics) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{source: source, logger: logger, metrics: metrics}
}

// Aggregate fetches the calendar directory, filters to readable calendars,
// fetches each calendar's events for the window concurrently, and merges
// them into one sorted sequence.
//
// A directory failure fails the whole call. A single calendar's failure
// never does: it contributes zero events and one entry in Result.Errors.
// Zero readable calendars is not an error; the result is simply empty.
func (a *Aggregator) Aggregate(ctx context.Context, accessToken string, window TimeWindow) (Result, error) {
	start := time.Now()

	directory, err := a.source.ListCalendars(ctx, accessToken)
	if err != nil {
		a.recordRun(ctx, window.Label, instrumentation.StatusError, 0, 0, start)
		return Result{}, err
	}

	readable := make([]ListEntry, 0, len(directory))
	for _, entry := range directory {
		if entry.Readable() {
			readable = append(readable, entry)
		}
	}

	// One slot per calendar. Each branch writes only its own slot and
	// reports failure as a value, so the join never short-circuits.
	type slot struct {
		events []SourcedEvent
		err    *CalendarError
	}
	slots := make([]slot, len(readable))

	g, gctx := errgroup.WithContext(ctx)
	for i, entry := range readable {
		g.Go(func() error {
			page, fetchErr := a.source.ListEvents(gctx, accessToken, entry.ID, window, EventsOptions{})
			if fetchErr != nil {
				slots[i].err = &CalendarError{CalendarID: entry.ID, Message: fetchErr.Error()}
				a.logger.WarnContext(gctx, "calendar fetch failed",
					logging.Operation("aggregate"),
					logging.CalendarID(entry.ID),
					logging.Err(fetchErr),
				)
				return nil
			}

			tagged := make([]SourcedEvent, 0, len(page.Events))
			for _, event := range page.Events {
				tagged = append(tagged, SourcedEvent{
					Event:           event,
					CalendarID:      entry.ID,
					CalendarSummary: entry.Summary,
					CalendarColor:   entry.BackgroundColor,
				})
			}
			slots[i].events = tagged
			return nil
		})
	}
	// Branches always return nil; Wait is a pure join.
	_ = g.Wait()

	result := Result{Calendars: readable}
	for _, s := range slots {
		if s.err != nil {
			result.Errors = append(result.Errors, *s.err)
			continue
		}
		result.Events = append(result.Events, s.events...)
	}

	// Stable sort keeps per-calendar fetch order on equal starts, making
	// output deterministic regardless of fetch completion order.
	sort.SliceStable(result.Events, func(i, j int) bool {
		return result.Events[i].Start.Effective() < result.Events[j].Start.Effective()
	})

	a.recordRun(ctx, window.Label, instrumentation.StatusSuccess, len(readable), len(result.Errors), start)

	a.logger.InfoContext(ctx, "aggregation completed",
		logging.Operation("aggregate"),
		logging.Timeframe(window.Label),
		slog.Int("calendars", len(readable)),
		slog.Int("events", len(result.Events)),
		slog.Int("failures", len(result.Errors)),
		slog.Duration(logging.KeyDuration, time.Since(start)),
	)

	return result, nil
}

func (a *Aggregator) recordRun(ctx context.Context, timeframe, status string, calendars, failures int, start time.Time) {
	if a.metrics == nil {
		return
	}
	a.metrics.RecordAggregation(ctx, timeframe, status, calendars, failures, time.Since(start))
}
