package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openclaw/gcalbridge/internal/calendar"
	"github.com/openclaw/gcalbridge/internal/google"
	"github.com/openclaw/gcalbridge/internal/instrumentation"
	"github.com/openclaw/gcalbridge/internal/logging"
	"github.com/openclaw/gcalbridge/internal/store"
)

// DefaultTimezone is assigned to newly linked accounts. Stored per user, so
// it can diverge later without affecting existing records.
const DefaultTimezone = "America/Santiago"

// ErrNoRefreshToken indicates the authorization-code exchange returned no
// refresh token, so the account cannot be linked for offline access. The
// user must re-authorize with consent.
var ErrNoRefreshToken = errors.New("authorization response contained no refresh token")

// TokenExchanger is the OAuth surface the bridge consumes.
// *google.Exchanger satisfies it.
type TokenExchanger interface {
	AuthCodeURL(state, loginHint string) string
	ExchangeAuthorizationCode(ctx context.Context, code string) (google.Token, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (google.Token, error)
}

// Config assembles a Service.
type Config struct {
	Store      store.Store
	Exchanger  TokenExchanger
	Source     calendar.EventSource
	Aggregator *calendar.Aggregator

	// DefaultTimezone for newly linked accounts. Defaults to
	// DefaultTimezone.
	DefaultTimezone string

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger

	// Now overrides the clock for tests.
	Now func() time.Time
}

// Service implements the bridge flows.
type Service struct {
	store           store.Store
	exchanger       TokenExchanger
	source          calendar.EventSource
	aggregator      *calendar.Aggregator
	defaultTimezone string
	logger          *slog.Logger
	metrics         *instrumentation.Metrics
	audit           *instrumentation.AuditLogger
	now             func() time.Time
}

// NewService creates a Service from the given configuration.
func NewService(cfg Config) *Service {
	defaultTimezone := cfg.DefaultTimezone
	if defaultTimezone == "" {
		defaultTimezone = DefaultTimezone
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	audit := cfg.Audit
	if audit == nil {
		audit = instrumentation.NewAuditLogger(logger)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	aggregator := cfg.Aggregator
	if aggregator == nil {
		aggregator = calendar.NewAggregator(cfg.Source, logger, cfg.Metrics)
	}
	return &Service{
		store:           cfg.Store,
		exchanger:       cfg.Exchanger,
		source:          cfg.Source,
		aggregator:      aggregator,
		defaultTimezone: defaultTimezone,
		logger:          logger,
		metrics:         cfg.Metrics,
		audit:           audit,
		now:             now,
	}
}

// AuthURL returns the provider consent URL for the user. The user id rides
// in the OAuth state parameter and comes back on the callback.
func (s *Service) AuthURL(userID string) string {
	return s.exchanger.AuthCodeURL(userID, userID)
}

// LinkAccount exchanges the authorization code from the OAuth callback and
// persists the user's refresh token. A response without a refresh token
// fails with ErrNoRefreshToken; nothing is stored in that case.
func (s *Service) LinkAccount(ctx context.Context, userID, code string) error {
	ctx, span := instrumentation.StartRequestSpan(ctx, "link_account",
		instrumentation.NewSpanAttributeBuilder().WithUser(userID).Build()...)
	defer span.End()

	audit := instrumentation.NewRequestAudit("link_account", userID).WithSpanContext(ctx)

	token, err := s.exchanger.ExchangeAuthorizationCode(ctx, code)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.audit.LogRequest(audit.Complete(false, err))
		return err
	}

	if token.RefreshToken == "" {
		instrumentation.SetSpanError(span, ErrNoRefreshToken)
		s.audit.LogRequest(audit.Complete(false, ErrNoRefreshToken))
		return ErrNoRefreshToken
	}

	record := store.Record{
		RefreshToken: token.RefreshToken,
		Provider:     "google",
		Timezone:     s.defaultTimezone,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Put(ctx, userID, record); err != nil {
		err = fmt.Errorf("persisting credential record: %w", err)
		instrumentation.SetSpanError(span, err)
		s.audit.LogRequest(audit.Complete(false, err))
		return err
	}

	instrumentation.SetSpanSuccess(span)
	s.audit.LogRequest(audit.Complete(true, nil))

	s.logger.InfoContext(ctx, "account linked",
		logging.Operation("link_account"),
		logging.UserHash(userID),
		slog.String("timezone", record.Timezone),
	)

	return nil
}

// EventsResult is the outcome of one aggregation request.
type EventsResult struct {
	UserID    string
	Timezone  string
	Window    calendar.TimeWindow
	Events    []calendar.SourcedEvent
	Calendars []calendar.ListEntry
	Errors    []calendar.CalendarError
}

// EventsForRange loads the user's record, refreshes the access credential,
// computes the window in the user's timezone, and aggregates events across
// every readable calendar. label is "today" or "week".
//
// A rotated refresh token from the provider is persisted best-effort: a
// write failure is logged but does not fail the request, since the previous
// token may remain valid.
func (s *Service) EventsForRange(ctx context.Context, userID, label string) (EventsResult, error) {
	ctx, span := instrumentation.StartRequestSpan(ctx, "events_"+label,
		instrumentation.NewSpanAttributeBuilder().WithUser(userID).WithTimeframe(label).Build()...)
	defer span.End()

	audit := instrumentation.NewRequestAudit("events_"+label, userID).
		WithTimeframe(label).
		WithSpanContext(ctx)

	record, err := s.store.Get(ctx, userID)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.audit.LogRequest(audit.Complete(false, err))
		return EventsResult{}, err
	}

	window, err := calendar.ComputeWindow(label, record.Timezone, s.now())
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.audit.LogRequest(audit.Complete(false, err))
		return EventsResult{}, err
	}

	token, err := s.refresh(ctx, userID, record)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.audit.LogRequest(audit.Complete(false, err))
		return EventsResult{}, err
	}

	aggregated, err := s.aggregator.Aggregate(ctx, token.AccessToken, window)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.audit.LogRequest(audit.Complete(false, err))
		return EventsResult{}, err
	}

	instrumentation.SetSpanSuccess(span)
	s.audit.LogRequest(audit.WithFanout(len(aggregated.Calendars), len(aggregated.Errors)).Complete(true, nil))

	return EventsResult{
		UserID:    userID,
		Timezone:  record.Timezone,
		Window:    window,
		Events:    aggregated.Events,
		Calendars: aggregated.Calendars,
		Errors:    aggregated.Errors,
	}, nil
}

// DirectoryResult is the raw calendar directory together with the user's
// stored timezone.
type DirectoryResult struct {
	UserID   string
	Timezone string
	Entries  []calendar.ListEntry
}

// CalendarList loads the user's record, refreshes the access credential, and
// returns the raw calendar directory in provider order, unfiltered.
func (s *Service) CalendarList(ctx context.Context, userID string) (DirectoryResult, error) {
	ctx, span := instrumentation.StartRequestSpan(ctx, "list_calendars",
		instrumentation.NewSpanAttributeBuilder().WithUser(userID).Build()...)
	defer span.End()

	audit := instrumentation.NewRequestAudit("list_calendars", userID).WithSpanContext(ctx)

	record, err := s.store.Get(ctx, userID)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.audit.LogRequest(audit.Complete(false, err))
		return DirectoryResult{}, err
	}

	token, err := s.refresh(ctx, userID, record)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.audit.LogRequest(audit.Complete(false, err))
		return DirectoryResult{}, err
	}

	entries, err := s.source.ListCalendars(ctx, token.AccessToken)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.audit.LogRequest(audit.Complete(false, err))
		return DirectoryResult{}, err
	}

	instrumentation.SetSpanSuccess(span)
	s.audit.LogRequest(audit.WithFanout(len(entries), 0).Complete(true, nil))

	return DirectoryResult{
		UserID:   userID,
		Timezone: record.Timezone,
		Entries:  entries,
	}, nil
}

// refresh exchanges the stored refresh token for an access token and
// persists a rotated refresh token when the provider issues one.
func (s *Service) refresh(ctx context.Context, userID string, record store.Record) (google.Token, error) {
	token, err := s.exchanger.RefreshAccessToken(ctx, record.RefreshToken)
	if err != nil {
		return google.Token{}, err
	}

	if token.RefreshToken != "" && token.RefreshToken != record.RefreshToken {
		rotated := record
		rotated.RefreshToken = token.RefreshToken
		if putErr := s.store.Put(ctx, userID, rotated); putErr != nil {
			s.logger.WarnContext(ctx, "failed to persist rotated refresh token",
				logging.Operation("refresh"),
				logging.UserHash(userID),
				logging.Err(putErr),
			)
		}
	}

	return token, nil
}
