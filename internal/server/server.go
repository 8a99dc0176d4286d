package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/openclaw/gcalbridge/internal/bridge"
	"github.com/openclaw/gcalbridge/internal/calendar"
	"github.com/openclaw/gcalbridge/internal/google"
	"github.com/openclaw/gcalbridge/internal/instrumentation"
	"github.com/openclaw/gcalbridge/internal/store"
)

const (
	// DefaultAddr is the default address for the bridge server.
	DefaultAddr = ":8080"

	// userIDHeader authenticates calendar requests. Header lookup is
	// case-insensitive, so x-user-id matches too.
	userIDHeader = "X-User-Id"

	// serviceDescription is served on the root endpoint.
	serviceDescription = "OpenClaw <-> Google Calendar bridge"
)

// Config holds configuration for the bridge server.
type Config struct {
	// Addr to bind, defaults to DefaultAddr.
	Addr string

	// Bridge handles the application flows.
	Bridge *bridge.Service

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Server is the main HTTP server for the bridge.
type Server struct {
	addr       string
	bridge     *bridge.Service
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
	health     *HealthChecker
	httpServer *http.Server
	shutdown   atomic.Bool
}

// New creates a Server from the given configuration.
func New(cfg Config) *Server {
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		addr:    addr,
		bridge:  cfg.Bridge,
		logger:  logger,
		metrics: cfg.Metrics,
	}
	s.health = NewHealthChecker(s.shutdown.Load)
	return s
}

// Health returns the server's health checker.
func (s *Server) Health() *HealthChecker {
	return s.health
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "/{$}", s.handleRoot)
	s.route(mux, "/auth/google", s.handleAuthGoogle)
	s.route(mux, "/auth/callback", s.handleAuthCallback)
	s.route(mux, "/calendar/list", s.handleCalendarList)
	s.route(mux, "/calendar/today", s.rangeHandler(calendar.LabelToday))
	s.route(mux, "/calendar/week", s.rangeHandler(calendar.LabelWeek))

	s.health.RegisterHealthEndpoints(mux)

	// JSON 404 for everything else.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", map[string]any{"path": r.URL.Path})
	})

	return normalizeTrailingSlash(mux)
}

// route registers a GET-only handler wrapped with logging and metrics.
func (s *Server) route(mux *http.ServeMux, pattern string, handler http.HandlerFunc) {
	wrapped := withObservability(s.getOnly(handler), pattern, s.logger, s.metrics)
	mux.Handle(pattern, wrapped)
}

// getOnly rejects every method except GET with a JSON 405.
func (s *Server) getOnly(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.", nil)
			return
		}
		next(w, r)
	})
}

// Start runs the server in a blocking manner.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("starting bridge server", slog.String("addr", s.addr))

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server. Readiness flips first so load
// balancers drain before connections close.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdown.Store(true)
	s.health.SetReady(false)

	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("shutting down bridge server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": serviceDescription,
		"endpoints": []string{
			"GET /auth/google",
			"GET /auth/callback",
			"GET /calendar/list",
			"GET /calendar/today",
			"GET /calendar/week",
		},
		"authentication": "Provide x-user-id header for calendar endpoints.",
		"features": []string{
			"Multi-calendar support - fetches events from all accessible calendars",
			"OAuth 2.0 with offline access",
		},
	})
}

func (s *Server) handleAuthGoogle(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "Missing user_id query parameter.", nil)
		return
	}

	http.Redirect(w, r, s.bridge.AuthURL(userID), http.StatusFound)
}

func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	code := query.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "Missing `code` query parameter.", nil)
		return
	}

	// The user id rides back in the state parameter; explicit overrides
	// are accepted for manual flows.
	userID := query.Get("user_id")
	if userID == "" {
		userID = r.Header.Get(userIDHeader)
	}
	if userID == "" {
		userID = query.Get("state")
	}
	if userID == "" {
		writeError(w, http.StatusBadRequest, "Missing user identifier. Provide ?user_id=... in the callback URL.", nil)
		return
	}

	if err := s.bridge.LinkAccount(r.Context(), userID, code); err != nil {
		switch {
		case errors.Is(err, bridge.ErrNoRefreshToken):
			writeError(w, http.StatusBadRequest,
				"Google did not return a refresh_token. Ensure `access_type=offline` and `prompt=consent` were used.", nil)
		case isExchangeError(err):
			writeError(w, http.StatusBadRequest, err.Error(), nil)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to link account.", map[string]any{"message": err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Google account linked successfully.",
		"user_id":  userID,
		"provider": "google",
	})
}

func (s *Server) handleCalendarList(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	directory, err := s.bridge.CalendarList(r.Context(), userID)
	if err != nil {
		s.writeBridgeError(w, userID, err)
		return
	}

	writeJSON(w, http.StatusOK, newListResponse(directory))
}

func (s *Server) rangeHandler(label string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.requireUser(w, r)
		if !ok {
			return
		}

		result, err := s.bridge.EventsForRange(r.Context(), userID, label)
		if err != nil {
			s.writeBridgeError(w, userID, err)
			return
		}

		writeJSON(w, http.StatusOK, newRangeResponse(result))
	}
}

// requireUser authenticates the request via the X-User-Id header.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Missing x-user-id header.", nil)
		return "", false
	}
	return userID, true
}

// writeBridgeError maps bridge failures onto HTTP statuses: absence is 404,
// provider rejections and directory failures are 502, everything else is a
// server fault.
func (s *Server) writeBridgeError(w http.ResponseWriter, userID string, err error) {
	var dirErr *calendar.DirectoryFetchError

	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found.", map[string]any{"user_id": userID})
	case errors.Is(err, calendar.ErrUnknownTimezone):
		writeError(w, http.StatusInternalServerError, "Stored timezone is invalid.", map[string]any{"message": err.Error()})
	case isExchangeError(err):
		writeError(w, http.StatusBadGateway, "Token refresh failed.", map[string]any{"message": err.Error()})
	case errors.As(err, &dirErr):
		writeError(w, http.StatusBadGateway, "Calendar directory fetch failed.", map[string]any{"message": err.Error()})
	default:
		writeError(w, http.StatusInternalServerError, "Unexpected error while processing the request.", map[string]any{"message": err.Error()})
	}
}

func isExchangeError(err error) bool {
	var exchErr *google.ExchangeError
	return errors.As(err, &exchErr)
}
