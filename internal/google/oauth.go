package google

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/openclaw/gcalbridge/internal/instrumentation"
)

// CalendarScope is the OAuth scope requested for calendar access.
const CalendarScope = "https://www.googleapis.com/auth/calendar"

// DefaultTokenURL is Google's OAuth2 token endpoint.
const DefaultTokenURL = "https://oauth2.googleapis.com/token"

// Config holds the OAuth client settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// TokenURL overrides the token endpoint. Defaults to DefaultTokenURL;
	// overridable for tests.
	TokenURL string

	// HTTPClient used for token requests. Defaults to a client with a
	// 30 second timeout.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics recorder; nil disables recording.
	Metrics *instrumentation.Metrics
}

// Validate reports missing mandatory client settings.
func (c Config) Validate() error {
	if c.ClientID == "" {
		return &ConfigError{Field: "client id"}
	}
	if c.ClientSecret == "" {
		return &ConfigError{Field: "client secret"}
	}
	if c.RedirectURI == "" {
		return &ConfigError{Field: "redirect uri"}
	}
	return nil
}

// Exchanger exchanges authorization codes and refresh tokens for access
// tokens.
type Exchanger struct {
	config     Config
	tokenURL   string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// NewExchanger creates an Exchanger. The configuration must have passed
// Validate.
func NewExchanger(cfg Config) *Exchanger {
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Exchanger{
		config:     cfg,
		tokenURL:   tokenURL,
		httpClient: httpClient,
		logger:     logger,
		metrics:    cfg.Metrics,
	}
}

// AuthCodeURL returns the Google consent URL for the authorization-code
// flow. access_type=offline and prompt=consent ensure a refresh token is
// issued even on re-authorization; the login hint preselects the account.
func (e *Exchanger) AuthCodeURL(state, loginHint string) string {
	oauthConfig := oauth2.Config{
		ClientID:     e.config.ClientID,
		ClientSecret: e.config.ClientSecret,
		RedirectURL:  e.config.RedirectURI,
		Scopes:       []string{CalendarScope},
		Endpoint:     google.Endpoint,
	}

	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	}
	if loginHint != "" {
		opts = append(opts, oauth2.SetAuthURLParam("login_hint", loginHint))
	}

	return oauthConfig.AuthCodeURL(state, opts...)
}
