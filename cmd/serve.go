package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclaw/gcalbridge/internal/bridge"
	"github.com/openclaw/gcalbridge/internal/calendar"
	"github.com/openclaw/gcalbridge/internal/google"
	"github.com/openclaw/gcalbridge/internal/instrumentation"
	"github.com/openclaw/gcalbridge/internal/server"
	"github.com/openclaw/gcalbridge/internal/store"
)

// MetricsConfig holds the metrics server settings resolved from flags and
// environment variables.
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// ServeConfig collects everything runServe needs to assemble the bridge.
type ServeConfig struct {
	HTTPAddr           string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	DefaultTimezone    string
	StoreDir           string
	Debug              bool
	AuditPII           bool
	Metrics            MetricsConfig
}

func newServeCmd() *cobra.Command {
	var cfg ServeConfig

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP bridge server",
		Long: `Start the HTTP server that links user accounts to Google Calendar and
serves aggregated events across all readable calendars.

OAuth Configuration:
  Google OAuth credentials are required:
    --google-client-id and --google-client-secret flags
    OR GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars

  The redirect URI must match the one registered in the Google Cloud
  console and must point at this server's /auth/callback endpoint:
    --google-redirect-uri OR GOOGLE_REDIRECT_URI env var

Storage:
  Refresh tokens are stored as files under the store directory
  (--store-dir, GCALBRIDGE_STORE_DIR). Defaults to the user cache
  directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.HTTPAddr, "http-addr", server.DefaultAddr, "HTTP server address. Can also use GCALBRIDGE_HTTP_ADDR env var.")
	cmd.Flags().StringVar(&cfg.GoogleClientID, "google-client-id", "", "Google OAuth Client ID. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&cfg.GoogleClientSecret, "google-client-secret", "", "Google OAuth Client Secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&cfg.GoogleRedirectURI, "google-redirect-uri", "", "OAuth redirect URI pointing at /auth/callback. Can also use GOOGLE_REDIRECT_URI env var.")
	cmd.Flags().StringVar(&cfg.DefaultTimezone, "default-timezone", bridge.DefaultTimezone, "IANA timezone assigned to newly linked accounts. Can also use GCALBRIDGE_DEFAULT_TIMEZONE env var.")
	cmd.Flags().StringVar(&cfg.StoreDir, "store-dir", "", "Directory for stored refresh tokens. Can also use GCALBRIDGE_STORE_DIR env var.")
	cmd.Flags().BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&cfg.AuditPII, "audit-pii", false, "Include raw user identifiers in audit logs instead of anonymized hashes")
	cmd.Flags().BoolVar(&cfg.Metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&cfg.Metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(cfg ServeConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	loadServeEnvVars(&cfg)

	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return fmt.Errorf("google OAuth credentials are required (set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET)")
	}
	if cfg.GoogleRedirectURI == "" {
		return fmt.Errorf("google OAuth redirect URI is required (set GOOGLE_REDIRECT_URI)")
	}

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("instrumentation shutdown failed", slog.Any("error", err))
		}
	}()

	// Start metrics server if enabled
	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Metrics.Addr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", slog.Any("error", err))
			}
		}()
	}

	storeDir := cfg.StoreDir
	if storeDir == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return fmt.Errorf("failed to resolve store directory: %w", err)
		}
		storeDir = filepath.Join(cacheDir, "gcalbridge", "tokens")
	}
	tokenStore, err := store.NewFileStore(storeDir)
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}

	metrics := provider.Metrics()

	oauthConfig := google.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURI:  cfg.GoogleRedirectURI,
		Logger:       logger,
		Metrics:      metrics,
	}
	if err := oauthConfig.Validate(); err != nil {
		return fmt.Errorf("invalid OAuth configuration: %w", err)
	}
	exchanger := google.NewExchanger(oauthConfig)

	client := calendar.NewClient(calendar.ClientConfig{
		TimeZone: cfg.DefaultTimezone,
		Logger:   logger,
		Metrics:  metrics,
	})

	audit := instrumentation.NewAuditLogger(logger)
	audit.SetIncludePII(cfg.AuditPII)

	bridgeService := bridge.NewService(bridge.Config{
		Store:           tokenStore,
		Exchanger:       exchanger,
		Source:          client,
		DefaultTimezone: cfg.DefaultTimezone,
		Logger:          logger,
		Metrics:         metrics,
		Audit:           audit,
	})

	srv := server.New(server.Config{
		Addr:    cfg.HTTPAddr,
		Bridge:  bridgeService,
		Logger:  logger,
		Metrics: metrics,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("bridge server failed: %w", err)
		}
		return nil
	case <-shutdownCtx.Done():
	}

	logger.Info("shutdown signal received")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer stopCancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(stopCtx); err != nil {
			logger.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
	if err := srv.Shutdown(stopCtx); err != nil {
		return fmt.Errorf("bridge server shutdown failed: %w", err)
	}

	// Drain the serve goroutine so ListenAndServe errors are not lost.
	select {
	case err := <-errCh:
		return err
	case <-time.After(time.Second):
		return nil
	}
}

// loadServeEnvVars fills unset flags from environment variables.
func loadServeEnvVars(cfg *ServeConfig) {
	if cfg.HTTPAddr == "" || cfg.HTTPAddr == server.DefaultAddr {
		if addr := os.Getenv("GCALBRIDGE_HTTP_ADDR"); addr != "" {
			cfg.HTTPAddr = addr
		}
	}
	if cfg.GoogleClientID == "" {
		cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if cfg.GoogleClientSecret == "" {
		cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
	if cfg.GoogleRedirectURI == "" {
		cfg.GoogleRedirectURI = os.Getenv("GOOGLE_REDIRECT_URI")
	}
	if cfg.DefaultTimezone == "" || cfg.DefaultTimezone == bridge.DefaultTimezone {
		if tz := os.Getenv("GCALBRIDGE_DEFAULT_TIMEZONE"); tz != "" {
			cfg.DefaultTimezone = tz
		}
	}
	if cfg.StoreDir == "" {
		cfg.StoreDir = os.Getenv("GCALBRIDGE_STORE_DIR")
	}
	if cfg.Metrics.Enabled {
		if os.Getenv("METRICS_ENABLED") == "false" {
			cfg.Metrics.Enabled = false
		}
	}
	if cfg.Metrics.Addr == "" || cfg.Metrics.Addr == server.DefaultMetricsAddr {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			cfg.Metrics.Addr = addr
		}
	}
}
