package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/tickview/internal/instrumentation"
	"github.com/teemow/tickview/internal/server"
	"github.com/teemow/tickview/internal/ticktick"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		debugMode      bool
		addr           string
		sessionTimeout time.Duration
		// Metrics server configuration
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server showing the TickTick inbox",
		Long: `Start the web server. Visiting the root page lets you connect a TickTick
account via OAuth; once connected, the page shows the tasks in your inbox.

OAuth Configuration:
  Client credentials (required to connect an account):
    TICKTICK_CLIENT_ID and TICKTICK_CLIENT_SECRET env vars
    (TT_CLIENT_ID / TT_CLIENT_SECRET are accepted as well)

  Redirect URI (optional):
    TICKTICK_REDIRECT_URI or TT_REDIRECT_URI env var
    Defaults to http://127.0.0.1:8022/oauth/callback/ and must match the
    redirect URI registered with your TickTick application.

Session Configuration:
  TICKVIEW_SECRET_KEY signs the session cookies. Without it a random key is
  generated at startup and sessions do not survive restarts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			metricsConfig := MetricsConfig{
				Enabled: metricsEnabled,
				Addr:    metricsAddr,
			}

			return runServe(addr, debugMode, sessionTimeout, metricsConfig)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&addr, "addr", server.DefaultWebAddr, "Web server address")
	cmd.Flags().DurationVar(&sessionTimeout, "session-timeout", 24*time.Hour, "Idle timeout after which browser sessions are dropped")

	// Metrics server flags
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// setupLogging installs the default slog logger. Debug mode lowers the
// level and switches to the text handler for readability.
func setupLogging(debugMode bool) {
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if debugMode {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	slog.SetDefault(slog.New(handler))
}

func runServe(addr string, debugMode bool, sessionTimeout time.Duration, metricsConfig MetricsConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	setupLogging(debugMode)

	// Load metrics config from environment if not set via flags
	if !metricsConfig.Enabled {
		if os.Getenv("METRICS_ENABLED") == "true" {
			metricsConfig.Enabled = true
		}
	}
	if metricsConfig.Addr == "" || metricsConfig.Addr == server.DefaultMetricsAddr {
		if envAddr := os.Getenv("METRICS_ADDR"); envAddr != "" {
			metricsConfig.Addr = envAddr
		}
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error during instrumentation shutdown: %v", err)
		}
	}()

	// Start metrics server if enabled
	var metricsServer *server.MetricsServer
	if metricsConfig.Enabled && provider.Enabled() {
		var err error
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricsConfig.Addr,
			Enabled:                 true,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		// Use ready channel to confirm metrics server started successfully
		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		// Wait for metrics server to be ready or fail
		select {
		case <-metricsReady:
			log.Printf("Metrics server started on %s", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}
	}

	// OAuth credentials are optional at startup. Without them the inbox
	// page still renders; connecting an account fails until they are set.
	creds := ticktick.CredentialsFromEnv()
	if err := creds.Validate(); err != nil {
		slog.Warn("TickTick OAuth credentials not configured, connecting accounts will fail", "reason", err.Error())
	}

	flow := ticktick.NewOAuthFlow(creds)

	sessions := server.NewSessionStoreWithLogger(sessionTimeout, slog.Default())
	sessions.SetMetrics(provider.Metrics())

	serverContext := server.NewServerContext(shutdownCtx, flow, sessions)
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			log.Printf("Error during server context shutdown: %v", err)
		}
	}()

	webServer, err := server.NewWebServer(serverContext, server.WebServerConfig{
		Addr:    addr,
		Metrics: provider.Metrics(),
		Logger:  slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	webReady := make(chan struct{})
	webErr := make(chan error, 1)
	go func() {
		if err := webServer.StartWithReadySignal(webReady); err != nil && err != http.ErrServerClosed {
			webErr <- err
		}
		close(webErr)
	}()

	select {
	case <-webReady:
		log.Printf("Web server started on %s", webServer.Addr())
	case err := <-webErr:
		return fmt.Errorf("web server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return fmt.Errorf("web server startup timed out")
	}

	// Block until a shutdown signal arrives or the server fails
	select {
	case <-shutdownCtx.Done():
		slog.Info("shutdown signal received")
	case err := <-webErr:
		if err != nil {
			return fmt.Errorf("web server stopped with error: %w", err)
		}
		return nil
	}

	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer timeoutCancel()

	if err := webServer.Shutdown(timeoutCtx); err != nil {
		log.Printf("Error during web server shutdown: %v", err)
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(timeoutCtx); err != nil {
			log.Printf("Error during metrics server shutdown: %v", err)
		}
	}

	return nil
}
