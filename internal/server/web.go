package server

import (
	"context"
	"crypto/rand"
	"embed"
	"encoding/hex"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/teemow/tickview/internal/instrumentation"
	"github.com/teemow/tickview/internal/logging"
	"github.com/teemow/tickview/internal/ticktick"
)

//go:embed templates/home.html
var templateFS embed.FS

const (
	// DefaultWebAddr is the default address for the web server.
	DefaultWebAddr = ":8022"

	// DefaultWebReadTimeout is the default read header timeout for the web server.
	DefaultWebReadTimeout = 10 * time.Second

	// DefaultWebWriteTimeout is the default write timeout for the web server.
	DefaultWebWriteTimeout = 30 * time.Second

	// DefaultWebIdleTimeout is the default idle timeout for the web server.
	DefaultWebIdleTimeout = 120 * time.Second
)

// WebServerConfig holds configuration for the web server.
type WebServerConfig struct {
	// Addr is the address to bind the web server to (e.g., ":8022").
	Addr string

	// Metrics records request and API operation metrics. Optional.
	Metrics *instrumentation.Metrics

	// Logger is the structured logger for request handling. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// ClientOptions are applied to every TickTick client the handlers
	// create. Used to point clients at a test server.
	ClientOptions []ticktick.Option
}

// WebServer serves the inbox page and the OAuth routes.
type WebServer struct {
	serverContext *ServerContext
	health        *HealthChecker
	httpServer    *http.Server
	tmpl          *template.Template
	metrics       *instrumentation.Metrics
	logger        *slog.Logger
	clientOptions []ticktick.Option
	addr          string
}

// NewWebServer creates a new web server bound to the given server context.
func NewWebServer(sc *ServerContext, config WebServerConfig) (*WebServer, error) {
	if config.Addr == "" {
		config.Addr = DefaultWebAddr
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	tmpl, err := template.ParseFS(templateFS, "templates/home.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse home template: %w", err)
	}

	return &WebServer{
		serverContext: sc,
		health:        NewHealthChecker(sc),
		tmpl:          tmpl,
		metrics:       config.Metrics,
		logger:        config.Logger.With(logging.Component("web")),
		clientOptions: config.ClientOptions,
		addr:          config.Addr,
	}, nil
}

// Health returns the health checker so the serve command can flip readiness.
func (s *WebServer) Health() *HealthChecker {
	return s.health
}

// Handler returns the full route handler, including instrumentation.
func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("/oauth/login", s.handleLogin)
	mux.HandleFunc("/oauth/callback/", s.handleCallback)
	mux.HandleFunc("/disconnect", s.handleDisconnect)

	s.health.RegisterHealthEndpoints(mux)

	return s.instrumentationMiddleware(mux)
}

// buildServer constructs the HTTP server with its routes and timeouts.
func (s *WebServer) buildServer() {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultWebReadTimeout,
		WriteTimeout:      DefaultWebWriteTimeout,
		IdleTimeout:       DefaultWebIdleTimeout,
	}
}

// Start starts the web server in a blocking manner.
// Call this in a goroutine if you need non-blocking operation.
func (s *WebServer) Start() error {
	s.buildServer()

	s.logger.Info("starting web server", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// StartWithReadySignal starts the web server and closes the ready channel
// once the listener is bound, so callers can confirm startup before
// proceeding.
func (s *WebServer) StartWithReadySignal(ready chan<- struct{}) error {
	s.buildServer()

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind web listener on %s: %w", s.addr, err)
	}

	s.logger.Info("starting web server", "addr", listener.Addr().String())
	close(ready)

	return s.httpServer.Serve(listener)
}

// Shutdown gracefully shuts down the web server.
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)

	if s.httpServer != nil {
		s.logger.Info("shutting down web server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the configured address for the web server.
func (s *WebServer) Addr() string {
	return s.addr
}

// homePage is the view model for the inbox template.
type homePage struct {
	Connected bool
	InboxName string
	Tasks     []ticktick.Task
	Error     string
}

// handleHome renders the inbox page. Connected sessions get their inbox
// tasks; API failures render inside the page instead of failing the request.
func (s *WebServer) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	id := s.serverContext.Sessions().Ensure(w, r)
	token := s.serverContext.Sessions().Token(id)

	page := homePage{}

	if token != "" {
		page.Connected = true

		client := ticktick.NewClient(token, s.clientOptions...)

		start := time.Now()
		inboxID, tasks, err := client.InboxTasks(r.Context())
		if err != nil {
			s.recordAPIOperation(r.Context(), "inbox_tasks", instrumentation.StatusError, start)
			s.logger.Error("failed to fetch inbox tasks", logging.Err(err))
			page.Error = err.Error()
		} else {
			s.recordAPIOperation(r.Context(), "inbox_tasks", instrumentation.StatusSuccess, start)
			page.InboxName = inboxID
			page.Tasks = tasks
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, page); err != nil {
		s.logger.Error("failed to render inbox page", logging.Err(err))
	}
}

// handleLogin starts the OAuth flow: generate a state, remember it on the
// session, and redirect to the TickTick authorization page.
func (s *WebServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	id := s.serverContext.Sessions().Ensure(w, r)

	state, err := randomState()
	if err != nil {
		http.Error(w, "failed to generate state", http.StatusInternalServerError)
		return
	}

	authURL, err := s.serverContext.Flow().AuthCodeURL(state)
	if err != nil {
		s.logger.Error("oauth not configured", logging.Err(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.serverContext.Sessions().SetState(id, state)

	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleCallback completes the OAuth flow: verify the state, extract the
// code, exchange it for a token, and store the token on the session.
func (s *WebServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	sessions := s.serverContext.Sessions()
	id := sessions.Ensure(w, r)

	expected := sessions.ConsumeState(id)
	if expected == "" || r.URL.Query().Get("state") != expected {
		http.Error(w, "oauth state mismatch", http.StatusBadRequest)
		return
	}

	code, err := ticktick.CodeFromCallback(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := s.serverContext.Flow().Exchange(r.Context(), code)
	if err != nil {
		s.recordOAuthExchange(r.Context(), instrumentation.OAuthResultFailure)
		s.logger.Error("token exchange failed", logging.Err(err))
		http.Error(w, "token exchange failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.recordOAuthExchange(r.Context(), instrumentation.OAuthResultSuccess)

	sessions.SetToken(id, token)

	s.logger.Info("account connected",
		logging.Operation("oauth_callback"),
		slog.String("token", logging.SanitizeToken(token)),
	)

	http.Redirect(w, r, "/", http.StatusFound)
}

// handleDisconnect drops the token from the session and returns to the
// inbox page.
func (s *WebServer) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	id := s.serverContext.Sessions().Ensure(w, r)
	s.serverContext.Sessions().Clear(id)

	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *WebServer) recordAPIOperation(ctx context.Context, operation, status string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordAPIOperation(ctx, operation, status, time.Since(start))
}

func (s *WebServer) recordOAuthExchange(ctx context.Context, result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordOAuthExchange(ctx, result)
}

// randomState generates a random OAuth state parameter.
func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// instrumentationMiddleware records request count and duration per route.
func (s *WebServer) instrumentationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := newResponseWriter(w)

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rw.statusCode, duration)
		s.logger.Debug("request handled",
			logging.Method(r.Method),
			logging.Path(r.URL.Path),
			slog.Int("status", rw.statusCode),
			slog.Duration(logging.KeyDuration, duration))
	})
}
