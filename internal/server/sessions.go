package server

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/teemow/tickview/internal/instrumentation"
	"github.com/teemow/tickview/internal/logging"
)

// SessionCookieName is the name of the browser session cookie.
const SessionCookieName = "tickview_session"

// sessionEntry tracks per-browser state for cleanup
type sessionEntry struct {
	accessToken string
	oauthState  string
	lastAccess  time.Time
}

// SessionStore implements in-memory session management for the web app.
// Each browser gets its own session, holding at most one TickTick access
// token and one pending OAuth state. Cookies carry only a signed session ID;
// tokens never leave the server.
type SessionStore struct {
	sessions       map[string]*sessionEntry
	secret         []byte
	mu             sync.RWMutex
	cleanupTicker  *time.Ticker
	cleanupDone    chan bool
	stopOnce       sync.Once
	sessionTimeout time.Duration
	logger         *slog.Logger
	metrics        *instrumentation.Metrics
}

// NewSessionStore creates a new session store with default timeout and logger
func NewSessionStore() *SessionStore {
	return NewSessionStoreWithLogger(24*time.Hour, slog.Default())
}

// NewSessionStoreWithTimeout creates a new session store with a custom timeout
func NewSessionStoreWithTimeout(timeout time.Duration) *SessionStore {
	return NewSessionStoreWithLogger(timeout, slog.Default())
}

// NewSessionStoreWithLogger creates a new session store with custom timeout and logger.
// The cookie-signing key is read from TICKVIEW_SECRET_KEY; a random key is
// generated when the variable is unset, which invalidates sessions across
// restarts.
func NewSessionStoreWithLogger(timeout time.Duration, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.WithComponent(logger, "sessions")

	secret := []byte(os.Getenv("TICKVIEW_SECRET_KEY"))
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			panic("sessions: unable to read from crypto/rand: " + err.Error())
		}
		logger.Warn("TICKVIEW_SECRET_KEY not set, using ephemeral session key")
	}

	s := &SessionStore{
		sessions:       make(map[string]*sessionEntry),
		secret:         secret,
		cleanupTicker:  time.NewTicker(10 * time.Minute),
		cleanupDone:    make(chan bool),
		sessionTimeout: timeout,
		logger:         logger,
	}

	// Start cleanup goroutine
	go s.cleanupExpiredSessions()

	return s
}

// SetMetrics attaches a metrics recorder so the active session gauge tracks
// session creation and expiry.
func (s *SessionStore) SetMetrics(m *instrumentation.Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// Ensure resolves the session for an HTTP request, creating a new session
// and setting the cookie when the request carries none (or a tampered one).
// It returns the session ID.
func (s *SessionStore) Ensure(w http.ResponseWriter, r *http.Request) string {
	if id, ok := s.lookup(r); ok {
		return id
	}

	id := s.newSession()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    s.sign(id),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// lookup verifies the session cookie and returns the session ID when the
// signature checks out and the session still exists.
func (s *SessionStore) lookup(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", false
	}

	id, ok := s.verify(cookie.Value)
	if !ok {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return "", false
	}
	entry.lastAccess = time.Now()
	return id, true
}

// newSession creates a fresh session with a random 128-bit ID.
func (s *SessionStore) newSession() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic("sessions: unable to read from crypto/rand: " + err.Error())
	}
	id := hex.EncodeToString(buf)

	s.mu.Lock()
	s.sessions[id] = &sessionEntry{lastAccess: time.Now()}
	metrics := s.metrics
	s.mu.Unlock()

	if metrics != nil {
		metrics.IncrementActiveSessions(context.Background())
	}

	return id
}

// sign produces the cookie value "<id>.<hmac>" for a session ID.
func (s *SessionStore) sign(id string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(id))
	return id + "." + hex.EncodeToString(mac.Sum(nil))
}

// verify checks a cookie value against the signing key.
func (s *SessionStore) verify(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok {
		return "", false
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(id))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return "", false
	}
	return id, true
}

// Token returns the access token stored on a session, or "" when the
// session is not connected.
func (s *SessionStore) Token(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if entry, ok := s.sessions[id]; ok {
		return entry.accessToken
	}
	return ""
}

// SetToken stores the access token on a session
func (s *SessionStore) SetToken(id, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.sessions[id]; ok {
		entry.accessToken = token
		entry.lastAccess = time.Now()
	}
}

// SetState stores a pending OAuth state on a session
func (s *SessionStore) SetState(id, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.sessions[id]; ok {
		entry.oauthState = state
		entry.lastAccess = time.Now()
	}
}

// ConsumeState returns the pending OAuth state and clears it. States are
// single use to keep the callback replay-safe.
func (s *SessionStore) ConsumeState(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return ""
	}
	state := entry.oauthState
	entry.oauthState = ""
	return state
}

// Clear drops the token and pending state from a session, keeping the
// session itself alive
func (s *SessionStore) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.sessions[id]; ok {
		entry.accessToken = ""
		entry.oauthState = ""
		entry.lastAccess = time.Now()
	}
}

// RemoveSession removes a session from the store
func (s *SessionStore) RemoveSession(id string) {
	s.mu.Lock()
	_, existed := s.sessions[id]
	delete(s.sessions, id)
	metrics := s.metrics
	s.mu.Unlock()

	if existed && metrics != nil {
		metrics.DecrementActiveSessions(context.Background())
	}
}

// Count returns the number of active sessions
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// cleanupExpiredSessions periodically removes expired sessions
func (s *SessionStore) cleanupExpiredSessions() {
	for {
		select {
		case <-s.cleanupTicker.C:
			s.mu.Lock()
			now := time.Now()
			expiredCount := 0
			for id, entry := range s.sessions {
				if now.Sub(entry.lastAccess) > s.sessionTimeout {
					delete(s.sessions, id)
					expiredCount++
				}
			}
			metrics := s.metrics
			s.mu.Unlock()
			if expiredCount > 0 {
				if metrics != nil {
					for i := 0; i < expiredCount; i++ {
						metrics.DecrementActiveSessions(context.Background())
					}
				}
				s.logger.Info("Cleaned up expired sessions", "count", expiredCount)
			}
		case <-s.cleanupDone:
			return
		}
	}
}

// Stop stops the session cleanup goroutine. Safe to call more than once.
func (s *SessionStore) Stop() {
	s.stopOnce.Do(func() {
		if s.cleanupTicker != nil {
			s.cleanupTicker.Stop()
		}
		if s.cleanupDone != nil {
			close(s.cleanupDone)
		}
	})
}
