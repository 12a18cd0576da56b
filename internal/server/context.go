package server

import (
	"context"
	"sync"

	"github.com/teemow/tickview/internal/ticktick"
)

// ServerContext holds the shared state for the web server
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	flow     *ticktick.OAuthFlow
	sessions *SessionStore
	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, flow *ticktick.OAuthFlow, sessions *SessionStore) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		flow:     flow,
		sessions: sessions,
	}
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Flow returns the OAuth flow used to connect TickTick accounts
func (sc *ServerContext) Flow() *ticktick.OAuthFlow {
	return sc.flow
}

// Sessions returns the session store
func (sc *ServerContext) Sessions() *SessionStore {
	return sc.sessions
}

// SessionCount returns the number of active sessions.
// Returns 0 when no session store is configured.
func (sc *ServerContext) SessionCount() int {
	if sc.sessions == nil {
		return 0
	}
	return sc.sessions.Count()
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()

	if sc.sessions != nil {
		sc.sessions.Stop()
	}
	return nil
}
