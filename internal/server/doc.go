// Package server provides the tickview web application: the inbox page,
// the TickTick OAuth routes, session management, health endpoints, and the
// dedicated Prometheus metrics server.
//
// # Key Components
//
// ServerContext tracks server lifecycle state and the OAuth credentials the
// handlers need. Handlers create a short-lived TickTick client per request
// from the token stored in the browser session.
//
// SessionStore keeps sessions in memory, keyed by an HMAC-signed cookie.
// Each session holds at most one access token and one pending OAuth state.
// Expired sessions are removed by a background cleanup goroutine.
//
// WebServer wires the routes:
//   - GET /               inbox page (connect link or task table)
//   - GET /oauth/login    redirect to the TickTick authorization page
//   - GET /oauth/callback/ authorization-code exchange
//   - GET /disconnect     drop the session token
//   - /healthz, /readyz, /healthz/detailed
//
// MetricsServer serves /metrics on a separate port so operational metrics
// are never exposed on the application port.
package server
