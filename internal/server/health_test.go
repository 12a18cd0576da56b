package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHealthChecker(t *testing.T) (*HealthChecker, *ServerContext) {
	t.Helper()

	t.Setenv("TICKVIEW_SECRET_KEY", "test-secret-key")

	store := NewSessionStoreWithTimeout(time.Hour)
	t.Cleanup(store.Stop)

	sc := NewServerContext(context.Background(), nil, store)
	return NewHealthChecker(sc), sc
}

func TestLivenessHandler(t *testing.T) {
	checker, _ := newTestHealthChecker(t)

	rec := httptest.NewRecorder()
	checker.LivenessHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	require.Equal(t, 200, rec.Code)

	var response HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "ok", response.Status)
}

func TestReadinessHandler(t *testing.T) {
	checker, _ := newTestHealthChecker(t)

	rec := httptest.NewRecorder()
	checker.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))

	require.Equal(t, 200, rec.Code)

	var response HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "ok", response.Checks["ready"])
	assert.Equal(t, "ok", response.Checks["shutdown"])
}

func TestReadinessHandler_NotReady(t *testing.T) {
	checker, _ := newTestHealthChecker(t)
	checker.SetReady(false)

	rec := httptest.NewRecorder()
	checker.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))

	require.Equal(t, 503, rec.Code)

	var response HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "not ready", response.Status)
	assert.Equal(t, "not ready", response.Checks["ready"])
}

func TestReadinessHandler_ShuttingDown(t *testing.T) {
	checker, sc := newTestHealthChecker(t)
	require.NoError(t, sc.Shutdown())

	rec := httptest.NewRecorder()
	checker.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))

	require.Equal(t, 503, rec.Code)

	var response HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "shutting down", response.Checks["shutdown"])
}

func TestDetailedHealthHandler(t *testing.T) {
	checker, sc := newTestHealthChecker(t)

	// Create a session so the count is visible in the response
	sc.Sessions().Ensure(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	rec := httptest.NewRecorder()
	checker.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz/detailed", nil))

	require.Equal(t, 200, rec.Code)

	var response DetailedHealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "ok", response.Status)
	assert.NotEmpty(t, response.Uptime)
	assert.Equal(t, 1, response.Sessions)
}
