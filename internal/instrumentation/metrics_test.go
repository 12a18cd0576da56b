package instrumentation

import (
	"context"
	"testing"
	"time"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()

	config := Config{
		ServiceName:       "test-service",
		ServiceVersion:    "test",
		Enabled:           true,
		MetricsExporter:   ExporterPrometheus,
		TracingExporter:   ExporterNone,
		TraceSamplingRate: 0.1,
	}

	provider, err := NewProvider(context.Background(), config)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	t.Cleanup(func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Errorf("failed to shutdown provider: %v", err)
		}
	})

	return provider
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	provider := newTestProvider(t)
	metrics := provider.Metrics()

	ctx := context.Background()

	// Should not panic
	metrics.RecordHTTPRequest(ctx, "GET", "/", 200, 15*time.Millisecond)
	metrics.RecordHTTPRequest(ctx, "GET", "/oauth/callback/", 400, 2*time.Millisecond)
}

func TestMetrics_RecordAPIOperation(t *testing.T) {
	provider := newTestProvider(t)
	metrics := provider.Metrics()

	ctx := context.Background()

	metrics.RecordAPIOperation(ctx, "inbox_tasks", StatusSuccess, 120*time.Millisecond)
	metrics.RecordAPIOperation(ctx, "list_projects", StatusError, 30*time.Millisecond)
}

func TestMetrics_RecordOAuthExchange(t *testing.T) {
	provider := newTestProvider(t)
	metrics := provider.Metrics()

	ctx := context.Background()

	metrics.RecordOAuthExchange(ctx, OAuthResultSuccess)
	metrics.RecordOAuthExchange(ctx, OAuthResultFailure)
}

func TestMetrics_ActiveSessions(t *testing.T) {
	provider := newTestProvider(t)
	metrics := provider.Metrics()

	ctx := context.Background()

	metrics.IncrementActiveSessions(ctx)
	metrics.IncrementActiveSessions(ctx)
	metrics.DecrementActiveSessions(ctx)
}

func TestMetrics_ZeroValueIsNoOp(t *testing.T) {
	var metrics Metrics

	ctx := context.Background()

	// All record methods must be safe on an uninitialized recorder
	metrics.RecordHTTPRequest(ctx, "GET", "/", 200, time.Millisecond)
	metrics.RecordAPIOperation(ctx, "call", StatusSuccess, time.Millisecond)
	metrics.RecordOAuthExchange(ctx, OAuthResultSuccess)
	metrics.IncrementActiveSessions(ctx)
	metrics.DecrementActiveSessions(ctx)
}

func TestProvider_Disabled(t *testing.T) {
	config := Config{
		ServiceName:     "test-service",
		Enabled:         false,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	}

	provider, err := NewProvider(context.Background(), config)
	if err != nil {
		t.Fatalf("failed to create disabled provider: %v", err)
	}

	if provider.Enabled() {
		t.Error("expected provider to be disabled")
	}

	if provider.Metrics() == nil {
		t.Fatal("expected no-op metrics recorder, got nil")
	}

	// Recording on a disabled provider should be a no-op, not a panic
	provider.Metrics().RecordHTTPRequest(context.Background(), "GET", "/", 200, time.Millisecond)

	tracer := provider.Tracer("test")
	if tracer == nil {
		t.Error("expected noop tracer, got nil")
	}

	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown of disabled provider failed: %v", err)
	}
}

func TestProvider_PrometheusHandler(t *testing.T) {
	provider := newTestProvider(t)

	if provider.PrometheusHandler() == nil {
		t.Error("expected PrometheusHandler to be non-nil for prometheus exporter")
	}
}

func TestProvider_PrometheusHandlerDisabled(t *testing.T) {
	config := Config{
		ServiceName:     "test-service",
		Enabled:         false,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	}

	provider, err := NewProvider(context.Background(), config)
	if err != nil {
		t.Fatalf("failed to create disabled provider: %v", err)
	}

	if provider.PrometheusHandler() != nil {
		t.Error("expected PrometheusHandler to be nil when instrumentation is disabled")
	}
}
