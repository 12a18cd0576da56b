// Package instrumentation provides OpenTelemetry instrumentation for
// tickview.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for HTTP requests, the OAuth flow, and TickTick API calls
//   - Optional distributed tracing for request flows
//   - Prometheus metrics export via /metrics endpoint on a dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// The package exposes the following metric categories:
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//   - active_sessions: Gauge of active browser sessions
//
// TickTick API Metrics:
//   - ticktick_api_operations_total: Counter of API operations by operation and status
//   - ticktick_api_operation_duration_seconds: Histogram of API operation durations
//
// OAuth Metrics:
//   - oauth_exchange_total: Counter of authorization-code exchanges by result
//
// # Configuration
//
// Configuration comes from the environment via DefaultConfig: OTEL_SERVICE_NAME,
// METRICS_EXPORTER (prometheus, otlp, stdout), TRACING_EXPORTER (otlp, stdout,
// none), OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_TRACES_SAMPLER_ARG, and
// INSTRUMENTATION_ENABLED. The prometheus exporter is the default; disable
// instrumentation entirely with INSTRUMENTATION_ENABLED=false.
package instrumentation
