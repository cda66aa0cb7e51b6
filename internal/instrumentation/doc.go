// Package instrumentation provides OpenTelemetry instrumentation for inboxswoop.
//
// # Metrics
//
// Web server metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Gmail API metrics:
//   - google_api_operations_total: Counter of Google API operations by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of Google API operation durations
//
// OAuth metrics:
//   - oauth_auth_total: Counter of interactive consent attempts by result
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//
// Triage metrics:
//   - messages_processed_total: Counter of messages handled by the archive pipeline, by action
//
// # Tracing
//
// Spans are created for every Gmail API call (google.gmail.<operation>).
//
// # Configuration
//
// Config is filled from the telemetry section of the inboxswoop config file,
// which the INSTRUMENTATION_ENABLED, METRICS_EXPORTER, TRACING_EXPORTER,
// OTEL_EXPORTER_OTLP_ENDPOINT and OTEL_TRACES_SAMPLER_ARG variables override.
// The zero Config is disabled and records nothing.
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName: "inboxswoop",
//		Enabled:     true,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordGoogleAPIOperation(ctx, "gmail", "list", "success", time.Since(start))
package instrumentation
