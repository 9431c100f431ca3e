// Package instrumentation provides OpenTelemetry metrics and tracing for
// digest runs.
//
// # Metrics
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Google API operations by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of Google API operation durations
//
// OAuth Metrics:
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//
// Digest Metrics:
//   - digest_runs_total: Counter of digest runs by status (success, empty, error)
//   - digest_run_duration_seconds: Histogram of digest run durations
//   - digest_events_total: Counter of events placed in digests, labeled by new marker
//
// SMTP Metrics:
//   - smtp_send_total: Counter of deliveries by status
//   - smtp_send_duration_seconds: Histogram of delivery durations
//
// A digest run is a batch job, so with the prometheus exporter the metrics
// can be pushed to a Pushgateway at the end of each run instead of being
// scraped.
//
// # Tracing
//
// Spans are created for:
//   - the whole run (digest.run)
//   - the calendar query (google.calendar.list)
//   - formatting (digest.format)
//   - delivery (smtp.send)
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 1.0)
//   - OTEL_SERVICE_NAME: Service name (default: eventdigest)
//   - PUSHGATEWAY_URL: Pushgateway receiving run metrics (default: unset)
//   - PUSHGATEWAY_JOB: Job label for pushed metrics (default: eventdigest)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, "list", "success", time.Since(start))
//	recorder.RecordDigestRun(ctx, "success", time.Since(start))
//
//	if err := provider.Push(ctx); err != nil {
//		slog.Warn("failed to push metrics", "error", err)
//	}
package instrumentation
