package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrNew       = "new"
)

// Metrics provides methods for recording observability metrics.
// The zero value is a no-op recorder.
type Metrics struct {
	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	// OAuth metrics
	oauthTokenRefreshTotal metric.Int64Counter

	// Digest metrics
	digestRunsTotal   metric.Int64Counter
	digestRunDuration metric.Float64Histogram
	digestEventsTotal metric.Int64Counter

	// SMTP metrics
	smtpSendTotal    metric.Int64Counter
	smtpSendDuration metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	// Google API Metrics
	m.googleAPIOperationsTotal, err = meter.Int64Counter(
		"google_api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operations_total counter: %w", err)
	}

	m.googleAPIOperationDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operation_duration_seconds histogram: %w", err)
	}

	// OAuth Metrics
	m.oauthTokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	// Digest Metrics
	m.digestRunsTotal, err = meter.Int64Counter(
		"digest_runs_total",
		metric.WithDescription("Total number of digest runs by outcome"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create digest_runs_total counter: %w", err)
	}

	m.digestRunDuration, err = meter.Float64Histogram(
		"digest_run_duration_seconds",
		metric.WithDescription("Digest run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create digest_run_duration_seconds histogram: %w", err)
	}

	m.digestEventsTotal, err = meter.Int64Counter(
		"digest_events_total",
		metric.WithDescription("Total number of events included in digests"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create digest_events_total counter: %w", err)
	}

	// SMTP Metrics
	m.smtpSendTotal, err = meter.Int64Counter(
		"smtp_send_total",
		metric.WithDescription("Total number of digest deliveries"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp_send_total counter: %w", err)
	}

	m.smtpSendDuration, err = meter.Float64Histogram(
		"smtp_send_duration_seconds",
		metric.WithDescription("SMTP delivery duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp_send_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordGoogleAPIOperation records a Google API operation with service, operation,
// status, and duration.
//
// Parameters:
//   - service: Google service name (calendar)
//   - operation: Operation type (list)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.googleAPIOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordOAuthTokenRefresh records an OAuth token refresh attempt with result.
// Result should be one of: "success", "failure"
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, result string) {
	if m.oauthTokenRefreshTotal == nil {
		return // Instrumentation not initialized
	}

	m.oauthTokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordDigestRun records the outcome of one digest run.
// Status should be one of: "success", "empty", "error"
func (m *Metrics) RecordDigestRun(ctx context.Context, status string, duration time.Duration) {
	if m.digestRunsTotal == nil || m.digestRunDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))
	m.digestRunsTotal.Add(ctx, 1, attrs)
	m.digestRunDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordDigestEvents records the events placed in a digest, split by whether
// they carry the new marker.
func (m *Metrics) RecordDigestEvents(ctx context.Context, total, recent int) {
	if m.digestEventsTotal == nil {
		return // Instrumentation not initialized
	}

	if recent > 0 {
		m.digestEventsTotal.Add(ctx, int64(recent),
			metric.WithAttributes(attribute.String(attrNew, strconv.FormatBool(true))))
	}
	if rest := total - recent; rest > 0 {
		m.digestEventsTotal.Add(ctx, int64(rest),
			metric.WithAttributes(attribute.String(attrNew, strconv.FormatBool(false))))
	}
}

// RecordSMTPSend records a delivery attempt with status and duration.
func (m *Metrics) RecordSMTPSend(ctx context.Context, status string, duration time.Duration) {
	if m.smtpSendTotal == nil || m.smtpSendDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))
	m.smtpSendTotal.Add(ctx, 1, attrs)
	m.smtpSendDuration.Record(ctx, duration.Seconds(), attrs)
}
