package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/allstonrat/eventdigest/internal/calendar"
	"github.com/allstonrat/eventdigest/internal/digest"
	"github.com/allstonrat/eventdigest/internal/instrumentation"
	"github.com/allstonrat/eventdigest/internal/logging"
)

// NoEventsMessage is printed when the calendar has no upcoming events.
const NoEventsMessage = "No events found!"

// EventSource lists upcoming events. *calendar.Client implements it.
type EventSource interface {
	ListUpcoming(ctx context.Context, calendarID string, now time.Time, maxResults int64) ([]calendar.RawEvent, error)
}

// Deliverer sends a composed digest. *mailer.Mailer implements it.
type Deliverer interface {
	Send(ctx context.Context, msg digest.Message) error
}

// Runner executes digest runs.
type Runner struct {
	Source     EventSource
	Deliverer  Deliverer
	Formatter  *digest.Formatter
	Composer   *digest.Composer
	CalendarID string
	MaxResults int64

	// Recipients is the number of addresses Deliverer sends to.
	Recipients int

	// DryRun prints the composed message to Out instead of sending it.
	DryRun bool
	Out    io.Writer

	Now     func() time.Time
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Result summarizes a completed run.
type Result struct {
	Events    int
	NewEvents int
	Sent      bool
	Message   *digest.Message

	// TraceID identifies the run's trace when tracing is enabled.
	TraceID string
}

// Run performs one digest run. An empty calendar prints NoEventsMessage and
// succeeds without composing or sending anything. Failures are returned, not
// logged.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	metrics := r.metrics()
	logger := logging.WithCalendar(logging.WithOperation(r.logger(), instrumentation.SpanDigestRun), r.CalendarID)

	ctx, span := instrumentation.StartSpan(ctx, instrumentation.SpanDigestRun,
		instrumentation.NewSpanAttributeBuilder().
			WithCalendar(r.CalendarID).
			WithDryRun(r.DryRun).
			Build()...)
	defer span.End()

	result, err := r.run(ctx, logger)
	result.TraceID = instrumentation.GetTraceID(ctx)
	duration := time.Since(start)

	status := instrumentation.StatusSuccess
	switch {
	case err != nil:
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	case result.Events == 0:
		status = instrumentation.StatusEmpty
		instrumentation.SetSpanSuccess(span)
	default:
		instrumentation.SetSpanSuccess(span)
		logger.Info("digest run completed",
			logging.Events(result.Events),
			slog.Int("new_events", result.NewEvents),
			slog.Bool("sent", result.Sent),
			logging.Duration(duration),
			logging.Status(logging.StatusSuccess))
	}
	metrics.RecordDigestRun(ctx, status, duration)

	return result, err
}

func (r *Runner) run(ctx context.Context, logger *slog.Logger) (Result, error) {
	if r.Source == nil {
		return Result{}, fmt.Errorf("event source is required")
	}
	if !r.DryRun && r.Deliverer == nil {
		return Result{}, fmt.Errorf("deliverer is required unless printing")
	}

	events, err := r.fetch(ctx, logger)
	if err != nil {
		return Result{}, err
	}

	if len(events) == 0 {
		fmt.Fprintln(r.out(), NoEventsMessage)
		logger.Info("no upcoming events", logging.Status(instrumentation.StatusEmpty))
		return Result{}, nil
	}

	formatted, err := r.format(ctx, events)
	if err != nil {
		return Result{}, err
	}

	result := Result{Events: len(formatted)}
	for _, event := range formatted {
		if event.IsNew() {
			result.NewEvents++
		}
	}
	r.metrics().RecordDigestEvents(ctx, result.Events, result.NewEvents)

	msg := r.composer().Compose(formatted)
	result.Message = &msg

	if r.DryRun {
		fmt.Fprintln(r.out(), msg.String())
		return result, nil
	}

	if err := r.send(ctx, msg, result); err != nil {
		return result, err
	}
	result.Sent = true
	return result, nil
}

func (r *Runner) fetch(ctx context.Context, logger *slog.Logger) ([]calendar.RawEvent, error) {
	maxResults := r.MaxResults
	if maxResults <= 0 {
		maxResults = calendar.DefaultMaxResults
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, "list",
		instrumentation.NewSpanAttributeBuilder().WithCalendar(r.CalendarID).Build()...)
	defer span.End()

	start := time.Now()
	events, err := r.Source.ListUpcoming(ctx, r.CalendarID, r.now(), maxResults)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.AddSpanEvent(span, "events.fetched", attribute.Int(instrumentation.SpanAttrEvents, len(events)))
		instrumentation.SetSpanSuccess(span)
		logging.WithService(logger, instrumentation.ServiceCalendar).Debug("fetched events", logging.Events(len(events)))
	}
	r.metrics().RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, "list", status, time.Since(start))

	return events, err
}

func (r *Runner) format(ctx context.Context, events []calendar.RawEvent) ([]digest.FormattedEvent, error) {
	_, span := instrumentation.StartSpan(ctx, instrumentation.SpanDigestFormat)
	defer span.End()

	formatted, err := r.formatter().Format(events)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to format events: %w", err)
	}
	instrumentation.SetSpanSuccess(span)
	return formatted, nil
}

func (r *Runner) send(ctx context.Context, msg digest.Message, result Result) error {
	ctx, span := instrumentation.StartSMTPSpan(ctx,
		instrumentation.NewSpanAttributeBuilder().
			WithEvents(result.Events, result.NewEvents).
			WithRecipients(r.Recipients).
			Build()...)
	defer span.End()

	start := time.Now()
	err := r.Deliverer.Send(ctx, msg)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	r.metrics().RecordSMTPSend(ctx, status, time.Since(start))
	return err
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) out() io.Writer {
	if r.Out != nil {
		return r.Out
	}
	return os.Stdout
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Runner) metrics() *instrumentation.Metrics {
	if r.Metrics != nil {
		return r.Metrics
	}
	return &instrumentation.Metrics{}
}

func (r *Runner) formatter() *digest.Formatter {
	if r.Formatter != nil {
		return r.Formatter
	}
	f := digest.NewFormatter()
	f.Now = r.now
	return f
}

func (r *Runner) composer() *digest.Composer {
	if r.Composer != nil {
		return r.Composer
	}
	c := digest.NewComposer()
	c.Now = r.now
	return c
}
