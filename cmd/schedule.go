package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/allstonrat/eventdigest/internal/config"
	"github.com/allstonrat/eventdigest/internal/instrumentation"
	"github.com/allstonrat/eventdigest/internal/logging"
	"github.com/allstonrat/eventdigest/internal/server"
)

// DefaultSchedule sends the digest every Monday at 9:00.
const DefaultSchedule = "0 9 * * 1"

func newScheduleCmd() *cobra.Command {
	var (
		spec        string
		location    string
		runNow      bool
		metricsAddr string
	)
	opts := sendOptions{configPath: config.DefaultPath}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Send the digest on a cron schedule",
		Long: `Stay in the foreground and send the digest whenever the cron expression
fires. Runs never overlap: a tick that arrives while a run is still in
progress is skipped. The settings file is read again for every run.

Run the auth command once beforehand; scheduled runs never prompt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := ensureCredentials(tokenStore()); err != nil {
				return err
			}

			provider, err := newInstrumentation(ctx)
			if err != nil {
				return err
			}
			defer shutdownInstrumentation(provider)

			health := server.NewHealthChecker()
			var c *cron.Cron
			job := func() {
				start := time.Now()
				result, err := runSend(ctx, opts, provider)
				if err != nil {
					slog.Error("scheduled digest failed", logging.Err(err), slog.String("trace_id", result.TraceID))
				}
				health.RecordRun(server.RunStatus{
					Started:  start,
					Duration: time.Since(start),
					Events:   result.Events,
					Sent:     result.Sent,
					Err:      err,
				})
				pushMetrics(provider)
				if entries := c.Entries(); len(entries) > 0 && !entries[0].Next.IsZero() {
					health.SetNextRun(entries[0].Next)
				}
			}

			c, err = newScheduler(spec, location, slog.Default(), job)
			if err != nil {
				return err
			}

			if metricsAddr != "" {
				stop, err := startMetricsServer(metricsAddr, provider, health)
				if err != nil {
					return err
				}
				defer stop()
			}

			if runNow {
				job()
			}

			c.Start()
			next := c.Entries()[0].Next
			health.SetNextRun(next)
			health.SetReady(true)
			slog.Info("scheduler started", slog.String("schedule", spec), slog.Time("next", next))

			<-ctx.Done()
			slog.Info("stopping scheduler")
			health.SetShuttingDown()
			<-c.Stop().Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&spec, "cron", DefaultSchedule, "Cron expression (minute hour day-of-month month day-of-week)")
	cmd.Flags().StringVar(&location, "cron-timezone", "", "IANA zone the cron expression is evaluated in (default: local time)")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Send one digest immediately before waiting for the schedule")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics and health probes on this address (e.g. :9090, default: disabled)")
	cmd.Flags().StringVar(&opts.configPath, "config", opts.configPath, "Path of the INI settings file")
	cmd.Flags().BoolVar(&opts.noEmail, "no-email", false, "Print the digest instead of emailing it")
	cmd.Flags().StringVar(&opts.timezone, "timezone", "", "IANA zone for event times (default: digest.timezone, else the legacy fixed offset)")

	return cmd
}

// newScheduler builds a cron scheduler running job on spec. Overlapping runs
// are skipped and panics are recovered and logged.
func newScheduler(spec, location string, logger *slog.Logger, job func()) (*cron.Cron, error) {
	loc := time.Local
	if location != "" {
		var err error
		loc, err = time.LoadLocation(location)
		if err != nil {
			return nil, fmt.Errorf("invalid cron timezone %q: %w", location, err)
		}
	}

	cronLogger := logging.NewCronAdapter(logger)
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := c.AddFunc(spec, job); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return c, nil
}

// startMetricsServer serves the provider's metrics and the health probes in
// the background. The returned function shuts the server down.
func startMetricsServer(addr string, provider *instrumentation.Provider, health *server.HealthChecker) (func(), error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:     addr,
		Gatherer: provider.Gatherer(),
		Health:   health,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	ready := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(ready); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ready:
	case err := <-errCh:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(ctx); err != nil {
			slog.Warn("error during metrics server shutdown", logging.Err(err))
		}
	}, nil
}
