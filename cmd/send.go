package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/allstonrat/eventdigest/internal/calendar"
	"github.com/allstonrat/eventdigest/internal/config"
	"github.com/allstonrat/eventdigest/internal/digest"
	"github.com/allstonrat/eventdigest/internal/google"
	"github.com/allstonrat/eventdigest/internal/instrumentation"
	"github.com/allstonrat/eventdigest/internal/logging"
	"github.com/allstonrat/eventdigest/internal/mailer"
	"github.com/allstonrat/eventdigest/internal/runner"
)

// pushTimeout bounds the final metrics push and provider shutdown.
const pushTimeout = 10 * time.Second

// sendOptions holds the flags of a digest run.
type sendOptions struct {
	configPath string
	noEmail    bool
	timezone   string

	// interactive allows the authorization prompt when no token is stored.
	interactive bool
}

func newSendCmd() *cobra.Command {
	opts := sendOptions{configPath: config.DefaultPath}

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Email the digest of upcoming events",
		Long: `Fetch the upcoming events of the configured calendar, format them into
a digest and email it to the configured recipients.

With --no-email the digest is printed instead of being sent. If the calendar
has no upcoming events nothing is sent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			provider, err := newInstrumentation(ctx)
			if err != nil {
				return err
			}
			defer shutdownInstrumentation(provider)

			opts.interactive = google.IsTerminal()
			_, err = runSend(ctx, opts, provider)
			pushMetrics(provider)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", opts.configPath, "Path of the INI settings file")
	cmd.Flags().BoolVar(&opts.noEmail, "no-email", false, "Print the digest instead of emailing it")
	cmd.Flags().StringVar(&opts.timezone, "timezone", "", "IANA zone for event times (default: digest.timezone, else the legacy fixed offset)")

	return cmd
}

// runSend performs one digest run with the settings file read afresh.
func runSend(ctx context.Context, opts sendOptions, provider *instrumentation.Provider) (runner.Result, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return runner.Result{}, err
	}

	calendarID, err := cfg.CalendarID()
	if err != nil {
		return runner.Result{}, err
	}
	calendarID = calendar.GroupCalendarID(calendarID)

	formatter, err := newFormatter(cfg, opts.timezone)
	if err != nil {
		return runner.Result{}, err
	}

	metrics := provider.Metrics()
	logger := logging.WithCalendar(slog.Default(), calendarID)

	var (
		deliverer  runner.Deliverer
		recipients int
	)
	if !opts.noEmail {
		settings, err := cfg.Email()
		if err != nil {
			return runner.Result{}, err
		}
		deliverer, err = mailer.New(mailer.Settings{
			Username:   settings.Username,
			Password:   settings.Password,
			Recipients: settings.Recipients,
		}, mailer.WithLogger(logger))
		if err != nil {
			return runner.Result{}, err
		}
		recipients = len(settings.Recipients)
	}

	flow := authFlow()
	flow.Interactive = opts.interactive
	ts, err := google.NewTokenSource(ctx, flow, tokenStore(),
		google.WithLogger(logger),
		google.WithRefreshHook(func(ctx context.Context, err error) {
			result := instrumentation.OAuthResultSuccess
			if err != nil {
				result = instrumentation.OAuthResultFailure
			}
			metrics.RecordOAuthTokenRefresh(ctx, result)
		}))
	if err != nil {
		return runner.Result{}, err
	}

	client, err := calendar.NewClient(ctx, ts)
	if err != nil {
		return runner.Result{}, err
	}

	r := &runner.Runner{
		Source:     client,
		Deliverer:  deliverer,
		Formatter:  formatter,
		Composer:   newComposer(cfg),
		CalendarID: calendarID,
		MaxResults: calendar.DefaultMaxResults,
		Recipients: recipients,
		DryRun:     opts.noEmail,
		Out:        os.Stdout,
		Metrics:    metrics,
		Logger:     slog.Default(),
	}
	return r.Run(ctx)
}

// newFormatter picks zone-aware formatting when a timezone is set by flag or
// in the digest section, and the legacy offset otherwise.
func newFormatter(cfg config.Config, flagZone string) (*digest.Formatter, error) {
	zone := flagZone
	if zone == "" {
		zone = cfg.GetOrDefault(config.SectionDigest, config.OptionTimezone, "")
	}
	if zone == "" {
		return digest.NewFormatter(), nil
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", zone, err)
	}
	return digest.NewZonedFormatter(loc), nil
}

// newComposer applies the optional digest section.
func newComposer(cfg config.Config) *digest.Composer {
	c := digest.NewComposer()
	c.Name = cfg.GetOrDefault(config.SectionDigest, config.OptionName, digest.DefaultName)
	c.Sender = cfg.GetOrDefault(config.SectionDigest, config.OptionSender, digest.DefaultSender)
	return c
}

func authFlow() google.AuthFlow {
	flow := google.DefaultAuthFlow()
	flow.ClientSecretFile = globals.clientSecret
	return flow
}

func tokenStore() *google.FileTokenStore {
	return google.NewFileTokenStore(globals.credentials)
}

func newInstrumentation(ctx context.Context) (*instrumentation.Provider, error) {
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	return provider, nil
}

// pushMetrics pushes run metrics when a Pushgateway is configured. A failed
// push is logged and does not fail the run.
func pushMetrics(provider *instrumentation.Provider) {
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	if err := provider.Push(ctx); err != nil {
		slog.Warn("failed to push metrics", logging.Err(err))
	}
}

func shutdownInstrumentation(provider *instrumentation.Provider) {
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	if err := provider.Shutdown(ctx); err != nil {
		slog.Warn("error during instrumentation shutdown", logging.Err(err))
	}
}
