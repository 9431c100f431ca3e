package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/allstonrat/eventdigest/internal/digest"
	"github.com/allstonrat/eventdigest/internal/logging"
)

const (
	// DefaultHost is the mail submission host.
	DefaultHost = "smtp.gmail.com"

	// DefaultPort is the submission port (STARTTLS).
	DefaultPort = 587

	// SenderDomain is appended to the username to form the sender address.
	SenderDomain = "@gmail.com"
)

// Sender delivers composed messages. *mail.Client implements it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Settings holds the account and recipients.
type Settings struct {
	Username   string
	Password   string
	Recipients []string

	// Host and Port default to DefaultHost and DefaultPort.
	Host string
	Port int
}

// SenderAddress returns the envelope sender for username.
func SenderAddress(username string) string {
	return username + SenderDomain
}

// Mailer sends digests
type Mailer struct {
	settings Settings
	sender   Sender
	logger   *slog.Logger
}

// Option configures a Mailer.
type Option func(*Mailer)

// WithSender replaces the SMTP client, mainly for tests.
func WithSender(sender Sender) Option {
	return func(m *Mailer) {
		m.sender = sender
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mailer) {
		m.logger = logger
	}
}

// New creates a Mailer. Unless WithSender is given, an SMTP client is set up
// for the submission host with mandatory STARTTLS and PLAIN authentication.
func New(settings Settings, opts ...Option) (*Mailer, error) {
	if settings.Host == "" {
		settings.Host = DefaultHost
	}
	if settings.Port == 0 {
		settings.Port = DefaultPort
	}

	m := &Mailer{
		settings: settings,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.sender == nil {
		client, err := mail.NewClient(settings.Host,
			mail.WithTLSPortPolicy(mail.TLSMandatory),
			mail.WithPort(settings.Port),
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(settings.Username),
			mail.WithPassword(settings.Password),
			mail.WithTimeout(30*time.Second),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create SMTP client: %w", err)
		}
		m.sender = client
	}

	return m, nil
}

// BuildMsg converts a digest message into a plain-text mail message.
func (m *Mailer) BuildMsg(msg digest.Message) (*mail.Msg, error) {
	if len(m.settings.Recipients) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}

	out := mail.NewMsg()
	if err := out.FromFormat(msg.From, SenderAddress(m.settings.Username)); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := out.To(m.settings.Recipients...); err != nil {
		return nil, fmt.Errorf("invalid recipients: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetDate()
	out.SetBodyString(mail.TypeTextPlain, msg.Body)
	return out, nil
}

// Send delivers msg to every recipient in one SMTP session.
func (m *Mailer) Send(ctx context.Context, msg digest.Message) error {
	out, err := m.BuildMsg(msg)
	if err != nil {
		return err
	}

	logger := logging.WithOperation(m.logger, "smtp.send")
	if err := m.sender.DialAndSendWithContext(ctx, out); err != nil {
		logger.Error("failed to send digest",
			logging.UserHash(SenderAddress(m.settings.Username)),
			logging.Err(err))
		return fmt.Errorf("failed to send digest via %s:%d: %w", m.settings.Host, m.settings.Port, err)
	}

	logger.Info("digest sent",
		logging.UserHash(SenderAddress(m.settings.Username)),
		slog.Int("recipients", len(m.settings.Recipients)),
		logging.Status(logging.StatusSuccess))
	return nil
}
