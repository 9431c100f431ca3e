package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/allstonrat/eventdigest/internal/google"
	"github.com/allstonrat/eventdigest/internal/logging"
)

// defaultEnvFile is loaded when present unless --env-file names another file.
const defaultEnvFile = ".env"

// globalOptions holds the persistent flags shared by all commands.
type globalOptions struct {
	logLevel     string
	logFormat    string
	credentials  string
	clientSecret string
	envFile      string
}

var globals = globalOptions{
	logLevel:     "info",
	logFormat:    logging.FormatText,
	clientSecret: google.DefaultClientSecretFile,
	envFile:      defaultEnvFile,
}

// rootCmd represents the base command for the eventdigest application
var rootCmd = &cobra.Command{
	Use:   "eventdigest",
	Short: "Emails a weekly digest of upcoming calendar events",
	Long: `eventdigest reads the upcoming events of a Google group calendar,
formats them into a plain-text digest and emails it to a list of recipients.

Settings are read from an INI file (calendar.cfg by default) with a
[calendar] section naming the calendar and an [email] section with the
sending account and recipients.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnvFile(globals.envFile, cmd.Flags().Changed("env-file")); err != nil {
			return err
		}
		logger, err := newLogger(globals.logLevel, globals.logFormat)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "eventdigest version %s\n" .Version}}`)
	rootCmd.SetArgs(defaultArgs(os.Args[1:]))

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", logging.Err(err))
		os.Exit(1)
	}
}

// defaultArgs runs the send command when no subcommand is given, so that
// both a bare invocation and one with only send flags send the digest.
func defaultArgs(args []string) []string {
	if len(args) == 0 {
		return []string{"send"}
	}
	switch args[0] {
	case "-h", "--help", "-v", "--version", "help", "completion":
		return args
	}
	if strings.HasPrefix(args[0], "-") {
		return append([]string{"send"}, args...)
	}
	return args
}

// loadEnvFile seeds the environment from a dotenv file. Variables already set
// take precedence. A missing file is only an error when it was asked for.
func loadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if !required && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// newLogger builds the process logger writing to stderr.
func newLogger(level, format string) (*slog.Logger, error) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	handler, err := logging.NewHandler(os.Stderr, format, lvl, isCharDevice(os.Stderr))
	if err != nil {
		return nil, err
	}
	return slog.New(handler).With(logging.Service("eventdigest")), nil
}

func isCharDevice(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&globals.logLevel, "log-level", globals.logLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&globals.logFormat, "log-format", globals.logFormat, "Log format (text, json)")
	flags.StringVar(&globals.credentials, "credentials", "", "Path of the cached OAuth token (default: ~/.credentials/calendar-digest.json)")
	flags.StringVar(&globals.clientSecret, "client-secret", globals.clientSecret, "Path of the OAuth client secret JSON")
	flags.StringVar(&globals.envFile, "env-file", globals.envFile, "Dotenv file with instrumentation settings")

	rootCmd.AddCommand(newSendCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newScheduleCmd())
	rootCmd.AddCommand(newVersionCmd())
}
