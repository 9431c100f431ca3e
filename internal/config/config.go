package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

// DefaultPath is the settings file read when no --config flag is given.
const DefaultPath = "calendar.cfg"

// Section and option names recognized by the digest.
const (
	SectionCalendar = "calendar"
	SectionEmail    = "email"
	SectionDigest   = "digest"

	OptionCalendarID = "calendarid"
	OptionUsername   = "username"
	OptionPassword   = "password"
	OptionRecipients = "recipients"
	OptionName       = "name"
	OptionSender     = "sender"
	OptionTimezone   = "timezone"
)

// ErrMissingOption is returned by Config.Get for an absent section or option.
var ErrMissingOption = errors.New("missing config option")

// ConfigError reports a settings file that could not be loaded.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if errors.Is(e.Err, fs.ErrNotExist) {
		return fmt.Sprintf("config file %s does not exist", e.Path)
	}
	return fmt.Sprintf("config file %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Config maps a section name to its options.
type Config map[string]map[string]string

// Load reads the INI file at path. Option names are folded to lower case and
// section names keep their case. Values keep surrounding quotes and are not
// interpolated; a ";" or "#" preceded by whitespace starts an inline comment.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	file, err := ini.LoadSources(ini.LoadOptions{
		InsensitiveKeys:          true,
		SpaceBeforeInlineComment: true,
		PreserveSurroundedQuote:  true,
		IgnoreContinuation:       true,
	}, path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	cfg := make(Config)
	for _, section := range file.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		options := make(map[string]string, len(section.Keys()))
		for _, key := range section.Keys() {
			options[key.Name()] = key.Value()
		}
		cfg[section.Name()] = options
	}
	return cfg, nil
}

// Get returns the raw value of section.option.
func (c Config) Get(section, option string) (string, error) {
	options, ok := c[section]
	if !ok {
		return "", fmt.Errorf("%w: section [%s] not found", ErrMissingOption, section)
	}
	value, ok := options[strings.ToLower(option)]
	if !ok {
		return "", fmt.Errorf("%w: %s.%s", ErrMissingOption, section, option)
	}
	return value, nil
}

// GetOrDefault returns section.option, or def when it is absent or blank.
func (c Config) GetOrDefault(section, option, def string) string {
	value, err := c.Get(section, option)
	if err != nil || strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

// CalendarID returns calendar.calendarid.
func (c Config) CalendarID() (string, error) {
	return c.Get(SectionCalendar, OptionCalendarID)
}

// EmailSettings holds the email section.
type EmailSettings struct {
	Username   string
	Password   string
	Recipients []string
}

// Email returns the email section. Recipients are split on commas and
// trimmed; empty entries are dropped.
func (c Config) Email() (EmailSettings, error) {
	username, err := c.Get(SectionEmail, OptionUsername)
	if err != nil {
		return EmailSettings{}, err
	}
	password, err := c.Get(SectionEmail, OptionPassword)
	if err != nil {
		return EmailSettings{}, err
	}
	recipients, err := c.Get(SectionEmail, OptionRecipients)
	if err != nil {
		return EmailSettings{}, err
	}
	return EmailSettings{
		Username:   username,
		Password:   password,
		Recipients: SplitList(recipients),
	}, nil
}

// SplitList splits a comma separated value.
func SplitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
