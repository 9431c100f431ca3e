package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `[calendar]
calendarid = abc123

[email]
Username = ratcity
password = p#ss;word
recipients = a@example.com, b@example.com,,c@example.com

[digest]
name = Allston Rat City
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calendar.cfg")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.cfg")

	cfg, err := Load(path)
	assert.Nil(t, cfg)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, path, cfgErr.Path)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoad_Sections(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Len(t, cfg, 3)
	assert.Contains(t, cfg, "digest")
	assert.Equal(t, "abc123", cfg["calendar"]["calendarid"])
	assert.Equal(t, "ratcity", cfg["email"]["username"], "option names are case folded")
	assert.Equal(t, "p#ss;word", cfg["email"]["password"], "values are kept verbatim")
}

func TestLoad_NoInterpolation(t *testing.T) {
	cfg, err := Load(writeConfig(t, "[email]\npassword = 100%(home)s\n"))
	require.NoError(t, err)
	assert.Equal(t, "100%(home)s", cfg["email"]["password"])
}

func TestLoad_RawValues(t *testing.T) {
	content := `[email]
username = ratcity ; shared account
password = "se;cret"
token = 'abc'
recipients = a@x.com, b@y.com ; trailing note
path = C:\\digest\\
`
	cfg, err := Load(writeConfig(t, content))
	require.NoError(t, err)

	tests := []struct {
		option string
		want   string
	}{
		{"username", "ratcity"},
		{"password", `"se;cret"`},
		{"token", "'abc'"},
		{"recipients", "a@x.com, b@y.com"},
		{"path", `C:\\digest\\`},
	}
	for _, tt := range tests {
		t.Run(tt.option, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg["email"][tt.option])
		})
	}

	settings, err := cfg.Email()
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@y.com"}, settings.Recipients)
}

func TestConfig_Get(t *testing.T) {
	cfg := Config{"calendar": {"calendarid": "abc"}}

	tests := []struct {
		name    string
		section string
		option  string
		want    string
		wantErr bool
	}{
		{"present", "calendar", "calendarid", "abc", false},
		{"option case folded", "calendar", "CalendarID", "abc", false},
		{"missing option", "calendar", "other", "", true},
		{"missing section", "email", "username", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cfg.Get(tt.section, tt.option)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingOption)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_GetOrDefault(t *testing.T) {
	cfg := Config{"digest": {"name": "  ", "sender": "Rats"}}

	assert.Equal(t, "Rats", cfg.GetOrDefault("digest", "sender", "x"))
	assert.Equal(t, "x", cfg.GetOrDefault("digest", "name", "x"))
	assert.Equal(t, "x", cfg.GetOrDefault("digest", "timezone", "x"))
	assert.Equal(t, "x", cfg.GetOrDefault("nope", "timezone", "x"))
}

func TestConfig_Email(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	email, err := cfg.Email()
	require.NoError(t, err)
	assert.Equal(t, "ratcity", email.Username)
	assert.Equal(t, "p#ss;word", email.Password)
	assert.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com"}, email.Recipients)

	id, err := cfg.CalendarID()
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
}

func TestConfig_EmailMissingPassword(t *testing.T) {
	cfg := Config{"email": {"username": "u", "recipients": "a@example.com"}}

	_, err := cfg.Email()
	assert.ErrorIs(t, err, ErrMissingOption)
	assert.Contains(t, err.Error(), "email.password")
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList(""))
	assert.Nil(t, SplitList(" , "))
	assert.Equal(t, []string{"a", "b"}, SplitList("a,b"))
}
