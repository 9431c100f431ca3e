package google

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
)

const (
	// DefaultClientSecretFile is the OAuth client file downloaded from the
	// Google Cloud console.
	DefaultClientSecretFile = "client_secret.json"

	// DefaultAppName identifies the application to Google during authorization.
	DefaultAppName = "Calendar Event Digest"

	authState = "state-token"
)

// DefaultScopes grants read-only calendar access.
var DefaultScopes = []string{calendar.CalendarReadonlyScope}

// AuthFlow describes the one-time interactive authorization.
type AuthFlow struct {
	// ClientSecretFile is the path of the OAuth client JSON.
	ClientSecretFile string

	// Scopes requested from the user.
	Scopes []string

	// AppName is sent as the User-Agent of the code exchange.
	AppName string

	// Interactive allows prompting the user when no usable token is stored.
	Interactive bool

	// In and Out are the terminal used for the prompt.
	In  io.Reader
	Out io.Writer
}

// DefaultAuthFlow returns an AuthFlow reading client_secret.json and
// prompting on stdin/stdout.
func DefaultAuthFlow() AuthFlow {
	return AuthFlow{
		ClientSecretFile: DefaultClientSecretFile,
		Scopes:           DefaultScopes,
		AppName:          DefaultAppName,
		Interactive:      IsTerminal(),
		In:               os.Stdin,
		Out:              os.Stdout,
	}
}

// Config builds the OAuth2 configuration from the client secret file.
func (f AuthFlow) Config() (*oauth2.Config, error) {
	data, err := os.ReadFile(f.ClientSecretFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secret file %s: %w", f.ClientSecretFile, err)
	}

	scopes := f.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	conf, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secret file %s: %w", f.ClientSecretFile, err)
	}
	return conf, nil
}

// Run asks the user to authorize the application and exchanges the code
// they paste back for a token.
func (f AuthFlow) Run(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	if f.In == nil || f.Out == nil {
		return nil, fmt.Errorf("interactive authorization needs a terminal")
	}

	authURL := conf.AuthCodeURL(authState, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(f.Out, "Authorize %s by visiting this URL:\n\n%s\n\n", f.appName(), authURL)
	fmt.Fprint(f.Out, "Paste the authorization code (or the full redirect URL): ")

	line, err := bufio.NewReader(f.In).ReadString('\n')
	if err != nil && (err != io.EOF || strings.TrimSpace(line) == "") {
		return nil, fmt.Errorf("failed to read authorization code: %w", err)
	}

	code, err := ParseAuthCode(line)
	if err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{
		Transport: &userAgentTransport{userAgent: f.appName(), base: http.DefaultTransport},
	})
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}

func (f AuthFlow) appName() string {
	if f.AppName == "" {
		return DefaultAppName
	}
	return f.AppName
}

// ParseAuthCode accepts either a bare code or the redirect URL carrying it.
func ParseAuthCode(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("empty authorization code")
	}

	if strings.Contains(input, "://") {
		u, err := url.Parse(input)
		if err != nil {
			return "", fmt.Errorf("invalid redirect URL: %w", err)
		}
		q := u.Query()
		if e := q.Get("error"); e != "" {
			return "", fmt.Errorf("authorization denied: %s", e)
		}
		code := q.Get("code")
		if code == "" {
			return "", fmt.Errorf("redirect URL has no code parameter")
		}
		return code, nil
	}
	return input, nil
}

// IsTerminal checks if stdin is connected to a terminal (CLI mode)
func IsTerminal() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

type userAgentTransport struct {
	userAgent string
	base      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}
