package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type tokenServer struct {
	*httptest.Server
	requests  atomic.Int32
	userAgent atomic.Value
	fail      bool
}

func newTokenServer(t *testing.T, accessToken string) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.requests.Add(1)
		ts.userAgent.Store(r.Header.Get("User-Agent"))
		if ts.fail {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  accessToken,
			"token_type":    "Bearer",
			"refresh_token": "refresh-1",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func writeClientSecret(t *testing.T, tokenURL string) string {
	t.Helper()
	secret := fmt.Sprintf(`{"installed":{
		"client_id":"test-client-id.apps.googleusercontent.com",
		"client_secret":"test-secret",
		"redirect_uris":["http://localhost"],
		"auth_uri":"https://accounts.google.com/o/oauth2/auth",
		"token_uri":%q}}`, tokenURL)
	path := filepath.Join(t.TempDir(), "client_secret.json")
	require.NoError(t, os.WriteFile(path, []byte(secret), 0600))
	return path
}

func TestParseAuthCode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare code", "4/abc-123\n", "4/abc-123", false},
		{"redirect url", "http://localhost/?state=state-token&code=4%2Fxyz&scope=a", "4/xyz", false},
		{"denied", "http://localhost/?error=access_denied", "", true},
		{"url without code", "http://localhost/?state=x", "", true},
		{"empty", "  \n", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAuthCode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthFlow_Config(t *testing.T) {
	flow := AuthFlow{ClientSecretFile: writeClientSecret(t, "https://oauth2.example.com/token")}

	conf, err := flow.Config()
	require.NoError(t, err)
	assert.Equal(t, "test-client-id.apps.googleusercontent.com", conf.ClientID)
	assert.Equal(t, DefaultScopes, conf.Scopes)
	assert.Equal(t, "https://oauth2.example.com/token", conf.Endpoint.TokenURL)
}

func TestAuthFlow_ConfigMissingFile(t *testing.T) {
	flow := AuthFlow{ClientSecretFile: filepath.Join(t.TempDir(), "nope.json")}
	_, err := flow.Config()
	assert.Error(t, err)
}

func TestAuthFlow_Run(t *testing.T) {
	srv := newTokenServer(t, "access-1")
	var out bytes.Buffer
	flow := AuthFlow{
		ClientSecretFile: writeClientSecret(t, srv.URL),
		AppName:          "digest-test",
		In:               strings.NewReader("the-code\n"),
		Out:              &out,
	}
	conf, err := flow.Config()
	require.NoError(t, err)

	token, err := flow.Run(context.Background(), conf)
	require.NoError(t, err)
	assert.Equal(t, "access-1", token.AccessToken)
	assert.Equal(t, "digest-test", srv.userAgent.Load())
	assert.Contains(t, out.String(), "access_type=offline")
	assert.Contains(t, out.String(), "digest-test")
}

func TestAuthFlow_RunNoTerminal(t *testing.T) {
	_, err := AuthFlow{}.Run(context.Background(), &oauth2.Config{})
	assert.Error(t, err)
}

func TestNewTokenSource_NoTokenNonInteractive(t *testing.T) {
	srv := newTokenServer(t, "access-1")
	flow := AuthFlow{ClientSecretFile: writeClientSecret(t, srv.URL)}
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "token.json"))

	_, err := NewTokenSource(context.Background(), flow, store)
	assert.ErrorIs(t, err, ErrNoToken)
	assert.Zero(t, srv.requests.Load())
}

func TestNewTokenSource_InteractiveStoresToken(t *testing.T) {
	srv := newTokenServer(t, "access-1")
	flow := AuthFlow{
		ClientSecretFile: writeClientSecret(t, srv.URL),
		Interactive:      true,
		In:               strings.NewReader("the-code\n"),
		Out:              &bytes.Buffer{},
	}
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "creds", "token.json"))

	ts, err := NewTokenSource(context.Background(), flow, store)
	require.NoError(t, err)

	token, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-1", token.AccessToken)

	stored, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", stored.AccessToken)
	assert.Equal(t, "refresh-1", stored.RefreshToken)
}

func TestNewTokenSource_RefreshesAndPersists(t *testing.T) {
	srv := newTokenServer(t, "access-2")
	flow := AuthFlow{ClientSecretFile: writeClientSecret(t, srv.URL)}
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "token.json"))
	require.NoError(t, store.Put(context.Background(), &oauth2.Token{
		AccessToken:  "expired",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	var refreshes []error
	hook := func(ctx context.Context, err error) { refreshes = append(refreshes, err) }

	ts, err := NewTokenSource(context.Background(), flow, store, WithRefreshHook(hook))
	require.NoError(t, err)
	require.Len(t, refreshes, 1)
	assert.NoError(t, refreshes[0])

	token, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-2", token.AccessToken)

	stored, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", stored.AccessToken)
}

func TestNewTokenSource_ValidTokenNoRefresh(t *testing.T) {
	srv := newTokenServer(t, "unused")
	flow := AuthFlow{ClientSecretFile: writeClientSecret(t, srv.URL)}
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "token.json"))
	require.NoError(t, store.Put(context.Background(), &oauth2.Token{
		AccessToken: "fresh",
		Expiry:      time.Now().Add(time.Hour),
	}))

	ts, err := NewTokenSource(context.Background(), flow, store)
	require.NoError(t, err)

	token, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh", token.AccessToken)
	assert.Zero(t, srv.requests.Load())
}

func TestNewTokenSource_RevokedNonInteractive(t *testing.T) {
	srv := newTokenServer(t, "unused")
	srv.fail = true
	flow := AuthFlow{ClientSecretFile: writeClientSecret(t, srv.URL)}
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "token.json"))
	require.NoError(t, store.Put(context.Background(), &oauth2.Token{
		AccessToken:  "expired",
		RefreshToken: "revoked",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	_, err := NewTokenSource(context.Background(), flow, store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cached token is invalid")
}
