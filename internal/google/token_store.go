package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/oauth2"
)

const (
	credentialDirName  = ".credentials"
	credentialFileName = "calendar-digest.json"
)

// ErrNoToken is returned when no token has been stored yet.
var ErrNoToken = errors.New("no stored Google OAuth token")

// TokenStore persists a single OAuth token.
type TokenStore interface {
	// Get returns the stored token or ErrNoToken.
	Get(ctx context.Context) (*oauth2.Token, error)

	// Put replaces the stored token.
	Put(ctx context.Context, token *oauth2.Token) error
}

// FileTokenStore stores the token as JSON in a file
type FileTokenStore struct {
	Path string
}

// NewFileTokenStore creates a file token store. An empty path selects
// DefaultCredentialPath.
func NewFileTokenStore(path string) *FileTokenStore {
	if path == "" {
		path = DefaultCredentialPath()
	}
	return &FileTokenStore{Path: path}
}

// DefaultCredentialPath returns ~/.credentials/calendar-digest.json
func DefaultCredentialPath() string {
	return filepath.Join(homeDir(), credentialDirName, credentialFileName)
}

// Get reads the token file
func (s *FileTokenStore) Get(ctx context.Context) (*oauth2.Token, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", s.Path, err)
	}
	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil, ErrNoToken
	}
	return &token, nil
}

// Put writes the token file, creating the credential directory if needed
func (s *FileTokenStore) Put(ctx context.Context, token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("token cannot be nil")
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	if err := os.WriteFile(s.Path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Exists reports whether a token file is present
func (s *FileTokenStore) Exists() bool {
	_, err := os.Stat(s.Path)
	return err == nil
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	home, _ := os.UserHomeDir()
	return home
}
