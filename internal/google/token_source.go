package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"github.com/allstonrat/eventdigest/internal/logging"
)

// RefreshHook is called after every token refresh attempt.
type RefreshHook func(ctx context.Context, err error)

type tokenSourceOptions struct {
	logger    *slog.Logger
	onRefresh RefreshHook
}

// TokenSourceOption configures NewTokenSource.
type TokenSourceOption func(*tokenSourceOptions)

// WithLogger sets the logger used for credential events.
func WithLogger(logger *slog.Logger) TokenSourceOption {
	return func(o *tokenSourceOptions) {
		o.logger = logger
	}
}

// WithRefreshHook registers a hook called after each refresh attempt.
func WithRefreshHook(hook RefreshHook) TokenSourceOption {
	return func(o *tokenSourceOptions) {
		o.onRefresh = hook
	}
}

// NewTokenSource returns a token source for the calendar API.
//
// The stored token is validated, refreshing it if it has expired. When no
// token is stored or the stored one can no longer be refreshed, the flow is
// run if it is interactive; otherwise an error wrapping ErrNoToken is
// returned. Every new token is written back to store.
func NewTokenSource(ctx context.Context, flow AuthFlow, store TokenStore, opts ...TokenSourceOption) (oauth2.TokenSource, error) {
	o := tokenSourceOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.WithOperation(o.logger, "google.credentials")

	conf, err := flow.Config()
	if err != nil {
		return nil, err
	}

	token, err := store.Get(ctx)
	if err != nil && !errors.Is(err, ErrNoToken) {
		return nil, err
	}

	if token != nil {
		ts := newPersistingTokenSource(ctx, conf, token, store, logger, o.onRefresh)
		_, err := ts.Token()
		if err == nil {
			return ts, nil
		}
		if !flow.Interactive {
			return nil, fmt.Errorf("cached token is invalid: %w", err)
		}
		logger.Warn("cached token invalid, starting authorization", logging.Err(err))
	}

	if !flow.Interactive {
		return nil, fmt.Errorf("%w: run the auth command from a terminal first", ErrNoToken)
	}

	token, err = Authorize(ctx, flow, conf, store)
	if err != nil {
		return nil, err
	}
	logger.Info("stored new credentials", logging.Status(logging.StatusSuccess))

	return newPersistingTokenSource(ctx, conf, token, store, logger, o.onRefresh), nil
}

// Authorize runs the interactive flow and stores the resulting token.
func Authorize(ctx context.Context, flow AuthFlow, conf *oauth2.Config, store TokenStore) (*oauth2.Token, error) {
	token, err := flow.Run(ctx, conf)
	if err != nil {
		return nil, err
	}
	if err := store.Put(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// persistingTokenSource writes every newly issued token to the store.
type persistingTokenSource struct {
	mu        sync.Mutex
	ctx       context.Context
	base      oauth2.TokenSource
	store     TokenStore
	last      string
	logger    *slog.Logger
	onRefresh RefreshHook
}

func newPersistingTokenSource(ctx context.Context, conf *oauth2.Config, token *oauth2.Token, store TokenStore, logger *slog.Logger, hook RefreshHook) *persistingTokenSource {
	return &persistingTokenSource{
		ctx:       ctx,
		base:      conf.TokenSource(ctx, token),
		store:     store,
		last:      token.AccessToken,
		logger:    logger,
		onRefresh: hook,
	}
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.base.Token()
	if err != nil {
		s.refreshed(err)
		return nil, err
	}
	if token.AccessToken == s.last {
		return token, nil
	}

	s.last = token.AccessToken
	s.refreshed(nil)
	if err := s.store.Put(s.ctx, token); err != nil {
		s.logger.Warn("failed to persist refreshed token", logging.Err(err))
	} else {
		s.logger.Debug("persisted refreshed token", "token", logging.SanitizeToken(token.AccessToken))
	}
	return token, nil
}

func (s *persistingTokenSource) refreshed(err error) {
	if s.onRefresh != nil {
		s.onRefresh(s.ctx, err)
	}
}
