// Package google handles OAuth2 credentials for the Google Calendar API.
//
// Tokens are kept in a TokenStore, a get/put store for a single token blob.
// FileTokenStore, the default, writes the token as JSON under the user's
// credential directory with 0600 permissions.
//
// The first run has no stored token and needs the user's consent. AuthFlow
// carries everything that one-time interactive step needs: the client secret
// file, the scopes, the application name and the terminal to prompt on.
// NewTokenSource ties the pieces together: it loads the stored token,
// validates it, runs the AuthFlow when allowed and writes refreshed tokens
// back to the store.
package google
