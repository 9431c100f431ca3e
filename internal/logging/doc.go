// Package logging provides structured logging utilities for eventdigest.
//
// Logging goes through the standard library's slog. This package supplies
// the handler setup and the attribute helpers that keep key names
// consistent across packages.
//
// # Handlers
//
// NewHandler builds the process handler: "text" writes colored console
// output through tint, "json" writes one JSON object per line for log
// collectors.
//
// # Usage Patterns
//
//	logger := logging.WithOperation(slog.Default(), "calendar.list")
//	logger.Info("fetched events",
//	    logging.Status(logging.StatusSuccess))
//
// # Security Considerations
//
//   - Recipient and sender addresses are hashed with UserHash
//   - Tokens are never logged directly; use SanitizeToken
package logging
