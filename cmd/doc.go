// Package cmd implements the command-line interface for eventdigest.
//
// This package provides the following commands:
//   - send: Fetch upcoming calendar events and email the digest
//   - auth: Authorize calendar access and store the credentials
//   - schedule: Send the digest on a cron schedule
//   - version: Display version information
//
// The send command is the default command when no subcommand is specified.
package cmd
