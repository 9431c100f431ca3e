// Package config loads the digest settings file.
//
// The file is INI formatted. Every section becomes a map of option name to
// raw string value:
//
//	[calendar]
//	calendarid = abc123
//
//	[email]
//	username = ratcity
//	password = secret
//	recipients = a@example.com,b@example.com
//
// Loading performs no validation of required keys. Consumers ask for the
// options they need through Config.Get, which reports ErrMissingOption.
package config
