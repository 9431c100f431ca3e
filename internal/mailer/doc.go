// Package mailer delivers the digest over authenticated SMTP submission.
//
// A Mailer sends one plain-text message from the configured account to every
// recipient. The connection goes to the submission port, is upgraded with
// STARTTLS (mandatory) and authenticates with SMTP AUTH PLAIN.
package mailer
