// Package runner wires the digest stages into one sequential run: fetch the
// upcoming events, format them, compose the message, then either print it or
// hand it to a deliverer.
package runner
