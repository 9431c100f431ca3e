// Package server exposes the status endpoints of a long-running scheduler:
// Prometheus metrics on /metrics and health probes on /healthz, /readyz and
// /healthz/detailed. The detailed probe reports the outcome of the last
// digest run.
package server
