// Package metrics exposes prometheus metrics for the completion proxy:
// request counts and durations by transport mode, token throughput, and
// audit queue depth.
package metrics
