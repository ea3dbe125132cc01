// Package runner executes suite files.
//
// A run resolves variables, validates the suite, filters checks by name and
// tag, and evaluates what remains through an assertions.Prober. Checks run
// sequentially by default, optionally throttled to a fixed rate, or
// concurrently with a bounded number of workers. Each run reports per-check
// outcomes and a latency summary.
package runner
