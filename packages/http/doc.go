// Package http provides the HTTP plumbing behind webmatch probes.
//
// It wraps the standard library's http package with:
//   - Fixed connect and total timeouts
//   - Optional redirect following, capped at a small number of hops
//   - URL normalization for bare domain names
//   - A single retry when a request times out
package http
