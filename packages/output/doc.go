// Package output renders suite results for `webmatch run`.
//
// Formats, selected by name through New:
//   - console: one colored line per check, failure details and a latency summary
//   - json: a single report document, also the input of `webmatch diff`
//   - junit: XML for CI test reporters, one testsuite per suite file
//   - tap: TAP version 13 with YAML diagnostics on failures
//
// Every format except console writes its output on Flush.
package output
