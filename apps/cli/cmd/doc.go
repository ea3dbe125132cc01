// Package cmd implements the webmatch CLI commands using Cobra.
//
// Available commands:
//   - check: Evaluate one matcher against a target
//   - run: Execute suite files
//   - validate: Check suite files without probing anything
//   - list: Display the checks defined in suite files
//   - init: Write a sample suite
//   - history: Show recorded runs
//   - serve: Serve ad-hoc checks over HTTP
//   - diff: Compare two JSON reports
//   - version: Show webmatch version information
//
// Flags default from WEBMATCH_* environment variables, then from the
// config file, so CI jobs can be configured without editing commands.
package cmd
