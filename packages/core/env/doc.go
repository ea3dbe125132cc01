// Package env resolves {{name}} placeholders in suite files.
//
// Values come from suite and config variables, .env files, prefixed OS
// environment variables, and {{$NAME}} lookups against the process
// environment. Placeholders that cannot be resolved are left in place.
package env
