// Package builtin provides the functions available in suite placeholders.
//
// Available functions:
//   - now(): Current time in RFC 3339, UTC
//   - date(layout): Current date, 2006-01-02 unless a Go layout is given
//   - timestamp(), timestampMs(): Current Unix time in seconds or milliseconds
//   - uuid(): Random UUID v4
//   - random(min, max): Random integer in range, inclusive
//   - randomString(length): Random alphanumeric string
//   - urlEncode(value), base64(value): Encode a string
//
// Functions are invoked using the {{$functionName(args)}} syntax in suite
// files, typically to defeat caches in front of the target.
package builtin
