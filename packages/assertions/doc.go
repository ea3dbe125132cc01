// Package assertions provides the website matchers of webmatch.
//
// Supported matchers:
//   - BeUp: the target answers 200, following up to four redirects
//   - HaveAValidCert: the target serves HTTPS with a certificate the transport trusts
//   - RedirectPermanentlyTo / RedirectTemporarilyTo: 301, or 302/307, to an expected location
//   - EnforceHTTPSEverywhere: plain http permanently redirects to a valid https destination
//   - BeStatus: the target answers an exact status code
//   - MatchJSONSchema: the target's JSON body validates against a schema file
//
// Every matcher produces a Result carrying the pass/fail decision and, on
// failure, a human-readable explanation. Transport errors are folded into
// the Result; only an unreadable schema is reported through Result.Err.
package assertions
