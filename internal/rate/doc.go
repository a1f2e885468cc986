// Package rate provides internal primitives used to build Redis-backed rate limit keys,
// errors, and limiter behavior for the challenge issuance endpoint.
//
// # Window semantics
//
// Fixed-window counters: a Lua script runs INCR and sets PEXPIRE on the first
// hit, so the window start is atomic with the count. Key prefixes:
//   - agt: challenge issuance per service name
//
// # What this package must NOT do
//
//   - Decide HTTP status codes (the gateway maps ErrRateLimited).
//   - Be imported outside the authgate module.
package rate
