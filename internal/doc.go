// Package internal contains helper utilities that are intentionally private to authgate,
// including secure nonce generation and challenge digest helpers.
//
// # Sub-packages
//
//   - flows: pure-function orchestrators for the challenge-response operations
//   - rate: Redis-backed fixed-window counters
//   - stores: challenge record stores (Redis and in-memory)
//
// # What this package must NOT do
//
//   - Export types that appear in the public authgate API.
//   - Be imported by any package outside the authgate module.
package internal
