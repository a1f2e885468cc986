// Package stores provides short-lived, single-use challenge record stores for
// the service challenge-response protocol: a Redis-backed store and an
// in-process store.
//
// # Design
//
// Records are keyed by service name and written with a TTL. Put overwrites.
// Take reads and removes in one atomic step (GETDEL in Redis, a mutex-held
// map delete in memory), so a challenge can be consumed at most once. Expiry
// is silent: an expired record reads exactly like one that never existed.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for transient
// challenge records. It does NOT generate nonces, compute digests, or mint
// tokens; those responsibilities belong to internal/flows.
//
// # What this package must NOT do
//
//   - Import authgate or any sibling internal package.
//   - Log or expose shared secrets.
package stores
