// Package keyset resolves token verification keys from a remote JWK Set.
//
// Keys are cached per key ID for the life of the process: a key ID that has
// been resolved once is never fetched again, and rotation is expected to
// happen by publishing keys under new IDs. A cache miss triggers one HTTP
// fetch bounded by the configured timeout and by the caller's context.
// Concurrent misses for the same key ID may each fetch; the results are
// identical, so the only cost is an extra round trip.
package keyset
