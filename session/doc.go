// Package session provides the interactive-identity codec used to turn an OIDC
// login into a storable session key, and the [Store] boundary through which
// the gateway reads session keys by cookie value.
//
// # Binary encoding
//
// Identities are stored as a compact versioned binary record, base64url
// encoded when used as a text key. Decoding rejects unknown versions and
// trailing bytes.
//
// # Architecture boundaries
//
// This package owns the [Identity] model, its encoding, and a thin Redis
// [Store] adapter. Session lifecycle (creation on login, expiry policy,
// logout) belongs to the external session collaborator.
//
// # What this package must NOT do
//
//   - Import authgate, jwt, or keyset (no upward imports).
//   - Encode service credentials, tokens or secrets.
package session
