// Package middleware exposes HTTP middleware built on authgate.Gateway.
//
// # Guards
//
//   - [Authenticate] runs the strategy dispatcher and attaches the session.
//   - [RequireService] admits only service identities.
//   - [RequireKind] admits only the listed strategies.
//
// [WithErrorWriter] lets a caller render rejections in its own body format.
//
// Authenticate reads the Authorization header and, when a session store is
// configured, the session cookie. Client IP and chi's request ID are attached
// to the context for audit events.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Gateway calls. It does NOT
// implement authentication logic itself.
//
// # What this package must NOT do
//
//   - Parse or verify tokens directly.
//   - Write sessions. It only reads through session.Store.
//   - Leak the failure reason in the response body.
package middleware
