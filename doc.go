// Package authgate authenticates inbound API requests from interactive users,
// OIDC-federated identities and service callers, and normalizes every outcome
// into a single [UserSession] shape.
//
// A [Gateway] is assembled with [Builder] and is safe for concurrent use. It
// offers three service mechanisms, each switched on independently:
//
//   - challenge-response: [Gateway.CreateChallenge] and [Gateway.CreateToken]
//     exchange a single-use nonce for a short-lived HS256 token, proving
//     possession of a shared secret without sending it;
//   - client credentials: RS/PS-signed tokens from the identity provider,
//     verified against a remote key set and a client allow-list;
//   - basic API key: a service name and shared secret checked on every request.
//
// [Gateway.Authenticate] applies them in a fixed order and falls back to an
// established interactive session only when no Authorization header is sent.
//
// # Architecture boundaries
//
// authgate is the public surface: [Gateway], [Builder], [Config], value types
// and sentinel errors. Flow orchestration, challenge storage, throttling and
// random generation live under internal/. HTTP adapters live in middleware/
// and api/.
//
// # What this package must NOT do
//
//   - Store sessions. Session persistence is the caller's; the gateway only
//     converts sessions to keys and back.
//   - Cache the outcome of a service credential check across requests.
//   - Log or audit secrets, challenge answers or tokens.
package authgate
