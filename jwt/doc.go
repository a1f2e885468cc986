// Package jwt manages service access-token issuance and verification with a
// server-held HS256 secret, and exposes unverified header inspection used to
// route a bearer token to the symmetric or asymmetric verifier.
package jwt
