// Package oidclogin turns the result of an external OpenID Connect login into
// a normalized authgate session.
//
// The interactive redirect flow stays with the identity provider and its
// middleware; this package only verifies the returned ID token with go-oidc,
// extracts the profile claims and runs the gateway's session normalizer to
// produce the key handed to the session store.
package oidclogin
