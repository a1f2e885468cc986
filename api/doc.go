// Package api serves the gateway's HTTP endpoints on a chi router: the
// challenge-response handshake for services, whoami endpoints, OIDC and
// anonymous session creation with logout, Prometheus metrics and a health
// check.
package api
