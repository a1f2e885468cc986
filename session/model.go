package session

// Identity is the storable part of an interactive (OIDC) login. Service
// identities are never encoded here; they are re-verified on every request.
type Identity struct {
	Subject     string
	Email       string
	DisplayName string
	Role        string
}
