package oidclogin

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authgate"
	"github.com/coreos/go-oidc/v3/oidc"
)

// ErrInvalidIDToken reports an ID token that failed verification.
var ErrInvalidIDToken = errors.New("invalid id token")

// Config controls ID-token verification and claim extraction.
type Config struct {
	Issuer   string
	ClientID string
	// RoleClaim names the claim copied into UserSession.Role. Defaults to "role".
	RoleClaim string
}

// Completer verifies ID tokens and normalizes them into oidc sessions.
type Completer struct {
	gw        *authgate.Gateway
	verifier  *oidc.IDTokenVerifier
	roleClaim string
}

// NewFromDiscovery resolves the issuer's keys through OIDC discovery.
func NewFromDiscovery(ctx context.Context, gw *authgate.Gateway, cfg Config) (*Completer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery failed: %w", err)
	}
	return newCompleter(gw, cfg, provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})), nil
}

// NewWithKeySet verifies against a caller-supplied key set, skipping discovery.
func NewWithKeySet(gw *authgate.Gateway, cfg Config, keys oidc.KeySet) (*Completer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if keys == nil {
		return nil, errors.New("key set is required")
	}
	return newCompleter(gw, cfg, oidc.NewVerifier(cfg.Issuer, keys, &oidc.Config{ClientID: cfg.ClientID})), nil
}

func newCompleter(gw *authgate.Gateway, cfg Config, verifier *oidc.IDTokenVerifier) *Completer {
	role := cfg.RoleClaim
	if role == "" {
		role = "role"
	}
	return &Completer{gw: gw, verifier: verifier, roleClaim: role}
}

func (c Config) validate() error {
	if c.Issuer == "" {
		return errors.New("issuer is required")
	}
	if c.ClientID == "" {
		return errors.New("client id is required")
	}
	return nil
}

// Complete verifies rawIDToken and returns the oidc session it describes.
func (c *Completer) Complete(ctx context.Context, rawIDToken string) (*authgate.UserSession, error) {
	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}

	sess := &authgate.UserSession{
		Kind:        authgate.KindOIDC,
		Subject:     idToken.Subject,
		Email:       stringClaim(claims, "email"),
		DisplayName: stringClaim(claims, "name"),
		Role:        stringClaim(claims, c.roleClaim),
	}
	if err := sess.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}
	return sess, nil
}

// CompleteAndSerialize verifies rawIDToken and returns the normalized session
// key for the session store along with the session itself.
func (c *Completer) CompleteAndSerialize(ctx context.Context, rawIDToken string) (string, *authgate.UserSession, error) {
	sess, err := c.Complete(ctx, rawIDToken)
	if err != nil {
		return "", nil, err
	}
	key, err := c.gw.SerializeSession(sess)
	if err != nil {
		return "", nil, err
	}
	return key, sess, nil
}

// Anonymous returns the session for a visitor who skipped login.
func Anonymous() *authgate.UserSession {
	return &authgate.UserSession{Kind: authgate.KindAnonymous}
}

func stringClaim(claims map[string]any, name string) string {
	v, _ := claims[name].(string)
	return v
}
