package oidclogin

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testIssuer   = "https://idp.example.com"
	testClientID = "web-app"
)

func newTestCompleter(t *testing.T) (*Completer, *authgate.Gateway, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	gw, err := authgate.New().Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(gw.Close)

	keys := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	c, err := NewWithKeySet(gw, Config{Issuer: testIssuer, ClientID: testClientID, RoleClaim: "app_role"}, keys)
	if err != nil {
		t.Fatalf("NewWithKeySet failed: %v", err)
	}
	return c, gw, key
}

func idToken(t *testing.T, key *rsa.PrivateKey, mutate func(jwt.MapClaims)) string {
	t.Helper()

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":      testIssuer,
		"aud":      testClientID,
		"sub":      "user-42",
		"email":    "ada@example.com",
		"name":     "Ada",
		"app_role": "admin",
		"iat":      now.Unix(),
		"exp":      now.Add(5 * time.Minute).Unix(),
	}
	if mutate != nil {
		mutate(claims)
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	return signed
}

func TestCompleteExtractsProfile(t *testing.T) {
	c, _, key := newTestCompleter(t)

	sess, err := c.Complete(context.Background(), idToken(t, key, nil))
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	want := authgate.UserSession{Kind: authgate.KindOIDC, Subject: "user-42", Email: "ada@example.com", DisplayName: "Ada", Role: "admin"}
	if *sess != want {
		t.Fatalf("session = %+v, want %+v", *sess, want)
	}
	if sess.IsService {
		t.Fatal("oidc session must not be a service")
	}
}

func TestCompleteRejectsBadTokens(t *testing.T) {
	c, _, key := newTestCompleter(t)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "wrong audience", token: idToken(t, key, func(c jwt.MapClaims) { c["aud"] = "someone-else" })},
		{name: "wrong issuer", token: idToken(t, key, func(c jwt.MapClaims) { c["iss"] = "https://evil.example.com" })},
		{name: "expired", token: idToken(t, key, func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Hour).Unix() })},
		{name: "foreign key", token: idToken(t, other, nil)},
		{name: "garbage", token: "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Complete(context.Background(), tt.token); !errors.Is(err, ErrInvalidIDToken) {
				t.Fatalf("expected ErrInvalidIDToken, got %v", err)
			}
		})
	}
}

func TestCompleteAndSerializeRoundTrip(t *testing.T) {
	c, gw, key := newTestCompleter(t)

	sessionKey, sess, err := c.CompleteAndSerialize(context.Background(), idToken(t, key, nil))
	if err != nil {
		t.Fatalf("CompleteAndSerialize failed: %v", err)
	}

	restored, err := gw.DeserializeSession(sessionKey)
	if err != nil {
		t.Fatalf("DeserializeSession failed: %v", err)
	}
	if *restored != *sess {
		t.Fatalf("restored %+v, want %+v", *restored, *sess)
	}
}

func TestAnonymousSerializes(t *testing.T) {
	_, gw, _ := newTestCompleter(t)

	key, err := gw.SerializeSession(Anonymous())
	if err != nil {
		t.Fatalf("SerializeSession failed: %v", err)
	}
	if key != "anonymous" {
		t.Fatalf("unexpected key %q", key)
	}
}

func TestConfigRequiresIssuerAndClient(t *testing.T) {
	keys := &oidc.StaticKeySet{}
	if _, err := NewWithKeySet(nil, Config{ClientID: "x"}, keys); err == nil {
		t.Fatal("expected missing issuer error")
	}
	if _, err := NewWithKeySet(nil, Config{Issuer: "x"}, keys); err == nil {
		t.Fatal("expected missing client id error")
	}
}
