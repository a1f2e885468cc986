package authgate

import (
	"errors"
	"strings"
	"testing"
)

func TestSessionChainRoundTrip(t *testing.T) {
	g := newTestGateway(t, testConfig())

	tests := []struct {
		name      string
		session   *UserSession
		keyPrefix string
		restores  bool
	}{
		{name: "anonymous", session: &UserSession{Kind: KindAnonymous}, keyPrefix: "anonymous", restores: true},
		{
			name:      "oidc",
			session:   &UserSession{Kind: KindOIDC, Subject: "auth0|1", Email: "a@example.com", DisplayName: "A", Role: "admin"},
			keyPrefix: "oidc:",
			restores:  true,
		},
		{name: "basic", session: newServiceSession(KindBasicAPIKey, "svcA"), keyPrefix: "stateless:basicApikey"},
		{name: "bearer apikey", session: newServiceSession(KindBearerAPIKey, "svcA"), keyPrefix: "stateless:bearerApikey"},
		{name: "client credentials", session: newClientSession("client-1"), keyPrefix: "stateless:bearerClientCredentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := g.SerializeSession(tt.session)
			if err != nil {
				t.Fatalf("SerializeSession failed: %v", err)
			}
			if !strings.HasPrefix(key, tt.keyPrefix) {
				t.Fatalf("key %q does not start with %q", key, tt.keyPrefix)
			}

			got, err := g.DeserializeSession(key)
			if err != nil {
				t.Fatalf("DeserializeSession failed: %v", err)
			}
			if !tt.restores {
				if got != nil {
					t.Fatalf("expected stateless sentinel, got %+v", got)
				}
				return
			}
			if *got != *tt.session {
				t.Fatalf("round trip mismatch: %+v vs %+v", got, tt.session)
			}
		})
	}
}

func TestSerializeRejectsMixedSession(t *testing.T) {
	g := newTestGateway(t, testConfig())

	mixed := &UserSession{Kind: KindOIDC, Email: "a@example.com", ServiceName: "svcA"}
	if _, err := g.SerializeSession(mixed); !errors.Is(err, ErrSessionUnrecognized) {
		t.Fatalf("expected ErrSessionUnrecognized, got %v", err)
	}
}

func TestDeserializeCorruptOIDCKey(t *testing.T) {
	g := newTestGateway(t, testConfig())

	if _, err := g.DeserializeSession("oidc:@@@"); !errors.Is(err, ErrSessionUnrecognized) {
		t.Fatalf("expected ErrSessionUnrecognized, got %v", err)
	}
	if _, err := g.DeserializeSession("stateless:oidc"); !errors.Is(err, ErrSessionUnrecognized) {
		t.Fatalf("expected ErrSessionUnrecognized, got %v", err)
	}
}

type tenantCodec struct{}

func (tenantCodec) Name() string { return "tenant" }

func (tenantCodec) Serialize(*UserSession) SerializeResult { return NotMine() }

func (tenantCodec) Deserialize(key string) DeserializeResult {
	if key != "tenant:guest" {
		return Skip()
	}
	return Restored(&UserSession{Kind: KindAnonymous})
}

func TestCustomCodecConsultedAfterBuiltins(t *testing.T) {
	g := newTestGateway(t, testConfig(), func(b *Builder) { b.WithSessionCodec(tenantCodec{}) })

	sess, err := g.DeserializeSession("tenant:guest")
	if err != nil {
		t.Fatalf("DeserializeSession failed: %v", err)
	}
	if sess.Kind != KindAnonymous {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if _, err := g.DeserializeSession("tenant:other"); !errors.Is(err, ErrSessionUnrecognized) {
		t.Fatalf("expected ErrSessionUnrecognized, got %v", err)
	}
}

func TestUserSessionValidate(t *testing.T) {
	tests := []struct {
		name    string
		session *UserSession
		valid   bool
	}{
		{name: "anonymous", session: &UserSession{Kind: KindAnonymous}, valid: true},
		{name: "anonymous with email", session: &UserSession{Kind: KindAnonymous, Email: "x"}, valid: false},
		{name: "oidc", session: &UserSession{Kind: KindOIDC, Subject: "s"}, valid: true},
		{name: "oidc without identity", session: &UserSession{Kind: KindOIDC, Role: "r"}, valid: false},
		{name: "service flag mismatch", session: &UserSession{Kind: KindBasicAPIKey, ServiceName: "svcA"}, valid: false},
		{name: "client with service name", session: &UserSession{Kind: KindBearerClientCredentials, ClientID: "c", ServiceName: "s", IsService: true}, valid: false},
		{name: "bearer apikey", session: newServiceSession(KindBearerAPIKey, "svcA"), valid: true},
		{name: "unknown kind", session: &UserSession{Kind: "ldap"}, valid: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.session.Validate()
			if tt.valid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.valid && err == nil {
				t.Fatal("expected invalid session")
			}
		})
	}
}
