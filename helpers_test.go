package authgate

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	jose "github.com/go-jose/go-jose/v4"
	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

const testTokenSecret = "0123456789abcdef0123456789abcdef"

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Mechanisms = MechanismsConfig{
		BasicAPIKey:       true,
		Challenge:         true,
		ClientCredentials: true,
	}
	cfg.ServiceAccounts = ServiceAccountsConfig{
		Accounts: []ServiceAccount{
			{Name: "svcA", APIKey: "secret-a"},
			{Name: "svcB", APIKey: "secret-b"},
		},
		AllowedClientIDs: []string{"client-1"},
	}
	cfg.Challenge.TokenSecret = []byte(testTokenSecret)
	cfg.ClientCredentials.JWKSURL = "http://127.0.0.1:0/unused"
	return cfg
}

func newTestGateway(t *testing.T, cfg Config, opts ...func(*Builder)) *Gateway {
	t.Helper()

	b := New().WithConfig(cfg)
	for _, opt := range opts {
		opt(b)
	}
	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(g.Close)
	return g
}

type testJWKS struct {
	srv  *httptest.Server
	key  *rsa.PrivateKey
	kid  string
	hits atomic.Int32
	fail atomic.Bool
}

func newTestJWKS(t *testing.T, kid string) *testJWKS {
	t.Helper()

	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	body, err := json.Marshal(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{
		{Key: &pk.PublicKey, KeyID: kid, Algorithm: "RS256", Use: "sig"},
	}})
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}

	j := &testJWKS{key: pk, kid: kid}
	j.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		j.hits.Add(1)
		if j.fail.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(j.srv.Close)
	return j
}

func (j *testJWKS) sign(t *testing.T, claims gjwt.MapClaims) string {
	t.Helper()
	return signRS256(t, j.key, j.kid, claims)
}

func signRS256(t *testing.T, key *rsa.PrivateKey, kid string, claims gjwt.MapClaims) string {
	t.Helper()

	tok := gjwt.NewWithClaims(gjwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign rs256: %v", err)
	}
	return s
}

func signHS256(t *testing.T, secret string, claims gjwt.MapClaims) string {
	t.Helper()

	s, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign hs256: %v", err)
	}
	return s
}

func expIn(d time.Duration) int64 {
	return time.Now().Add(d).Unix()
}

func withJWKS(j *testJWKS) func(*Builder) {
	return func(b *Builder) {
		b.config.ClientCredentials.JWKSURL = j.srv.URL
	}
}

func withRedis(rdb *redis.Client) func(*Builder) {
	return func(b *Builder) {
		b.WithRedis(rdb)
	}
}
