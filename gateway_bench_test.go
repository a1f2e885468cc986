package authgate

import (
	"context"
	"encoding/base64"
	"testing"
)

func newBenchGateway(b *testing.B) *Gateway {
	b.Helper()
	cfg := testConfig()
	cfg.Mechanisms.ClientCredentials = false
	g, err := New().WithConfig(cfg).Build()
	if err != nil {
		b.Fatalf("Build failed: %v", err)
	}
	b.Cleanup(g.Close)
	return g
}

func BenchmarkVerifyBearerSymmetric(b *testing.B) {
	g := newBenchGateway(b)
	ctx := context.Background()

	challenge, err := g.CreateChallenge(ctx, "svcA")
	if err != nil {
		b.Fatalf("CreateChallenge failed: %v", err)
	}
	tok, err := g.CreateToken(ctx, "svcA", ChallengeHash("secret-a", challenge))
	if err != nil {
		b.Fatalf("CreateToken failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := g.VerifyBearer(ctx, tok.AccessToken); err != nil {
			b.Fatalf("VerifyBearer failed: %v", err)
		}
	}
}

func BenchmarkAuthenticateBasic(b *testing.B) {
	cfg := testConfig()
	cfg.Mechanisms = MechanismsConfig{BasicAPIKey: true}
	g, err := New().WithConfig(cfg).Build()
	if err != nil {
		b.Fatalf("Build failed: %v", err)
	}
	b.Cleanup(g.Close)

	creds := Credentials{Authorization: "Basic " + base64.StdEncoding.EncodeToString([]byte("svcB:secret-b"))}
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := g.Authenticate(ctx, creds); err != nil {
			b.Fatalf("Authenticate failed: %v", err)
		}
	}
}

func BenchmarkHandshakeMemory(b *testing.B) {
	g := newBenchGateway(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		challenge, err := g.CreateChallenge(ctx, "svcA")
		if err != nil {
			b.Fatalf("CreateChallenge failed: %v", err)
		}
		if _, err := g.CreateToken(ctx, "svcA", ChallengeHash("secret-a", challenge)); err != nil {
			b.Fatalf("CreateToken failed: %v", err)
		}
	}
}
