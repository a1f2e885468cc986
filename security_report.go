package authgate

import (
	"time"

	"github.com/MrEthical07/authgate/jwt"
)

// SecurityReport summarizes the effective security posture of a Gateway. It
// never contains secrets.
type SecurityReport struct {
	BasicAPIKeyEnabled       bool
	ChallengeEnabled         bool
	ClientCredentialsEnabled bool

	TokenAlgorithm   string
	TokenTTL         time.Duration
	TokenSecretBytes int
	ChallengeTTL     time.Duration
	// SharedChallengeStore is false when challenges live in process memory and
	// are therefore not shared between replicas.
	SharedChallengeStore bool

	ClientCredentialAlgorithms []string
	AllowedClientCount         int
	ServiceAccountCount        int

	ThrottleActive bool
	AuditActive    bool
	MetricsActive  bool

	Warnings []string
}

// SecurityReport describes the gateway's configuration for startup logs and
// operational checks.
func (g *Gateway) SecurityReport() SecurityReport {
	if g == nil {
		return SecurityReport{}
	}
	cfg := g.config

	r := SecurityReport{
		BasicAPIKeyEnabled:       cfg.Mechanisms.BasicAPIKey,
		ChallengeEnabled:         cfg.Mechanisms.Challenge,
		ClientCredentialsEnabled: cfg.Mechanisms.ClientCredentials,
		AllowedClientCount:       len(cfg.ServiceAccounts.AllowedClientIDs),
		ServiceAccountCount:      len(cfg.ServiceAccounts.Accounts),
		ThrottleActive:           g.throttle != nil,
		AuditActive:              g.audit != nil,
		MetricsActive:            g.metrics.Enabled(),
	}

	if cfg.Mechanisms.Challenge {
		r.TokenAlgorithm = "HS256"
		r.TokenTTL = cfg.Challenge.TokenTTL
		r.TokenSecretBytes = len(cfg.Challenge.TokenSecret)
		r.ChallengeTTL = cfg.Challenge.TTL
		r.SharedChallengeStore = g.ownedCache == nil
		if !r.SharedChallengeStore {
			r.Warnings = append(r.Warnings, "challenges are held in process memory; run a single replica or configure redis")
		}
		if !r.ThrottleActive {
			r.Warnings = append(r.Warnings, "challenge issuance is not throttled")
		}
	}
	if cfg.Mechanisms.ClientCredentials {
		r.ClientCredentialAlgorithms = jwt.AsymmetricAlgs()
		if r.AllowedClientCount == 0 {
			r.Warnings = append(r.Warnings, "client credentials enabled with an empty allow-list; every token will be rejected")
		}
	}
	if cfg.Mechanisms.BasicAPIKey || cfg.Mechanisms.Challenge {
		if r.ServiceAccountCount == 0 {
			r.Warnings = append(r.Warnings, "no service accounts configured")
		}
	}
	if !cfg.Mechanisms.BasicAPIKey && !cfg.Mechanisms.Challenge && !cfg.Mechanisms.ClientCredentials {
		r.Warnings = append(r.Warnings, "no header mechanisms enabled; only sessions authenticate")
	}

	return r
}
