package authgate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// envConfig mirrors the environment surface. Slices are ';'-separated.
type envConfig struct {
	BasicEnabled             bool          `env:"AUTHGATE_BASIC_APIKEY_ENABLED,default=false"`
	ChallengeEnabled         bool          `env:"AUTHGATE_CHALLENGE_ENABLED,default=false"`
	ClientCredentialsEnabled bool          `env:"AUTHGATE_CLIENT_CREDENTIALS_ENABLED,default=false"`
	ServiceAccounts          []string      `env:"AUTHGATE_SERVICE_ACCOUNTS"`
	TokenSecret              string        `env:"AUTHGATE_TOKEN_SECRET"`
	TokenTTL                 time.Duration `env:"AUTHGATE_TOKEN_TTL,default=1h"`
	ChallengeTTL             time.Duration `env:"AUTHGATE_CHALLENGE_TTL,default=60s"`
	JWKSURL                  string        `env:"AUTHGATE_JWKS_URL"`
	JWKSTimeout              time.Duration `env:"AUTHGATE_JWKS_TIMEOUT,default=5s"`
	AllowedClientIDs         []string      `env:"AUTHGATE_ALLOWED_CLIENT_IDS"`
	TokenLeeway              time.Duration `env:"AUTHGATE_TOKEN_LEEWAY,default=0s"`
	MetricsEnabled           bool          `env:"AUTHGATE_METRICS_ENABLED,default=false"`
	AuditEnabled             bool          `env:"AUTHGATE_AUDIT_ENABLED,default=false"`
	ChallengeThrottle        int           `env:"AUTHGATE_CHALLENGE_THROTTLE,default=0"`
}

// LoadConfigFromEnv builds a Config from AUTHGATE_* environment variables on
// top of the defaults. The result is not validated; Build does that.
func LoadConfigFromEnv() (Config, error) {
	var env envConfig
	if err := envdecode.Decode(&env); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	return env.toConfig()
}

func (e envConfig) toConfig() (Config, error) {
	cfg := defaultConfig()

	cfg.Mechanisms = MechanismsConfig{
		BasicAPIKey:       e.BasicEnabled,
		Challenge:         e.ChallengeEnabled,
		ClientCredentials: e.ClientCredentialsEnabled,
	}

	accounts, err := ParseServiceAccounts(e.ServiceAccounts)
	if err != nil {
		return Config{}, err
	}
	cfg.ServiceAccounts.Accounts = accounts
	for _, id := range e.AllowedClientIDs {
		if id = strings.TrimSpace(id); id != "" {
			cfg.ServiceAccounts.AllowedClientIDs = append(cfg.ServiceAccounts.AllowedClientIDs, id)
		}
	}

	cfg.Challenge.TTL = e.ChallengeTTL
	cfg.Challenge.TokenTTL = e.TokenTTL
	cfg.Challenge.TokenSecret = []byte(e.TokenSecret)
	cfg.Challenge.TokenLeeway = e.TokenLeeway

	cfg.ClientCredentials.JWKSURL = e.JWKSURL
	cfg.ClientCredentials.FetchTimeout = e.JWKSTimeout
	cfg.ClientCredentials.Leeway = e.TokenLeeway

	cfg.Metrics.Enabled = e.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = e.MetricsEnabled
	cfg.Audit.Enabled = e.AuditEnabled

	if e.ChallengeThrottle > 0 {
		cfg.Throttle.Enabled = true
		cfg.Throttle.MaxChallenges = e.ChallengeThrottle
	}

	return cfg, nil
}

// ParseServiceAccounts parses "name:secret" entries. The secret is everything
// after the first colon.
func ParseServiceAccounts(entries []string) ([]ServiceAccount, error) {
	var out []ServiceAccount
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, secret, ok := strings.Cut(entry, ":")
		if !ok || name == "" || secret == "" {
			return nil, fmt.Errorf("service account entry %q must be name:secret", name)
		}
		out = append(out, ServiceAccount{Name: name, APIKey: secret})
	}
	return out, nil
}
