package authgate

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds every gateway setting. It is cloned on Build and treated as
// immutable for the lifetime of the Gateway.
type Config struct {
	Mechanisms        MechanismsConfig
	ServiceAccounts   ServiceAccountsConfig
	Challenge         ChallengeConfig
	ClientCredentials ClientCredentialsConfig
	Audit             AuditConfig
	Metrics           MetricsConfig
	Throttle          ThrottleConfig
}

/*
====================================
MECHANISMS
====================================
*/

// MechanismsConfig switches each authentication mechanism on or off.
type MechanismsConfig struct {
	BasicAPIKey       bool
	Challenge         bool
	ClientCredentials bool
}

// BearerEnabled reports whether any bearer-token mechanism is on.
func (m MechanismsConfig) BearerEnabled() bool {
	return m.Challenge || m.ClientCredentials
}

/*
====================================
SERVICE ACCOUNTS
====================================
*/

// ServiceAccountsConfig is the ordered shared-secret table and the
// client-credentials allow-list.
type ServiceAccountsConfig struct {
	Accounts         []ServiceAccount
	AllowedClientIDs []string
}

/*
====================================
CHALLENGE-RESPONSE
====================================
*/

// ChallengeConfig controls challenge issuance and the self-issued tokens
// minted after a successful handshake.
type ChallengeConfig struct {
	TTL         time.Duration
	TokenSecret []byte
	TokenTTL    time.Duration
	TokenIssuer string
	TokenLeeway time.Duration
	RedisPrefix string
}

/*
====================================
CLIENT CREDENTIALS
====================================
*/

// ClientCredentialsConfig controls verification of identity-provider tokens.
type ClientCredentialsConfig struct {
	JWKSURL      string
	FetchTimeout time.Duration
	Leeway       time.Duration
	// ClientIDClaims are tried in order; the first non-empty string wins.
	ClientIDClaims []string
}

/*
====================================
AUDIT / METRICS / THROTTLE
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// ThrottleConfig bounds challenge issuance per service name. Requires Redis.
type ThrottleConfig struct {
	Enabled       bool
	MaxChallenges int
	Window        time.Duration
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Challenge: ChallengeConfig{
			TTL:         60 * time.Second,
			TokenTTL:    time.Hour,
			RedisPrefix: "agc",
		},
		ClientCredentials: ClientCredentialsConfig{
			FetchTimeout:   5 * time.Second,
			ClientIDClaims: []string{"clientId", "client_id", "azp"},
		},
		Audit: AuditConfig{
			BufferSize: 1024,
			DropIfFull: true,
		},
		Throttle: ThrottleConfig{
			MaxChallenges: 30,
			Window:        time.Minute,
		},
	}
}

// DefaultConfig returns the baseline configuration with every mechanism off.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.ServiceAccounts.Accounts = append([]ServiceAccount(nil), cfg.ServiceAccounts.Accounts...)
	out.ServiceAccounts.AllowedClientIDs = append([]string(nil), cfg.ServiceAccounts.AllowedClientIDs...)
	out.ClientCredentials.ClientIDClaims = append([]string(nil), cfg.ClientCredentials.ClientIDClaims...)
	out.Challenge.TokenSecret = cloneBytes(cfg.Challenge.TokenSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
LOOKUPS
====================================
*/

// lookupAccount scans the ordered account table; the first matching name wins.
func (c *Config) lookupAccount(name string) (ServiceAccount, bool) {
	for _, acct := range c.ServiceAccounts.Accounts {
		if acct.Name == name {
			return acct, true
		}
	}
	return ServiceAccount{}, false
}

func (c *Config) clientAllowed(clientID string) bool {
	for _, id := range c.ServiceAccounts.AllowedClientIDs {
		if id == clientID {
			return true
		}
	}
	return false
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for internal consistency. Settings of
// disabled mechanisms are not checked.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.ServiceAccounts.Accounts))
	for i, acct := range c.ServiceAccounts.Accounts {
		if acct.Name == "" {
			return fmt.Errorf("ServiceAccounts[%d] Name must not be empty", i)
		}
		if strings.ContainsAny(acct.Name, ": \t") {
			return fmt.Errorf("ServiceAccounts[%d] Name must not contain ':' or whitespace", i)
		}
		if acct.APIKey == "" {
			return fmt.Errorf("ServiceAccounts[%d] APIKey must not be empty", i)
		}
		if _, dup := seen[acct.Name]; dup {
			return fmt.Errorf("ServiceAccounts name %q is duplicated", acct.Name)
		}
		seen[acct.Name] = struct{}{}
	}

	if c.Mechanisms.Challenge {
		if c.Challenge.TTL <= 0 {
			return errors.New("Challenge TTL must be > 0")
		}
		if c.Challenge.TokenTTL <= 0 {
			return errors.New("Challenge TokenTTL must be > 0")
		}
		if len(c.Challenge.TokenSecret) < 32 {
			return errors.New("Challenge TokenSecret must be at least 32 bytes")
		}
		if c.Challenge.TokenLeeway < 0 || c.Challenge.TokenLeeway > 2*time.Minute {
			return errors.New("Challenge TokenLeeway must be within [0, 2m]")
		}
	}

	if c.Mechanisms.ClientCredentials {
		if c.ClientCredentials.JWKSURL == "" {
			return errors.New("ClientCredentials JWKSURL is required")
		}
		if c.ClientCredentials.FetchTimeout <= 0 {
			return errors.New("ClientCredentials FetchTimeout must be > 0")
		}
		if c.ClientCredentials.Leeway < 0 || c.ClientCredentials.Leeway > 2*time.Minute {
			return errors.New("ClientCredentials Leeway must be within [0, 2m]")
		}
		if len(c.ClientCredentials.ClientIDClaims) == 0 {
			return errors.New("ClientCredentials ClientIDClaims must not be empty")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	if c.Throttle.Enabled {
		if !c.Mechanisms.Challenge {
			return errors.New("Throttle requires the challenge mechanism")
		}
		if c.Throttle.MaxChallenges <= 0 {
			return errors.New("Throttle MaxChallenges must be > 0")
		}
		if c.Throttle.Window <= 0 {
			return errors.New("Throttle Window must be > 0")
		}
	}

	return nil
}
