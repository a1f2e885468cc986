package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const minSecretLength = 32

var (
	// ErrTokenExpired reports a correctly signed token whose exp is in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidSignature reports any other verification failure: bad signature,
	// wrong algorithm, malformed token or missing claims.
	ErrInvalidSignature = errors.New("invalid token signature")
)

// Config controls issuance and verification of service access tokens.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	TokenTTL     time.Duration
	Secret       []byte
	Issuer       string
	Leeway       time.Duration
	MaxFutureIAT time.Duration
}

// Manager mints and verifies HS256 service access tokens issued after a
// successful challenge-response handshake.
type Manager struct {
	config Config
	now    func() time.Time
}

// ServiceClaims is the payload of a self-issued service token.
type ServiceClaims struct {
	ServiceName string `json:"serviceName"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TokenTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("hs256 requires a secret of at least %d bytes", minSecretLength)
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	cfg.Secret = append([]byte(nil), cfg.Secret...)
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)

	return &Manager{config: cfg, now: time.Now}, nil
}

// TokenTTL returns the configured token lifetime.
func (m *Manager) TokenTTL() time.Duration {
	return m.config.TokenTTL
}

// Issue signs a token for serviceName with exp = now + TokenTTL.
func (m *Manager) Issue(serviceName string) (string, time.Duration, error) {
	if serviceName == "" {
		return "", 0, errors.New("service name required")
	}

	now := m.now()
	ttl := m.config.TokenTTL
	claims := ServiceClaims{
		ServiceName: serviceName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
	if err != nil {
		return "", 0, err
	}
	return token, ttl, nil
}

// Parse verifies signature then expiry. Expiry of an otherwise valid token
// maps to ErrTokenExpired; every other failure maps to ErrInvalidSignature.
func (m *Manager) Parse(tokenStr string) (*ServiceClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &ServiceClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	claims, ok := token.Claims.(*ServiceClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidSignature
	}
	if claims.ServiceName == "" {
		return nil, fmt.Errorf("%w: missing serviceName", ErrInvalidSignature)
	}
	if claims.IssuedAt != nil && m.config.MaxFutureIAT > 0 {
		maxAllowed := m.now().Add(m.config.MaxFutureIAT)
		if claims.IssuedAt.Time.After(maxAllowed) {
			return nil, fmt.Errorf("%w: iat too far in the future", ErrInvalidSignature)
		}
	}

	return claims, nil
}
