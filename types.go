package authgate

import (
	"context"
	"errors"
	"time"
)

// StrategyKind names the authentication strategy that produced a session.
type StrategyKind string

const (
	// KindAnonymous is an interactive session without a federated identity.
	KindAnonymous StrategyKind = "anonymous"
	// KindOIDC is an interactive session established through the identity provider.
	KindOIDC StrategyKind = "oidc"
	// KindBasicAPIKey is a service session verified from a Basic header.
	KindBasicAPIKey StrategyKind = "basicApikey"
	// KindBearerAPIKey is a service session verified from a self-issued token.
	KindBearerAPIKey StrategyKind = "bearerApikey"
	// KindBearerClientCredentials is a service session verified from an
	// identity-provider client-credentials token.
	KindBearerClientCredentials StrategyKind = "bearerClientCredentials"
)

// IsService reports whether k identifies a non-interactive caller.
func (k StrategyKind) IsService() bool {
	switch k {
	case KindBasicAPIKey, KindBearerAPIKey, KindBearerClientCredentials:
		return true
	default:
		return false
	}
}

var errSessionShape = errors.New("session mixes human and service fields")

// UserSession is the normalized identity handed to authorization and business
// code, whatever strategy produced it.
//
// Exactly one of the human fields (Subject, Email, DisplayName, Role) or the
// service fields (ClientID, ServiceName) is populated. Anonymous sessions carry
// neither.
type UserSession struct {
	Kind        StrategyKind `json:"strategyKind"`
	ClientID    string       `json:"clientId,omitempty"`
	ServiceName string       `json:"serviceName,omitempty"`
	IsService   bool         `json:"isService"`

	Subject     string `json:"subject,omitempty"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Role        string `json:"role,omitempty"`
}

func (s *UserSession) hasHumanFields() bool {
	return s.Subject != "" || s.Email != "" || s.DisplayName != "" || s.Role != ""
}

func (s *UserSession) hasServiceFields() bool {
	return s.ClientID != "" || s.ServiceName != ""
}

// Validate checks the session shape invariant for its kind.
func (s *UserSession) Validate() error {
	if s == nil {
		return errors.New("nil session")
	}
	if s.hasHumanFields() && s.hasServiceFields() {
		return errSessionShape
	}
	if s.IsService != s.Kind.IsService() {
		return errors.New("isService does not match strategy kind")
	}

	switch s.Kind {
	case KindAnonymous:
		if s.hasHumanFields() || s.hasServiceFields() {
			return errors.New("anonymous session carries identity fields")
		}
	case KindOIDC:
		if s.hasServiceFields() {
			return errSessionShape
		}
		if s.Subject == "" && s.Email == "" {
			return errors.New("oidc session requires subject or email")
		}
	case KindBasicAPIKey, KindBearerAPIKey:
		if s.ServiceName == "" || s.ClientID != "" || s.hasHumanFields() {
			return errors.New("service session requires serviceName only")
		}
	case KindBearerClientCredentials:
		if s.ClientID == "" || s.ServiceName != "" || s.hasHumanFields() {
			return errors.New("client-credentials session requires clientId only")
		}
	default:
		return errors.New("unknown strategy kind")
	}
	return nil
}

func newServiceSession(kind StrategyKind, serviceName string) *UserSession {
	return &UserSession{Kind: kind, ServiceName: serviceName, IsService: true}
}

func newClientSession(clientID string) *UserSession {
	return &UserSession{Kind: KindBearerClientCredentials, ClientID: clientID, IsService: true}
}

// ServiceAccount is one configured {name, shared secret} pair used by the
// basic and challenge-response mechanisms.
type ServiceAccount struct {
	Name   string
	APIKey string
}

// TokenResponse is returned by a successful challenge-response handshake.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Credentials is the transport-neutral view of what a request presented.
type Credentials struct {
	// Authorization is the raw Authorization header value; empty when absent.
	Authorization string
	// SessionKey is the normalized key of an established interactive session.
	SessionKey string
	// HasSession reports whether the request carried a session at all.
	HasSession bool
	// LoadSession resolves the session key lazily when HasSession is false.
	// It is only called when no header path applies, so a failing session
	// backend cannot affect header-authenticated requests. ok is false when
	// the request carries no session.
	LoadSession func(ctx context.Context) (key string, ok bool, err error)
}

// ChallengeRecord is the single-use state of an issued challenge.
type ChallengeRecord struct {
	ServiceName  string
	Challenge    string
	SharedSecret string
}

// ChallengeCache stores issued challenges keyed by service name.
//
// Put overwrites any existing record for key. Take atomically reads and
// removes the record; of any number of concurrent Take calls for the same key
// at most one observes it. Expired records are indistinguishable from records
// that never existed.
type ChallengeCache interface {
	Put(ctx context.Context, key string, rec ChallengeRecord, ttl time.Duration) error
	Take(ctx context.Context, key string) (ChallengeRecord, bool, error)
}
