package flows

import (
	"context"
	"fmt"
	"time"
)

// ChallengeEntry is the flow-local shape of a cached challenge.
type ChallengeEntry struct {
	ServiceName  string
	Challenge    string
	SharedSecret string
}

// ChallengeMetrics carries metric IDs used by the challenge flows.
type ChallengeMetrics struct {
	ChallengeIssued      int
	ChallengeRateLimited int
	TokenIssued          int
	TokenRejected        int
}

// ChallengeEvents carries audit event names used by the challenge flows.
type ChallengeEvents struct {
	ChallengeIssued string
	TokenIssued     string
	TokenRejected   string
}

// ChallengeErrors carries host-level sentinel errors used by the challenge flows.
type ChallengeErrors struct {
	GatewayNotReady      error
	MissingParameter     error
	MechanismDisabled    error
	ServiceNotFound      error
	ChallengeNotFound    error
	InvalidChallengeHash error
	RateLimited          error
	StoreUnavailable     error
}

// ChallengeDeps captures challenge issuance and token exchange dependencies.
type ChallengeDeps struct {
	Enabled bool
	TTL     time.Duration

	LookupSecret  func(serviceName string) (string, bool)
	CheckThrottle func(ctx context.Context, serviceName string) error
	IsRateLimited func(error) bool
	NewNonce      func() (string, error)

	Put  func(ctx context.Context, key string, entry ChallengeEntry, ttl time.Duration) error
	Take func(ctx context.Context, key string) (ChallengeEntry, bool, error)

	Digest      func(secret, challenge string) string
	DigestEqual func(expected, provided string) bool
	IssueToken  func(serviceName string) (string, time.Duration, error)

	MetricInc func(int)
	EmitAudit func(ctx context.Context, eventType string, success bool, serviceName string, err error)
	Debug     func(msg string, args ...any)

	Metrics ChallengeMetrics
	Events  ChallengeEvents
	Errors  ChallengeErrors
}

// IssuedToken is the flow-local token exchange result.
type IssuedToken struct {
	AccessToken string
	ExpiresIn   time.Duration
}

func (d *ChallengeDeps) defaults() {
	if d.MetricInc == nil {
		d.MetricInc = func(int) {}
	}
	if d.EmitAudit == nil {
		d.EmitAudit = func(context.Context, string, bool, string, error) {}
	}
	if d.Debug == nil {
		d.Debug = func(string, ...any) {}
	}
	if d.IsRateLimited == nil {
		d.IsRateLimited = func(error) bool { return false }
	}
}

func (d *ChallengeDeps) ready() bool {
	return d.LookupSecret != nil &&
		d.NewNonce != nil &&
		d.Put != nil &&
		d.Take != nil &&
		d.Digest != nil &&
		d.DigestEqual != nil &&
		d.IssueToken != nil
}

// RunCreateChallenge issues a fresh challenge for serviceName, replacing any
// outstanding one.
func RunCreateChallenge(ctx context.Context, serviceName string, deps ChallengeDeps) (string, error) {
	deps.defaults()
	if !deps.ready() {
		return "", deps.Errors.GatewayNotReady
	}
	if serviceName == "" {
		return "", deps.Errors.MissingParameter
	}
	if !deps.Enabled {
		return "", deps.Errors.MechanismDisabled
	}

	secret, ok := deps.LookupSecret(serviceName)
	if !ok {
		deps.Debug("challenge requested for unknown service", "service", serviceName)
		return "", deps.Errors.ServiceNotFound
	}

	if deps.CheckThrottle != nil {
		if err := deps.CheckThrottle(ctx, serviceName); err != nil {
			if deps.IsRateLimited(err) {
				deps.MetricInc(deps.Metrics.ChallengeRateLimited)
				deps.EmitAudit(ctx, deps.Events.ChallengeIssued, false, serviceName, deps.Errors.RateLimited)
				return "", deps.Errors.RateLimited
			}
			return "", fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
		}
	}

	nonce, err := deps.NewNonce()
	if err != nil {
		return "", err
	}

	entry := ChallengeEntry{
		ServiceName:  serviceName,
		Challenge:    nonce,
		SharedSecret: secret,
	}
	if err := deps.Put(ctx, serviceName, entry, deps.TTL); err != nil {
		return "", err
	}

	deps.MetricInc(deps.Metrics.ChallengeIssued)
	deps.EmitAudit(ctx, deps.Events.ChallengeIssued, true, serviceName, nil)
	return nonce, nil
}

// RunCreateToken consumes the outstanding challenge for serviceName and, when
// challengeHash answers it, mints an access token. The challenge is consumed
// whether or not the answer is correct.
func RunCreateToken(ctx context.Context, serviceName, challengeHash string, deps ChallengeDeps) (*IssuedToken, error) {
	deps.defaults()
	if !deps.ready() {
		return nil, deps.Errors.GatewayNotReady
	}
	if serviceName == "" {
		return nil, deps.Errors.MissingParameter
	}
	if !deps.Enabled {
		return nil, deps.Errors.MechanismDisabled
	}

	entry, ok, err := deps.Take(ctx, serviceName)
	if err != nil {
		return nil, err
	}
	if !ok {
		deps.MetricInc(deps.Metrics.TokenRejected)
		deps.EmitAudit(ctx, deps.Events.TokenRejected, false, serviceName, deps.Errors.ChallengeNotFound)
		return nil, deps.Errors.ChallengeNotFound
	}

	expected := deps.Digest(entry.SharedSecret, entry.Challenge)
	if !deps.DigestEqual(expected, challengeHash) {
		deps.MetricInc(deps.Metrics.TokenRejected)
		deps.EmitAudit(ctx, deps.Events.TokenRejected, false, serviceName, deps.Errors.InvalidChallengeHash)
		deps.Debug("challenge answer mismatch", "service", serviceName)
		return nil, deps.Errors.InvalidChallengeHash
	}

	token, ttl, err := deps.IssueToken(entry.ServiceName)
	if err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.TokenIssued)
	deps.EmitAudit(ctx, deps.Events.TokenIssued, true, serviceName, nil)
	return &IssuedToken{AccessToken: token, ExpiresIn: ttl}, nil
}
