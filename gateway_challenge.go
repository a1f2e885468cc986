package authgate

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authgate/internal"
	"github.com/MrEthical07/authgate/internal/flows"
	"github.com/MrEthical07/authgate/internal/rate"
)

// ChallengeHash computes the answer a service sends for challenge:
// hex(HMAC-SHA256(key=secret, message=challenge)).
func ChallengeHash(secret, challenge string) string {
	return internal.ChallengeDigest(secret, challenge)
}

// CreateChallenge issues a fresh nonce for serviceName and stores it with the
// service's shared secret for the challenge TTL, replacing any outstanding
// challenge for the same service.
//
// Errors: ErrMissingParameter, ErrMechanismDisabled, ErrServiceNotFound,
// ErrChallengeRateLimited, ErrChallengeStoreUnavailable.
func (g *Gateway) CreateChallenge(ctx context.Context, serviceName string) (string, error) {
	if g == nil {
		return "", ErrGatewayNotReady
	}
	challenge, err := flows.RunCreateChallenge(ctx, serviceName, g.challengeDeps())
	if err != nil {
		g.logChallengeError(ctx, "create challenge", serviceName, err)
	}
	return challenge, err
}

// CreateToken consumes the outstanding challenge for serviceName and, if
// challengeHash answers it, mints a service access token. A wrong answer still
// consumes the challenge.
//
// Errors: ErrMissingParameter, ErrMechanismDisabled, ErrChallengeNotFound,
// ErrInvalidChallengeHash, ErrChallengeStoreUnavailable.
func (g *Gateway) CreateToken(ctx context.Context, serviceName, challengeHash string) (*TokenResponse, error) {
	if g == nil {
		return nil, ErrGatewayNotReady
	}
	issued, err := flows.RunCreateToken(ctx, serviceName, challengeHash, g.challengeDeps())
	if err != nil {
		g.logChallengeError(ctx, "create token", serviceName, err)
		return nil, err
	}
	return &TokenResponse{
		AccessToken: issued.AccessToken,
		ExpiresIn:   int64(issued.ExpiresIn / time.Second),
	}, nil
}

func (g *Gateway) logChallengeError(ctx context.Context, op, serviceName string, err error) {
	if IsAuthFailure(err) || errors.Is(err, ErrMissingParameter) || errors.Is(err, ErrChallengeRateLimited) {
		g.logger.DebugContext(ctx, op+" rejected", "service", serviceName, "reason", err.Error())
		return
	}
	g.logger.WarnContext(ctx, op+" failed", "service", serviceName, "error", err)
}

func (g *Gateway) challengeDeps() flows.ChallengeDeps {
	deps := flows.ChallengeDeps{
		Enabled: g.config.Mechanisms.Challenge,
		TTL:     g.config.Challenge.TTL,

		LookupSecret: func(serviceName string) (string, bool) {
			acct, ok := g.config.lookupAccount(serviceName)
			return acct.APIKey, ok
		},
		IsRateLimited: func(err error) bool {
			return errors.Is(err, rate.ErrRateLimited)
		},
		NewNonce: internal.NewNonce,

		Put: func(ctx context.Context, key string, entry flows.ChallengeEntry, ttl time.Duration) error {
			return g.cache.Put(ctx, key, ChallengeRecord(entry), ttl)
		},
		Take: func(ctx context.Context, key string) (flows.ChallengeEntry, bool, error) {
			rec, ok, err := g.cache.Take(ctx, key)
			return flows.ChallengeEntry(rec), ok, err
		},

		Digest:      internal.ChallengeDigest,
		DigestEqual: internal.DigestEqual,

		MetricInc: func(id int) { g.metricInc(MetricID(id)) },
		EmitAudit: func(ctx context.Context, eventType string, success bool, serviceName string, err error) {
			g.emitAudit(ctx, eventType, success, auditSubject{strategy: KindBearerAPIKey, serviceName: serviceName}, err, nil)
		},
		Debug: func(msg string, args ...any) { g.logger.Debug(msg, args...) },

		Metrics: flows.ChallengeMetrics{
			ChallengeIssued:      int(MetricChallengeIssued),
			ChallengeRateLimited: int(MetricChallengeRateLimited),
			TokenIssued:          int(MetricTokenIssued),
			TokenRejected:        int(MetricTokenRejected),
		},
		Events: flows.ChallengeEvents{
			ChallengeIssued: auditEventChallengeIssued,
			TokenIssued:     auditEventTokenIssued,
			TokenRejected:   auditEventTokenRejected,
		},
		Errors: flows.ChallengeErrors{
			GatewayNotReady:      ErrGatewayNotReady,
			MissingParameter:     ErrMissingParameter,
			MechanismDisabled:    ErrMechanismDisabled,
			ServiceNotFound:      ErrServiceNotFound,
			ChallengeNotFound:    ErrChallengeNotFound,
			InvalidChallengeHash: ErrInvalidChallengeHash,
			RateLimited:          ErrChallengeRateLimited,
			StoreUnavailable:     ErrChallengeStoreUnavailable,
		},
	}

	if g.tokens != nil {
		deps.IssueToken = g.tokens.Issue
	} else {
		deps.IssueToken = func(string) (string, time.Duration, error) {
			return "", 0, ErrMechanismDisabled
		}
	}
	if g.throttle != nil {
		deps.CheckThrottle = g.throttle.CheckChallenge
	}

	return deps
}
