package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	EnableChallengeThrottle bool
	MaxChallenges           int
	ChallengeWindow         time.Duration
}

// Limiter enforces per-service challenge issuance limits using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// hitScript increments KEYS[1] and starts the window (ARGV[1] ms) on the
// first hit, in one round trip.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: redisClient, config: cfg}
}

// CheckChallenge records one challenge request for the service and returns
// ErrRateLimited once the window budget is exhausted.
func (l *Limiter) CheckChallenge(ctx context.Context, serviceName string) error {
	if l == nil || !l.config.EnableChallengeThrottle {
		return nil
	}

	window := l.config.ChallengeWindow.Milliseconds()
	if window < 1 {
		window = 1
	}
	hits, err := hitScript.Run(ctx, l.redis, []string{challengeKey(serviceName)}, window).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if hits > int64(l.config.MaxChallenges) {
		return ErrRateLimited
	}
	return nil
}

func challengeKey(serviceName string) string {
	return "agt:" + serviceName
}
