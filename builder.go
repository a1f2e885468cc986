package authgate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/authgate/internal/rate"
	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/keyset"
	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// KeyResolver returns the verification key for a client-credentials token.
// *keyset.Set is the default implementation.
type KeyResolver interface {
	Resolve(ctx context.Context, token *gjwt.Token) (any, error)
}

// Builder assembles a Gateway. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	cache      ChallengeCache
	keys       KeyResolver
	httpClient *http.Client
	codecs     []SessionCodec

	auditSink AuditSink
	logger    *slog.Logger

	built bool
}

// New returns a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs the challenge cache and the issuance throttle with Redis.
// An explicit WithChallengeCache takes precedence for the cache.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithChallengeCache(cache ChallengeCache) *Builder {
	b.cache = cache
	return b
}

// WithKeyResolver replaces the remote key set used for client-credentials tokens.
func (b *Builder) WithKeyResolver(keys KeyResolver) *Builder {
	b.keys = keys
	return b
}

// WithHTTPClient sets the client used to fetch the remote key set.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithSessionCodec appends a codec after the built-in chain.
func (b *Builder) WithSessionCodec(codec SessionCodec) *Builder {
	if codec != nil {
		b.codecs = append(b.codecs, codec)
	}
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Gateway.
func (b *Builder) Build() (*Gateway, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Throttle.Enabled && b.redis == nil {
		return nil, errors.New("Throttle requires redis client")
	}

	logger := b.logger
	if logger == nil {
		logger = discardLogger()
	}

	g := &Gateway{
		config:  cfg,
		logger:  logger,
		metrics: NewMetrics(cfg.Metrics),
	}

	// -------- CHALLENGE CACHE --------
	switch {
	case b.cache != nil:
		g.cache = b.cache
	case b.redis != nil:
		g.cache = NewRedisChallengeCache(b.redis, cfg.Challenge.RedisPrefix)
	default:
		mem := NewMemoryChallengeCache()
		g.cache = mem
		g.ownedCache = mem.(*storeChallengeCache)
	}

	// -------- TOKEN MANAGER --------
	if cfg.Mechanisms.Challenge {
		tm, err := jwt.NewManager(jwt.Config{
			TokenTTL: cfg.Challenge.TokenTTL,
			Secret:   cloneBytes(cfg.Challenge.TokenSecret),
			Issuer:   cfg.Challenge.TokenIssuer,
			Leeway:   cfg.Challenge.TokenLeeway,
		})
		if err != nil {
			return nil, err
		}
		g.tokens = tm
	}

	// -------- REMOTE KEY SET --------
	if cfg.Mechanisms.ClientCredentials {
		if b.keys != nil {
			g.keys = b.keys
		} else {
			ks, err := keyset.New(keyset.Config{
				URL:     cfg.ClientCredentials.JWKSURL,
				Timeout: cfg.ClientCredentials.FetchTimeout,
				Client:  b.httpClient,
				OnFetch: func() { g.metrics.Inc(MetricKeySetFetch) },
			})
			if err != nil {
				return nil, err
			}
			g.keys = ks
		}
	}

	// -------- THROTTLE --------
	if cfg.Throttle.Enabled {
		g.throttle = rate.New(b.redis, rate.Config{
			EnableChallengeThrottle: true,
			MaxChallenges:           cfg.Throttle.MaxChallenges,
			ChallengeWindow:         cfg.Throttle.Window,
		})
	}

	g.codecs = append(defaultSessionCodecs(), b.codecs...)
	g.audit = newAuditDispatcher(cfg.Audit, b.auditSink, logger)

	b.built = true

	return g, nil
}
