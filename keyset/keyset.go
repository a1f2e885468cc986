package keyset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultTimeout  = 5 * time.Second
	maxResponseSize = 1 << 20
)

var (
	// ErrMissingKeyID indicates the token header carries no kid.
	ErrMissingKeyID = errors.New("keyset: token has no kid")
	// ErrKeyNotFound indicates the remote set was fetched but has no usable key for the kid.
	ErrKeyNotFound = errors.New("keyset: key not found")
	// ErrFetch indicates the remote set could not be retrieved or decoded.
	ErrFetch = errors.New("keyset: fetch failed")
)

// Config describes the remote key set endpoint.
type Config struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
	// OnFetch, when set, is called before every remote fetch.
	OnFetch func()
}

// Set is a lazily populated, per-kid cache of remote verification keys.
type Set struct {
	url     string
	timeout time.Duration
	client  *http.Client
	onFetch func()

	mu   sync.RWMutex
	keys map[string]any

	fetches atomic.Uint64
}

// New returns a Set for cfg.URL. No network I/O happens until the first miss.
func New(cfg Config) (*Set, error) {
	if cfg.URL == "" {
		return nil, errors.New("keyset: url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	return &Set{
		url:     cfg.URL,
		timeout: cfg.Timeout,
		client:  cfg.Client,
		onFetch: cfg.OnFetch,
		keys:    make(map[string]any),
	}, nil
}

// Resolve returns the verification key for the token's kid, fetching the
// remote set on a cache miss.
func (s *Set) Resolve(ctx context.Context, token *jwt.Token) (any, error) {
	if token == nil {
		return nil, ErrMissingKeyID
	}
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return nil, ErrMissingKeyID
	}

	s.mu.RLock()
	key, ok := s.keys[kid]
	s.mu.RUnlock()
	if ok {
		return key, nil
	}

	kf, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	key, err = kf.Keyfunc(token)
	if err != nil {
		return nil, fmt.Errorf("%w: kid %q: %v", ErrKeyNotFound, kid, err)
	}

	s.mu.Lock()
	if existing, ok := s.keys[kid]; ok {
		key = existing
	} else {
		s.keys[kid] = key
	}
	s.mu.Unlock()

	return key, nil
}

// Keyfunc adapts Resolve to the jwt parser callback, bound to ctx.
func (s *Set) Keyfunc(ctx context.Context) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		return s.Resolve(ctx, t)
	}
}

// Fetches reports how many remote fetches have been attempted.
func (s *Set) Fetches() uint64 {
	return s.fetches.Load()
}

// Cached reports whether a key is already cached for kid.
func (s *Set) Cached(kid string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[kid]
	return ok
}

func (s *Set) fetch(ctx context.Context) (keyfunc.Keyfunc, error) {
	s.fetches.Add(1)
	if s.onFetch != nil {
		s.onFetch()
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFetch, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	kf, err := keyfunc.NewJWKSetJSON(json.RawMessage(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: decode jwks: %v", ErrFetch, err)
	}
	return kf, nil
}
