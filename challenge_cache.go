package authgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authgate/internal/stores"
	"github.com/redis/go-redis/v9"
)

type challengeBackend interface {
	Put(ctx context.Context, serviceName string, record *stores.ChallengeRecord, ttl time.Duration) error
	Take(ctx context.Context, serviceName string) (*stores.ChallengeRecord, bool, error)
}

// storeChallengeCache adapts an internal store to ChallengeCache and maps
// backend failures to ErrChallengeStoreUnavailable.
type storeChallengeCache struct {
	backend challengeBackend
}

// NewRedisChallengeCache returns a ChallengeCache backed by Redis. Take is a
// single GETDEL, so concurrent takes are resolved by the server.
func NewRedisChallengeCache(client redis.UniversalClient, prefix string) ChallengeCache {
	return &storeChallengeCache{backend: stores.NewChallengeStore(client, prefix)}
}

// NewMemoryChallengeCache returns a process-local ChallengeCache whose entries
// expire on background timers.
func NewMemoryChallengeCache() ChallengeCache {
	return &storeChallengeCache{backend: stores.NewMemoryChallengeStore()}
}

func (c *storeChallengeCache) Put(ctx context.Context, key string, rec ChallengeRecord, ttl time.Duration) error {
	err := c.backend.Put(ctx, key, &stores.ChallengeRecord{
		ServiceName:  rec.ServiceName,
		Challenge:    rec.Challenge,
		SharedSecret: rec.SharedSecret,
	}, ttl)
	return mapChallengeStoreError(err)
}

func (c *storeChallengeCache) Take(ctx context.Context, key string) (ChallengeRecord, bool, error) {
	rec, ok, err := c.backend.Take(ctx, key)
	if err != nil {
		return ChallengeRecord{}, false, mapChallengeStoreError(err)
	}
	if !ok || rec == nil {
		return ChallengeRecord{}, false, nil
	}
	return ChallengeRecord{
		ServiceName:  rec.ServiceName,
		Challenge:    rec.Challenge,
		SharedSecret: rec.SharedSecret,
	}, true, nil
}

// Close releases background timers of in-memory caches.
func (c *storeChallengeCache) Close() {
	if mem, ok := c.backend.(*stores.MemoryChallengeStore); ok {
		mem.Close()
	}
}

func mapChallengeStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrChallengeStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrChallengeStoreUnavailable, err)
}
