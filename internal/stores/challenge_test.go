package stores

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestChallengeStore(t *testing.T) (*ChallengeStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	return NewChallengeStore(rdb, "agc"), mr
}

func testRecord(name string) *ChallengeRecord {
	return &ChallengeRecord{ServiceName: name, Challenge: "nonce-" + name, SharedSecret: "secret-" + name}
}

func TestChallengeStorePutTake(t *testing.T) {
	store, mr := newTestChallengeStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "svcA", testRecord("svcA"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !mr.Exists("agc:svcA") {
		t.Fatal("expected record under prefixed key")
	}

	got, ok, err := store.Take(ctx, "svcA")
	if err != nil || !ok {
		t.Fatalf("Take failed: ok=%v err=%v", ok, err)
	}
	if *got != *testRecord("svcA") {
		t.Fatalf("record mismatch: %+v", got)
	}

	_, ok, err = store.Take(ctx, "svcA")
	if err != nil {
		t.Fatalf("second Take error: %v", err)
	}
	if ok {
		t.Fatal("expected second Take to observe absent")
	}
}

func TestChallengeStoreOverwrite(t *testing.T) {
	store, _ := newTestChallengeStore(t)
	ctx := context.Background()

	first := testRecord("svcA")
	second := &ChallengeRecord{ServiceName: "svcA", Challenge: "newer", SharedSecret: "secret-svcA"}
	if err := store.Put(ctx, "svcA", first, time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, "svcA", second, time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := store.Take(ctx, "svcA")
	if err != nil || !ok {
		t.Fatalf("Take failed: ok=%v err=%v", ok, err)
	}
	if got.Challenge != "newer" {
		t.Fatalf("expected overwritten challenge, got %q", got.Challenge)
	}
}

func TestChallengeStoreExpiry(t *testing.T) {
	store, mr := newTestChallengeStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "svcA", testRecord("svcA"), 60*time.Second); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	mr.FastForward(61 * time.Second)

	_, ok, err := store.Take(ctx, "svcA")
	if err != nil {
		t.Fatalf("Take error: %v", err)
	}
	if ok {
		t.Fatal("expected expired record to be absent")
	}
}

func TestChallengeStoreConcurrentTakeSingleWinner(t *testing.T) {
	store, _ := newTestChallengeStore(t)
	ctx := context.Background()

	for round := 0; round < 20; round++ {
		if err := store.Put(ctx, "svcA", testRecord("svcA"), time.Minute); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok, err := store.Take(ctx, "svcA"); err == nil && ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		if got := wins.Load(); got != 1 {
			t.Fatalf("round %d: expected exactly one winner, got %d", round, got)
		}
	}
}

func TestChallengeStoreRedisDown(t *testing.T) {
	store, mr := newTestChallengeStore(t)
	mr.Close()

	err := store.Put(context.Background(), "svcA", testRecord("svcA"), time.Minute)
	if !errors.Is(err, ErrChallengeRedisUnavailable) {
		t.Fatalf("expected ErrChallengeRedisUnavailable, got %v", err)
	}
	_, _, err = store.Take(context.Background(), "svcA")
	if !errors.Is(err, ErrChallengeRedisUnavailable) {
		t.Fatalf("expected ErrChallengeRedisUnavailable, got %v", err)
	}
}

func TestChallengeRecordCodecRejectsGarbage(t *testing.T) {
	encoded, err := encodeChallengeRecord(testRecord("svcA"))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	cases := map[string][]byte{
		"empty":     {},
		"version":   append([]byte{9}, encoded[1:]...),
		"truncated": encoded[:len(encoded)-2],
		"trailing":  append(append([]byte{}, encoded...), 0x00),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := decodeChallengeRecord(data); err == nil {
				t.Fatal("expected decode error")
			}
		})
	}
}

func TestMemoryChallengeStoreSingleUse(t *testing.T) {
	store := NewMemoryChallengeStore()
	defer store.Close()
	ctx := context.Background()

	if err := store.Put(ctx, "svcA", testRecord("svcA"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, ok, _ := store.Take(ctx, "svcA"); !ok {
		t.Fatal("expected first Take to succeed")
	}
	if _, ok, _ := store.Take(ctx, "svcA"); ok {
		t.Fatal("expected second Take to observe absent")
	}
}

func TestMemoryChallengeStoreExpiry(t *testing.T) {
	store := NewMemoryChallengeStore()
	defer store.Close()
	ctx := context.Background()

	if err := store.Put(ctx, "svcA", testRecord("svcA"), 20*time.Millisecond); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for store.size() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("entry was not evicted")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok, _ := store.Take(ctx, "svcA"); ok {
		t.Fatal("expected expired entry to be absent")
	}
}

func TestMemoryChallengeStoreStaleTimerDoesNotEvictOverwrite(t *testing.T) {
	store := NewMemoryChallengeStore()
	defer store.Close()
	ctx := context.Background()

	if err := store.Put(ctx, "svcA", testRecord("svcA"), 10*time.Millisecond); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, "svcA", testRecord("svcA"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if _, ok, _ := store.Take(ctx, "svcA"); !ok {
		t.Fatal("expected overwritten entry to survive the first TTL")
	}
}

func TestMemoryChallengeStoreConcurrentTakeSingleWinner(t *testing.T) {
	store := NewMemoryChallengeStore()
	defer store.Close()
	ctx := context.Background()

	if err := store.Put(ctx, "svcA", testRecord("svcA"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := store.Take(ctx, "svcA"); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Fatalf("expected exactly one winner, got %d", got)
	}
}
