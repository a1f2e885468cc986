package stores

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	record     ChallengeRecord
	generation uint64
	timer      *time.Timer
}

// MemoryChallengeStore is the process-local challenge store. Each entry owns
// an eviction timer; the timer only deletes the entry generation it was armed
// for, so an overwrite is never evicted early by a stale timer.
type MemoryChallengeStore struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	generation uint64
}

func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{
		entries: make(map[string]*memoryEntry),
	}
}

func (s *MemoryChallengeStore) Put(_ context.Context, serviceName string, record *ChallengeRecord, ttl time.Duration) error {
	if record == nil {
		return ErrChallengeRecordInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.entries[serviceName]; ok && prev.timer != nil {
		prev.timer.Stop()
	}

	s.generation++
	gen := s.generation
	entry := &memoryEntry{record: *record, generation: gen}
	entry.timer = time.AfterFunc(ttl, func() {
		s.evict(serviceName, gen)
	})
	s.entries[serviceName] = entry

	return nil
}

func (s *MemoryChallengeStore) Take(_ context.Context, serviceName string) (*ChallengeRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[serviceName]
	if !ok {
		return nil, false, nil
	}
	delete(s.entries, serviceName)
	if entry.timer != nil {
		entry.timer.Stop()
	}

	record := entry.record
	return &record, true, nil
}

// size reports the number of live entries.
func (s *MemoryChallengeStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops all pending eviction timers and drops every entry.
func (s *MemoryChallengeStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.entries {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(s.entries, key)
	}
}

func (s *MemoryChallengeStore) evict(serviceName string, generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[serviceName]
	if !ok || entry.generation != generation {
		return
	}
	delete(s.entries, serviceName)
}
