package artifact

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
)

// MemoryStore is a concurrent-safe LRU artifact store with TTL expiration.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	order      []string // LRU order: front=oldest, back=newest
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock
}

type memoryEntry struct {
	artifact *Artifact
	storedAt time.Time
}

// NewMemoryStore creates a store holding at most maxEntries artifacts for
// ttl each. A nil clock uses the real clock.
func NewMemoryStore(maxEntries int, ttl time.Duration, clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &MemoryStore{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
	}
}

// Put stores a and returns a fresh token, evicting the least recently used
// entry when full.
func (s *MemoryStore) Put(_ context.Context, a *Artifact) (string, error) {
	if a == nil {
		return "", eris.New("artifact: nil artifact")
	}
	token := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired()
	for len(s.entries) >= s.maxEntries && len(s.order) > 0 {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.entries, oldest)
	}

	s.entries[token] = &memoryEntry{artifact: a, storedAt: s.clock.Now()}
	s.order = append(s.order, token)
	return token, nil
}

// Get returns the artifact for token or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, token string) (*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "artifact: token %s", token)
	}
	if s.expired(entry) {
		delete(s.entries, token)
		s.removeFromOrder(token)
		return nil, eris.Wrapf(ErrNotFound, "artifact: token %s expired", token)
	}

	s.removeFromOrder(token)
	s.order = append(s.order, token)
	return entry.artifact, nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired()
	return len(s.entries)
}

func (s *MemoryStore) expired(e *memoryEntry) bool {
	return s.ttl > 0 && s.clock.Since(e.storedAt) >= s.ttl
}

func (s *MemoryStore) evictExpired() {
	remaining := s.order[:0]
	for _, token := range s.order {
		if s.expired(s.entries[token]) {
			delete(s.entries, token)
			continue
		}
		remaining = append(remaining, token)
	}
	s.order = remaining
}

func (s *MemoryStore) removeFromOrder(token string) {
	for i, k := range s.order {
		if k == token {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
