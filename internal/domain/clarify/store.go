package clarify

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/khoroch-app/khoroch/internal/domain/ambiguity"
)

// DefaultTTL is how long a pending clarification stays answerable.
const DefaultTTL = 10 * time.Minute

const lockShards = 32

// Pending is one suspended clarification dialogue. At most one exists per
// user; a newer clarification for the same user supersedes the old one.
type Pending struct {
	UserID         string
	MessageID      string
	Item           string
	Amount         decimal.Decimal
	Currency       string
	OriginalText   string
	Options        []ambiguity.Option
	IdempotencyKey string
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// Store holds pending clarifications keyed by user, with per-user
// serialization via striped locks. Expired entries are purged lazily on
// lookup; a periodic sweep handles users who never come back.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Pending

	shards [lockShards]sync.Mutex
	ttl    time.Duration
	now    func() time.Time
}

// NewStore builds a store with the given TTL. A non-positive ttl falls back
// to DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		entries: make(map[string]*Pending),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *Store) lockFor(userID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return &s.shards[h.Sum32()%lockShards]
}

// WithUser runs fn while holding the user's stripe lock. All lookup-then-
// mutate sequences for a user must go through here so two concurrent
// messages cannot both resolve the same pending entry.
func (s *Store) WithUser(userID string, fn func()) {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()
	fn()
}

// Put stores a pending clarification for its user, replacing any existing
// one. CreatedAt and ExpiresAt are stamped here.
func (s *Store) Put(p *Pending) {
	now := s.now()
	p.CreatedAt = now
	p.ExpiresAt = now.Add(s.ttl)

	s.mu.Lock()
	s.entries[p.UserID] = p
	s.mu.Unlock()
}

// Get returns the user's pending clarification if one exists and has not
// expired. An expired entry is purged and reported via the second return.
func (s *Store) Get(userID string) (pending *Pending, expired bool) {
	s.mu.RLock()
	p, ok := s.entries[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.now().After(p.ExpiresAt) {
		s.mu.Lock()
		if cur, ok := s.entries[userID]; ok && cur == p {
			delete(s.entries, userID)
		}
		s.mu.Unlock()
		return nil, true
	}
	return p, false
}

// Delete removes the user's pending clarification, if any.
func (s *Store) Delete(userID string) {
	s.mu.Lock()
	delete(s.entries, userID)
	s.mu.Unlock()
}

// SweepExpired removes every expired entry and returns how many were purged.
// Run periodically so abandoned dialogues do not accumulate.
func (s *Store) SweepExpired() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for user, p := range s.entries {
		if now.After(p.ExpiresAt) {
			delete(s.entries, user)
			purged++
		}
	}
	return purged
}

// Len reports the number of live entries, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
