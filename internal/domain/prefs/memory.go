package prefs

import (
	"context"
	"sync"
	"time"

	"github.com/khoroch-app/khoroch/internal/domain/category"
)

// MemoryStore is an in-process Store for tests and single-node deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	prefs   map[string]map[string]*Preference
	history map[string][]Interaction
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prefs:   make(map[string]map[string]*Preference),
		history: make(map[string][]Interaction),
		now:     time.Now,
	}
}

func (s *MemoryStore) Learn(_ context.Context, userID, item string, cat category.Category, contextText string) error {
	key := NormalizeKey(item)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	userPrefs, ok := s.prefs[userID]
	if !ok {
		userPrefs = make(map[string]*Preference)
		s.prefs[userID] = userPrefs
	}

	corrections := 1
	if existing, ok := userPrefs[key]; ok {
		corrections = existing.Corrections + 1
	}
	userPrefs[key] = &Preference{
		Item:        key,
		Category:    cat,
		Context:     contextText,
		LearnedAt:   now,
		Confidence:  100,
		Corrections: corrections,
	}

	hist := append(s.history[userID], Interaction{Item: key, Category: cat, Context: contextText, At: now})
	if len(hist) > HistoryLimit {
		hist = hist[len(hist)-HistoryLimit:]
	}
	s.history[userID] = hist
	return nil
}

func (s *MemoryStore) Lookup(_ context.Context, userID, item string) (category.Category, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.prefs[userID][NormalizeKey(item)]; ok {
		return p.Category, true, nil
	}
	return "", false, nil
}

func (s *MemoryStore) History(_ context.Context, userID string) ([]Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hist := s.history[userID]
	out := make([]Interaction, len(hist))
	for i, it := range hist {
		out[len(hist)-1-i] = it
	}
	return out, nil
}
