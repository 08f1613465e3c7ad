// Package prefs persists each user's learned category choices for ambiguous
// items. A learned preference is an explicit user decision: lookups are
// exact, case-insensitive matches only, never fuzzy, and callers must let a
// hit bypass ambiguity scoring entirely.
package prefs

import (
	"context"
	"strings"
	"time"

	"github.com/khoroch-app/khoroch/internal/domain/category"
)

// HistoryLimit bounds the per-user interaction ring buffer.
const HistoryLimit = 50

// Preference is one learned item-to-category mapping.
type Preference struct {
	Item      string            `json:"item"`
	Category  category.Category `json:"category"`
	Context   string            `json:"context"`
	LearnedAt time.Time         `json:"learned_at"`
	// Confidence is always 100: this was the user's own choice.
	Confidence int `json:"confidence"`
	// Corrections counts how many times the user has (re)taught this item.
	Corrections int `json:"corrections"`
}

// Interaction is one entry in the analytics ring buffer.
type Interaction struct {
	Item     string            `json:"item"`
	Category category.Category `json:"category"`
	Context  string            `json:"context"`
	At       time.Time         `json:"at"`
}

// Store is the preference persistence contract.
type Store interface {
	// Learn upserts the user's choice for an item and bumps its correction
	// counter.
	Learn(ctx context.Context, userID, item string, cat category.Category, contextText string) error
	// Lookup returns the learned category for an item, if any. Matching is
	// exact on the normalized item key.
	Lookup(ctx context.Context, userID, item string) (category.Category, bool, error)
	// History returns the user's most recent interactions, newest first.
	History(ctx context.Context, userID string) ([]Interaction, error)
}

// NormalizeKey folds an item into its stored key form.
func NormalizeKey(item string) string {
	return strings.ToLower(strings.TrimSpace(item))
}
