package category

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// keywordEntry binds a keyword to a category with a match strength.
// Entries earlier in the table win score ties.
type keywordEntry struct {
	Keyword  string
	Category Category
	Strength int
}

// defaultKeywords is the priority-ordered keyword table. High-strength
// entries are unambiguous nouns; low-strength entries are weak hints.
var defaultKeywords = []keywordEntry{
	// food
	{"lunch", Food, 10},
	{"dinner", Food, 10},
	{"breakfast", Food, 10},
	{"coffee", Food, 9},
	{"tea", Food, 7},
	{"cha", Food, 7},
	{"burger", Food, 10},
	{"pizza", Food, 10},
	{"biryani", Food, 10},
	{"rice", Food, 8},
	{"grocery", Food, 9},
	{"groceries", Food, 9},
	{"restaurant", Food, 9},
	{"snack", Food, 8},
	{"juice", Food, 8},
	{"খাবার", Food, 10},
	{"ভাত", Food, 8},
	{"চা", Food, 7},

	// transport
	{"bus", Transport, 9},
	{"rickshaw", Transport, 10},
	{"cng", Transport, 9},
	{"uber", Transport, 10},
	{"pathao", Transport, 10},
	{"train", Transport, 9},
	{"taxi", Transport, 9},
	{"fare", Transport, 7},
	{"fuel", Transport, 8},
	{"petrol", Transport, 9},
	{"রিকশা", Transport, 10},
	{"বাস", Transport, 9},
	{"ভাড়া", Transport, 8},

	// bills
	{"electricity", Bills, 10},
	{"internet", Bills, 9},
	{"wifi", Bills, 9},
	{"recharge", Bills, 9},
	{"bill", Bills, 7},
	{"rent", Bills, 9},
	{"gas bill", Bills, 10},
	{"water bill", Bills, 10},
	{"বিদ্যুৎ", Bills, 10},
	{"ভাড়া বাসা", Bills, 9},

	// shopping
	{"shirt", Shopping, 9},
	{"shoes", Shopping, 9},
	{"dress", Shopping, 9},
	{"saree", Shopping, 10},
	{"phone", Shopping, 7},
	{"headphone", Shopping, 9},
	{"market", Shopping, 6},
	{"shopping", Shopping, 9},
	{"কেনাকাটা", Shopping, 9},

	// health
	{"medicine", Health, 10},
	{"doctor", Health, 10},
	{"hospital", Health, 10},
	{"pharmacy", Health, 9},
	{"checkup", Health, 9},
	{"ঔষধ", Health, 10},
	{"ডাক্তার", Health, 10},

	// entertainment
	{"movie", Entertainment, 10},
	{"cinema", Entertainment, 10},
	{"netflix", Entertainment, 10},
	{"spotify", Entertainment, 10},
	{"game", Entertainment, 7},
	{"concert", Entertainment, 9},
	{"সিনেমা", Entertainment, 10},

	// education
	{"book", Education, 7},
	{"tuition", Education, 10},
	{"course", Education, 8},
	{"exam fee", Education, 10},
	{"admission", Education, 9},
	{"বই", Education, 8},
}

// Engine guesses a category from free text using a single Aho-Corasick pass
// over the keyword table.
type Engine struct {
	matcher *ahocorasick.Matcher
	entries []keywordEntry
	mu      sync.RWMutex
}

// NewEngine builds the keyword engine from the default table.
func NewEngine() *Engine {
	e := &Engine{}
	e.build(defaultKeywords)
	return e
}

func (e *Engine) build(entries []keywordEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.entries = entries
	patterns := make([][]byte, len(entries))
	for i, entry := range entries {
		patterns[i] = []byte(strings.ToLower(entry.Keyword))
	}
	e.matcher = ahocorasick.NewMatcher(patterns)
}

// Guess maps free text to a canonical category. The best-scoring category
// wins; ties break toward the earlier table entry. Returns Uncategorized
// when no keyword matches.
func (e *Engine) Guess(text string) Category {
	cat, _ := e.GuessScored(text)
	return cat
}

// GuessScored is Guess plus the winning keyword strength, used by callers
// that need a confidence signal.
func (e *Engine) GuessScored(text string) (Category, int) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.matcher == nil {
		return Uncategorized, 0
	}

	normalized := strings.ToLower(text)
	hits := e.matcher.Match([]byte(normalized))
	if len(hits) == 0 {
		return Uncategorized, 0
	}

	bestIdx := -1
	for _, idx := range hits {
		if idx < 0 || idx >= len(e.entries) {
			continue
		}
		if bestIdx == -1 || e.entries[idx].Strength > e.entries[bestIdx].Strength ||
			(e.entries[idx].Strength == e.entries[bestIdx].Strength && idx < bestIdx) {
			bestIdx = idx
		}
	}
	if bestIdx == -1 {
		return Uncategorized, 0
	}
	return e.entries[bestIdx].Category, e.entries[bestIdx].Strength
}
