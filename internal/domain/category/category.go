// Package category is the single authority for canonical expense categories.
// Every other component folds free-form category text through Normalize
// rather than re-implementing matching.
package category

import (
	"strings"
)

// Category is one of the small closed set of canonical labels.
type Category string

// The canonical category set. Anything unrecognized folds to Uncategorized.
const (
	Food          Category = "food"
	Transport     Category = "transport"
	Bills         Category = "bills"
	Shopping      Category = "shopping"
	Health        Category = "health"
	Entertainment Category = "entertainment"
	Education     Category = "education"
	Uncategorized Category = "uncategorized"

	// PendingClarification is the sentinel category assigned while a
	// clarification dialogue is in flight. It is never a Normalize result.
	PendingClarification Category = "pending_clarification"
)

// All lists every canonical category in priority order.
var All = []Category{Food, Transport, Bills, Shopping, Health, Entertainment, Education, Uncategorized}

// IsCanonical reports whether c is a member of the canonical set.
func IsCanonical(c Category) bool {
	for _, known := range All {
		if c == known {
			return true
		}
	}
	return false
}

// synonymTable maps free-text category spellings to canonical categories,
// ordered by priority. The partial-match pass walks it in order, so an
// input containing several synonyms always resolves to the same category.
var synonymTable = []struct {
	text string
	cat  Category
}{
	{"groceries", Food},
	{"grocery", Food},
	{"meal", Food},
	{"meals", Food},
	{"dining", Food},
	{"restaurant", Food},
	{"snacks", Food},
	{"khabar", Food},
	{"খাবার", Food},
	{"travel", Transport},
	{"commute", Transport},
	{"ride", Transport},
	{"fuel", Transport},
	{"jatayat", Transport},
	{"যাতায়াত", Transport},
	{"utilities", Bills},
	{"utility", Bills},
	{"rent", Bills},
	{"recharge", Bills},
	{"bill", Bills},
	{"বিল", Bills},
	{"purchases", Shopping},
	{"clothes", Shopping},
	{"clothing", Shopping},
	{"electronics", Shopping},
	{"kenakata", Shopping},
	{"কেনাকাটা", Shopping},
	{"medical", Health},
	{"medicine", Health},
	{"pharmacy", Health},
	{"doctor", Health},
	{"chikitsha", Health},
	{"চিকিৎসা", Health},
	{"fun", Entertainment},
	{"movies", Entertainment},
	{"movie", Entertainment},
	{"streaming", Entertainment},
	{"binodon", Entertainment},
	{"বিনোদন", Entertainment},
	{"study", Education},
	{"books", Education},
	{"tuition", Education},
	{"course", Education},
	{"shikkha", Education},
	{"শিক্ষা", Education},
	{"other", Uncategorized},
	{"others", Uncategorized},
	{"misc", Uncategorized},
	{"miscellaneous", Uncategorized},
	{"unknown", Uncategorized},
}

// synonyms indexes synonymTable for the exact-match pass.
var synonyms = func() map[string]Category {
	m := make(map[string]Category, len(synonymTable))
	for _, s := range synonymTable {
		m[s.text] = s.cat
	}
	return m
}()

// Normalize folds arbitrary category text into the canonical set.
// Resolution order: exact canonical match, synonym table, partial match
// against known synonyms, Uncategorized. Normalize is idempotent.
func Normalize(raw string) Category {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if cleaned == "" {
		return Uncategorized
	}

	// Exact canonical match first.
	for _, c := range All {
		if cleaned == string(c) {
			return c
		}
	}

	if c, ok := synonyms[cleaned]; ok {
		return c
	}

	// Partial match: a canonical name or synonym contained in the input.
	// Walks fixed-order tables so multi-synonym inputs are deterministic.
	for _, c := range All {
		if strings.Contains(cleaned, string(c)) {
			return c
		}
	}
	for _, s := range synonymTable {
		if strings.Contains(cleaned, s.text) {
			return s.cat
		}
	}

	return Uncategorized
}

// labels maps categories to user-facing display labels.
var labels = map[Category]string{
	Food:                 "Food & Dining",
	Transport:            "Transport",
	Bills:                "Bills & Utilities",
	Shopping:             "Shopping",
	Health:               "Health",
	Entertainment:        "Entertainment",
	Education:            "Education",
	Uncategorized:        "Other",
	PendingClarification: "Pending",
}

// examples maps categories to an illustrative example shown in
// clarification questions.
var examples = map[Category]string{
	Food:          "lunch, groceries, snacks",
	Transport:     "bus fare, rickshaw, fuel",
	Bills:         "electricity, internet, mobile recharge",
	Shopping:      "clothes, gadgets, household items",
	Health:        "medicine, doctor visit",
	Entertainment: "movies, streaming, games",
	Education:     "books, tuition, courses",
	Uncategorized: "anything else",
}

// Label returns the display label for c.
func (c Category) Label() string {
	if l, ok := labels[c]; ok {
		return l
	}
	return labels[Uncategorized]
}

// Example returns an illustrative usage example for c.
func (c Category) Example() string {
	if e, ok := examples[c]; ok {
		return e
	}
	return examples[Uncategorized]
}

func (c Category) String() string { return string(c) }
