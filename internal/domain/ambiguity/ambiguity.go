// Package ambiguity scores expense item text against a table of nouns that
// plausibly belong to more than one category. Scoring is fully deterministic:
// identical inputs always produce the same decision and option ordering.
package ambiguity

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/khoroch-app/khoroch/internal/domain/category"
)

// Scoring parameters. Confidence is capped at 100.
const (
	keywordBonus     = 25
	priceBandBonus   = 8
	nearTypicalBonus = 7

	// Clarification decision thresholds.
	confidentScore = 85
	decisiveGap    = 25
	relevanceFloor = 40

	maxOptions = 3
)

// candidate is one possible category reading of an ambiguous noun.
type candidate struct {
	Category category.Category
	Base     int
	Keywords []string
}

// ambiguousEntry maps a head noun to its competing category readings.
type ambiguousEntry struct {
	Noun       string
	Candidates []candidate
}

// ambiguousNouns is the priority-ordered table of known ambiguous nouns.
// Kept as a slice so iteration order is stable.
var ambiguousNouns = []ambiguousEntry{
	{
		Noun: "mouse",
		Candidates: []candidate{
			{category.Shopping, 55, []string{"computer", "laptop", "pc", "wireless", "usb", "keyboard"}},
			{category.Entertainment, 40, []string{"game", "gaming", "console"}},
		},
	},
	{
		Noun: "apple",
		Candidates: []candidate{
			{category.Food, 55, []string{"fruit", "kg", "kilo", "bazar", "market", "খেলাম", "ফল"}},
			{category.Shopping, 45, []string{"iphone", "phone", "macbook", "store", "charger", "watch"}},
		},
	},
	{
		Noun: "glasses",
		Candidates: []candidate{
			{category.Health, 50, []string{"eye", "doctor", "power", "optics", "vision"}},
			{category.Shopping, 50, []string{"sun", "sunglasses", "fashion", "style"}},
		},
	},
	{
		Noun: "tablet",
		Candidates: []candidate{
			{category.Health, 50, []string{"medicine", "pharmacy", "doctor", "dose", "ঔষধ"}},
			{category.Shopping, 50, []string{"samsung", "android", "ipad", "screen", "stylus"}},
		},
	},
	{
		Noun: "coach",
		Candidates: []candidate{
			{category.Transport, 50, []string{"bus", "ticket", "dhaka", "chittagong", "night"}},
			{category.Education, 45, []string{"class", "lesson", "training", "tuition"}},
		},
	},
	{
		Noun: "club",
		Candidates: []candidate{
			{category.Entertainment, 55, []string{"party", "dance", "drinks"}},
			{category.Health, 40, []string{"gym", "fitness", "membership", "swim"}},
		},
	},
	{
		Noun: "battery",
		Candidates: []candidate{
			{category.Shopping, 55, []string{"phone", "remote", "aa", "charger"}},
			{category.Transport, 45, []string{"car", "rickshaw", "garage", "auto"}},
		},
	},
	{
		Noun: "paper",
		Candidates: []candidate{
			{category.Education, 50, []string{"exam", "print", "notebook", "school"}},
			{category.Shopping, 40, []string{"tissue", "towel", "kitchen"}},
		},
	},
}

// priceBand is the typical spend range for a category, in major units.
type priceBand struct {
	Min, Max, Typical float64
}

var priceBands = map[category.Category]priceBand{
	category.Food:          {20, 2000, 300},
	category.Transport:     {10, 5000, 150},
	category.Bills:         {100, 20000, 1000},
	category.Shopping:      {100, 100000, 1500},
	category.Health:        {20, 50000, 500},
	category.Entertainment: {50, 10000, 500},
	category.Education:     {50, 50000, 1000},
}

// Option is one choice presented to the user in a clarification question.
type Option struct {
	Category   category.Category `json:"category"`
	Label      string            `json:"display_label"`
	Example    string            `json:"example"`
	Confidence int               `json:"confidence"`
}

// Result is the detector's decision for one candidate item.
type Result struct {
	Ambiguous          bool
	NeedsClarification bool
	// Category is the winning category when the contest was decisive.
	// Meaningful only when Ambiguous is true and NeedsClarification is false.
	Category category.Category
	Noun     string
	Options  []Option
}

var stripTokensRe = regexp.MustCompile(`[\d৳$€£₹.,:;!?()]+`)

// stopwords never count as head nouns.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "my": true, "some": true, "new": true,
	"for": true, "on": true, "at": true, "in": true, "from": true, "to": true,
	"spent": true, "spend": true, "paid": true, "pay": true, "bought": true,
	"buy": true, "cost": true, "costs": true, "taka": true, "tk": true,
	"bdt": true, "usd": true, "dollar": true, "dollars": true, "টাকা": true,
	"খরচ": true, "কিনলাম": true, "দিলাম": true,
}

// HeadNoun strips articles, expense verbs, digits and currency markers and
// returns the first remaining token present in the ambiguous table. Callers
// use the returned noun as the preference-store key for the item.
func HeadNoun(itemText string) (string, bool) {
	cleaned := stripTokensRe.ReplaceAllString(strings.ToLower(itemText), " ")
	for _, tok := range strings.Fields(cleaned) {
		if stopwords[tok] {
			continue
		}
		for _, entry := range ambiguousNouns {
			if tok == entry.Noun {
				return entry.Noun, true
			}
		}
	}
	return "", false
}

// Detector scores candidate items for category ambiguity.
type Detector struct{}

func NewDetector() *Detector { return &Detector{} }

// Detect scores itemText against the ambiguous-noun table. contextText is
// the full surrounding message and is searched for disambiguating keywords.
func (d *Detector) Detect(itemText string, amount decimal.Decimal, contextText string) Result {
	noun, ok := HeadNoun(itemText)
	if !ok {
		return Result{}
	}

	var entry ambiguousEntry
	for _, e := range ambiguousNouns {
		if e.Noun == noun {
			entry = e
			break
		}
	}

	context := strings.ToLower(contextText)
	amt, _ := amount.Float64()

	type scored struct {
		cat   category.Category
		score int
		order int
	}
	scores := make([]scored, 0, len(entry.Candidates))
	for i, c := range entry.Candidates {
		score := c.Base
		for _, kw := range c.Keywords {
			if strings.Contains(context, kw) {
				score += keywordBonus
				break
			}
		}
		if band, ok := priceBands[c.Category]; ok && amt >= band.Min && amt <= band.Max {
			score += priceBandBonus
			if amt >= band.Typical*0.5 && amt <= band.Typical*1.5 {
				score += nearTypicalBonus
			}
		}
		if score > 100 {
			score = 100
		}
		scores = append(scores, scored{cat: c.Category, score: score, order: i})
	}

	// Stable ordering: score descending, table position breaking ties.
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].order < scores[j].order
	})

	top := scores[0]
	gap := top.score
	if len(scores) > 1 {
		gap = top.score - scores[1].score
	}
	if top.score >= confidentScore || gap >= decisiveGap {
		return Result{Ambiguous: true, Category: top.cat, Noun: noun}
	}

	options := make([]Option, 0, maxOptions+1)
	for _, s := range scores {
		if s.score < relevanceFloor || len(options) == maxOptions {
			continue
		}
		options = append(options, Option{
			Category:   s.cat,
			Label:      s.cat.Label(),
			Example:    s.cat.Example(),
			Confidence: s.score,
		})
	}
	options = append(options, Option{
		Category:   category.Uncategorized,
		Label:      "Something else",
		Example:    category.Uncategorized.Example(),
		Confidence: 0,
	})

	return Result{
		Ambiguous:          true,
		NeedsClarification: true,
		Noun:               noun,
		Options:            options,
	}
}
