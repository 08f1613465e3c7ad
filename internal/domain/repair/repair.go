// Package repair guards against the upstream intent classifier mis-tagging
// expense messages. Repair never raises: any internal failure degrades to
// returning the original classification unchanged.
package repair

import (
	"log/slog"
	"regexp"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/khoroch-app/khoroch/internal/domain/category"
	"github.com/khoroch-app/khoroch/internal/domain/parser"
)

// IntentAddExpense is the intent tag repair may force when a message is
// clearly an expense.
const IntentAddExpense = "add_expense"

var (
	repairActivations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "khoroch_repair_activations_total",
		Help: "Messages whose intent classification was repaired to add_expense.",
	})
	repairRecoveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "khoroch_repair_recovered_panics_total",
		Help: "Internal repair failures swallowed by the circuit breaker.",
	})
)

var expenseVerbRe = regexp.MustCompile(`(?i)\b(?:spent|spend|pay|paid|pays|buy|buys|bought|cost|costs|bill)\b|খরচ|কিনলাম`)

// Result is the possibly-repaired classification.
type Result struct {
	Intent   string
	Amount   *decimal.Decimal
	Category category.Category
}

// Detector decides whether free text is expense-like and repairs
// mis-classified intents.
type Detector struct {
	amounts    *parser.AmountNormalizer
	categories *category.Engine
	logger     *slog.Logger
}

// NewDetector wires the detector to the shared amount normalizer and
// keyword engine.
func NewDetector(amounts *parser.AmountNormalizer, categories *category.Engine, logger *slog.Logger) *Detector {
	return &Detector{amounts: amounts, categories: categories, logger: logger}
}

// LooksLikeExpense is true only when the text contains both an
// expense-indicating verb and a detectable amount.
func (d *Detector) LooksLikeExpense(text string) bool {
	if !expenseVerbRe.MatchString(text) {
		return false
	}
	_, ok := d.amounts.Extract(text)
	return ok
}

// Repair re-examines a classified message. When the upstream intent is not
// add_expense but the text looks like an expense and an amount can be found,
// the intent is forced to add_expense. When no amount can be found the
// original classification is left untouched; a bad repair is worse than no
// repair. The returned category is always folded through category.Normalize.
//
// Repair has a guaranteed no-throw contract: any internal panic is recovered
// and the original inputs are returned unchanged.
func (d *Detector) Repair(text, originalIntent string, originalAmount *decimal.Decimal, originalCategory string) (result Result) {
	result = Result{
		Intent:   originalIntent,
		Amount:   originalAmount,
		Category: category.Normalize(originalCategory),
	}

	defer func() {
		if r := recover(); r != nil {
			repairRecoveries.Inc()
			d.logger.Warn("repair circuit breaker tripped", slog.Any("panic", r))
			result = Result{
				Intent:   originalIntent,
				Amount:   originalAmount,
				Category: category.Normalize(originalCategory),
			}
		}
	}()

	if originalIntent == IntentAddExpense || !d.LooksLikeExpense(text) {
		return result
	}

	amount := originalAmount
	if amount == nil || !amount.IsPositive() {
		extracted, ok := d.amounts.Extract(text)
		if !ok {
			// No amount, no repair.
			return result
		}
		amount = &extracted.Amount
	}

	cat := category.Normalize(originalCategory)
	if cat == category.Uncategorized {
		cat = d.categories.Guess(text)
	}

	repairActivations.Inc()
	d.logger.Info("repaired mis-classified expense message",
		slog.String("original_intent", originalIntent),
		slog.String("category", cat.String()),
	)

	return Result{
		Intent:   IntentAddExpense,
		Amount:   amount,
		Category: cat,
	}
}
