// Package insights generates user-facing spending summaries from stored
// expenses. Every generated text passes through the contamination monitor
// before it is returned; findings are logged but never block the response.
package insights

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/khoroch-app/khoroch/internal/domain/category"
	"github.com/khoroch-app/khoroch/internal/domain/contamination"
	"github.com/khoroch-app/khoroch/internal/domain/expense"
	"github.com/khoroch-app/khoroch/pkg/money"
)

// summaryWindow bounds how many expenses feed one summary.
const summaryWindow = 50

// Summary is one generated spending report.
type Summary struct {
	Text    string                `json:"text"`
	Finding contamination.Finding `json:"finding"`
}

// Service builds summaries over the expense store.
type Service struct {
	expenses expense.Store
	monitor  *contamination.Monitor
	logger   *slog.Logger
}

func NewService(expenses expense.Store, monitor *contamination.Monitor, logger *slog.Logger) *Service {
	return &Service{expenses: expenses, monitor: monitor, logger: logger}
}

// SpendingSummary renders the user's recent spending grouped by currency
// and category.
// The contamination verdict rides along for observability; the text is
// returned even when flagged.
func (s *Service) SpendingSummary(ctx context.Context, userID string) (Summary, error) {
	recent, err := s.expenses.ListRecent(ctx, userID, summaryWindow)
	if err != nil {
		return Summary{}, fmt.Errorf("list expenses: %w", err)
	}
	if len(recent) == 0 {
		return Summary{Text: "No expenses recorded yet."}, nil
	}

	// Totals are bucketed per currency; amounts in different currencies
	// are never summed together.
	buckets := make(map[string]*bucket)
	var currencies []string
	var grand int64
	snap := contamination.Snapshot{}
	for _, e := range recent {
		bk, ok := buckets[e.Currency]
		if !ok {
			bk = &bucket{totals: make(map[category.Category]int64)}
			buckets[e.Currency] = bk
			currencies = append(currencies, e.Currency)
		}
		bk.totals[e.Category] += e.AmountMinor
		bk.grand += e.AmountMinor
		grand += e.AmountMinor
		snap.Categories = append(snap.Categories, e.Category)
		snap.Amounts = append(snap.Amounts, decimal.New(e.AmountMinor, -2))
	}
	snap.Total = decimal.New(grand, -2)

	requestID := s.monitor.LogRequest(userID, snap)
	text := renderSummary(currencies, buckets, len(recent))
	finding := s.monitor.CheckResponse(requestID, text)
	if finding.Contaminated {
		s.logger.Warn("summary flagged by contamination monitor",
			slog.String("user_id", userID),
			slog.Any("issues", finding.Issues),
		)
	}
	return Summary{Text: text, Finding: finding}, nil
}

// bucket accumulates one currency's share of the window.
type bucket struct {
	grand  int64
	totals map[category.Category]int64
}

// renderSummary walks currencies in first-seen order so repeated calls
// over the same window produce identical text.
func renderSummary(currencies []string, buckets map[string]*bucket, count int) string {
	parts := make([]string, 0, len(currencies))
	for _, cur := range currencies {
		parts = append(parts, money.New(buckets[cur].grand, cur).Display())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your last %d expenses total %s.\n", count, strings.Join(parts, " and "))

	type line struct {
		cat   category.Category
		minor int64
	}
	for _, cur := range currencies {
		bk := buckets[cur]
		lines := make([]line, 0, len(bk.totals))
		for cat, minor := range bk.totals {
			lines = append(lines, line{cat, minor})
		}
		sort.Slice(lines, func(i, j int) bool {
			if lines[i].minor != lines[j].minor {
				return lines[i].minor > lines[j].minor
			}
			return lines[i].cat < lines[j].cat
		})
		for _, l := range lines {
			fmt.Fprintf(&b, "- %s: %s\n", l.cat.Label(), money.New(l.minor, cur).Display())
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
