package repair

import (
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoroch-app/khoroch/internal/domain/category"
	"github.com/khoroch-app/khoroch/internal/domain/parser"
)

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	return NewDetector(parser.NewAmountNormalizer("BDT"), category.NewEngine(), slog.New(slog.DiscardHandler))
}

func TestLooksLikeExpense(t *testing.T) {
	d := newTestDetector(t)

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"verb and amount", "spent 250 taka on lunch", true},
		{"bengali verb and amount", "চা খেতে খরচ ৫০ টাকা", true},
		{"verb without amount", "I bought some fruit today", false},
		{"amount without verb", "the score was 250", false},
		{"neither", "how is the weather", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.LooksLikeExpense(tt.text))
		})
	}
}

func TestRepairForcesIntent(t *testing.T) {
	d := newTestDetector(t)

	res := d.Repair("spent 250 taka on lunch", "chitchat", nil, "")
	assert.Equal(t, IntentAddExpense, res.Intent)
	require.NotNil(t, res.Amount)
	assert.True(t, decimal.NewFromInt(250).Equal(*res.Amount))
	assert.Equal(t, category.Food, res.Category)
}

func TestRepairKeepsOriginalAmount(t *testing.T) {
	d := newTestDetector(t)

	amt := decimal.NewFromInt(300)
	res := d.Repair("paid 300 for the bus", "chitchat", &amt, "transport")
	assert.Equal(t, IntentAddExpense, res.Intent)
	assert.True(t, amt.Equal(*res.Amount))
	assert.Equal(t, category.Transport, res.Category)
}

func TestRepairLeavesNonExpensesAlone(t *testing.T) {
	d := newTestDetector(t)

	res := d.Repair("how much did the match end at", "chitchat", nil, "")
	assert.Equal(t, "chitchat", res.Intent)
	assert.Nil(t, res.Amount)
	assert.Equal(t, category.Uncategorized, res.Category)
}

func TestRepairNoAmountNoRepair(t *testing.T) {
	d := newTestDetector(t)

	// Expense verb present but nothing extractable as an amount.
	res := d.Repair("I bought groceries", "chitchat", nil, "")
	assert.Equal(t, "chitchat", res.Intent)
	assert.Nil(t, res.Amount)
}

func TestRepairAlreadyExpenseUntouched(t *testing.T) {
	d := newTestDetector(t)

	amt := decimal.NewFromInt(100)
	res := d.Repair("spent 100 on snacks", IntentAddExpense, &amt, "food")
	assert.Equal(t, IntentAddExpense, res.Intent)
	assert.True(t, amt.Equal(*res.Amount))
	assert.Equal(t, category.Food, res.Category)
}

func TestRepairNormalizesCategory(t *testing.T) {
	d := newTestDetector(t)

	res := d.Repair("spent 80 taka on medicine", "chitchat", nil, "FOOD & DRINK")
	assert.Equal(t, IntentAddExpense, res.Intent)
	assert.Equal(t, category.Food, res.Category)
}
