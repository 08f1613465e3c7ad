package ambiguity

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoroch-app/khoroch/internal/domain/category"
)

func TestDetectNotAmbiguous(t *testing.T) {
	d := NewDetector()

	res := d.Detect("lunch", decimal.NewFromInt(250), "spent 250 on lunch")
	assert.False(t, res.Ambiguous)
	assert.False(t, res.NeedsClarification)
}

func TestDetectAmbiguousNeedsClarification(t *testing.T) {
	d := NewDetector()

	res := d.Detect("mouse", decimal.NewFromInt(1500), "bought a mouse 1500")
	assert.True(t, res.Ambiguous)
	assert.True(t, res.NeedsClarification)
	assert.Equal(t, "mouse", res.Noun)

	require.NotEmpty(t, res.Options)
	// Trailing catch-all option is always present.
	last := res.Options[len(res.Options)-1]
	assert.Equal(t, category.Uncategorized, last.Category)
	assert.Equal(t, "Something else", last.Label)
	// Highest-scoring candidate first.
	assert.Equal(t, category.Shopping, res.Options[0].Category)
}

func TestDetectKeywordContextResolves(t *testing.T) {
	d := NewDetector()

	res := d.Detect("mouse", decimal.NewFromInt(1500), "bought a wireless mouse for my laptop 1500")
	assert.True(t, res.Ambiguous)
	assert.False(t, res.NeedsClarification)
	assert.Equal(t, category.Shopping, res.Category)
}

func TestDetectHeadNounStripping(t *testing.T) {
	d := NewDetector()

	// Articles, verbs and digits around the noun do not hide it.
	res := d.Detect("bought a new tablet 500", decimal.NewFromInt(500), "bought a new tablet 500")
	assert.True(t, res.Ambiguous)
	assert.Equal(t, "tablet", res.Noun)
}

func TestDetectDeterminism(t *testing.T) {
	d := NewDetector()

	first := d.Detect("glasses", decimal.NewFromInt(800), "glasses 800")
	for i := 0; i < 10; i++ {
		again := d.Detect("glasses", decimal.NewFromInt(800), "glasses 800")
		assert.Equal(t, first.NeedsClarification, again.NeedsClarification)
		require.Len(t, again.Options, len(first.Options))
		for j := range first.Options {
			assert.Equal(t, first.Options[j].Category, again.Options[j].Category)
			assert.Equal(t, first.Options[j].Confidence, again.Options[j].Confidence)
		}
	}
}

func TestDetectRelevanceFloor(t *testing.T) {
	d := NewDetector()

	res := d.Detect("mouse", decimal.NewFromInt(1500), "mouse 1500")
	require.True(t, res.NeedsClarification)
	for _, opt := range res.Options[:len(res.Options)-1] {
		assert.GreaterOrEqual(t, opt.Confidence, relevanceFloor)
	}
}

func TestDetectPriceBandInfluence(t *testing.T) {
	d := NewDetector()

	// A coach ticket priced like a typical fare leans transport; the decision
	// stays a clarification because the contest is close, but transport ranks
	// first.
	res := d.Detect("coach", decimal.NewFromInt(150), "coach 150")
	require.True(t, res.NeedsClarification)
	assert.Equal(t, category.Transport, res.Options[0].Category)
}
