package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromDecimal(t *testing.T) {
	t.Run("converts major units to minor units", func(t *testing.T) {
		m := NewFromDecimal(decimal.NewFromFloat(250.00), BDT)
		assert.Equal(t, int64(25000), m.AmountMinor())
		assert.Equal(t, BDT, m.Currency())
	})

	t.Run("rounds to currency fraction", func(t *testing.T) {
		m := NewFromDecimal(decimal.NewFromFloat(12.505), USD)
		assert.Equal(t, int64(1251), m.AmountMinor())
	})

	t.Run("unknown currency falls back to BDT fraction", func(t *testing.T) {
		m := NewFromDecimal(decimal.NewFromFloat(10), "XXX")
		assert.Equal(t, int64(1000), m.AmountMinor())
	})
}

func TestNewFromString(t *testing.T) {
	m, err := NewFromString("1200.50", BDT)
	require.NoError(t, err)
	assert.Equal(t, int64(120050), m.AmountMinor())

	_, err = NewFromString("not-a-number", BDT)
	assert.Error(t, err)
}

func TestNormalizeDecimal(t *testing.T) {
	d := NormalizeDecimal(decimal.NewFromFloat(1199.999))
	assert.Equal(t, "1200", d.String())

	d = NormalizeDecimal(decimal.NewFromFloat(250.125))
	assert.Equal(t, "250.13", d.String())
}

func TestMoneyArithmetic(t *testing.T) {
	a := New(10000, BDT)
	b := New(30000, BDT)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), sum.AmountMinor())

	t.Run("mismatched currencies error", func(t *testing.T) {
		_, err := a.Add(New(100, USD))
		assert.Error(t, err)
	})

	t.Run("nil receiver behaves as zero", func(t *testing.T) {
		var nilMoney *Money
		sum, err := nilMoney.Add(b)
		require.NoError(t, err)
		assert.True(t, sum.Equals(b))
	})
}

func TestSplit(t *testing.T) {
	m := New(10001, BDT)
	parts, err := m.Split(3)
	require.NoError(t, err)
	require.Len(t, parts, 3)

	var total int64
	for _, p := range parts {
		total += p.AmountMinor()
	}
	assert.Equal(t, int64(10001), total, "no minor unit lost in split")
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("bdt"))
	assert.True(t, IsSupported(" USD "))
	assert.False(t, IsSupported("JPY"))
	assert.False(t, IsSupported(""))
}

func TestString(t *testing.T) {
	assert.Equal(t, "250.00", New(25000, BDT).String())
	assert.Equal(t, "0.00", (*Money)(nil).String())
}
