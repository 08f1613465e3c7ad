package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawGuessParse(t *testing.T) {
	t.Run("valid float amount", func(t *testing.T) {
		guess, err := RawGuess{"amount": 250.0, "category": "food", "currency": "bdt"}.Parse()
		require.NoError(t, err)
		assert.Equal(t, "250", guess.Amount.String())
		assert.Equal(t, "food", guess.Category)
		assert.Equal(t, "BDT", guess.Currency)
		assert.Equal(t, 90, guess.Confidence)
	})

	t.Run("numeric string amount", func(t *testing.T) {
		guess, err := RawGuess{"amount": "1200.50", "category": "shopping"}.Parse()
		require.NoError(t, err)
		assert.Equal(t, "1200.5", guess.Amount.String())
	})

	t.Run("json number amount", func(t *testing.T) {
		guess, err := RawGuess{"amount": json.Number("99"), "category": "bills"}.Parse()
		require.NoError(t, err)
		assert.Equal(t, "99", guess.Amount.String())
	})

	t.Run("confidence clamped to provided value", func(t *testing.T) {
		guess, err := RawGuess{"amount": 10.0, "category": "food", "confidence": 72.0}.Parse()
		require.NoError(t, err)
		assert.Equal(t, 72, guess.Confidence)
	})

	t.Run("rejects missing amount", func(t *testing.T) {
		_, err := RawGuess{"category": "food"}.Parse()
		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "amount", perr.Field)
	})

	t.Run("rejects non-numeric amount", func(t *testing.T) {
		_, err := RawGuess{"amount": []any{1, 2}, "category": "food"}.Parse()
		var perr *ParseError
		require.ErrorAs(t, err, &perr)
	})

	t.Run("rejects zero or negative amount", func(t *testing.T) {
		_, err := RawGuess{"amount": 0.0, "category": "food"}.Parse()
		assert.Error(t, err)
		_, err = RawGuess{"amount": -5.0, "category": "food"}.Parse()
		assert.Error(t, err)
	})

	t.Run("rejects empty category", func(t *testing.T) {
		_, err := RawGuess{"amount": 100.0, "category": "  "}.Parse()
		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "category", perr.Field)
	})

	t.Run("nil guess", func(t *testing.T) {
		_, err := RawGuess(nil).Parse()
		assert.Error(t, err)
	})
}

type slowClient struct {
	delay time.Duration
}

func (c *slowClient) Extract(ctx context.Context, _ string) (RawGuess, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.delay):
		return RawGuess{"amount": 100.0, "category": "food"}, nil
	}
}

func TestRateLimitedTimeout(t *testing.T) {
	client := NewRateLimited(&slowClient{delay: time.Second}, 60, 20*time.Millisecond)

	_, err := client.Extract(context.Background(), "lunch 100")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRateLimitedPassthrough(t *testing.T) {
	client := NewRateLimited(&slowClient{delay: time.Millisecond}, 600, time.Second)

	guess, err := client.Extract(context.Background(), "lunch 100")
	require.NoError(t, err)
	parsed, err := guess.Parse()
	require.NoError(t, err)
	assert.Equal(t, "food", parsed.Category)
}
