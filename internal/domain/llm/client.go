// Package llm defines the contract with the external language-model
// capability. The capability may return any shape; this package validates it
// once at the boundary and converts garbage into a typed error instead of
// letting it propagate.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Client is the language-model extraction capability. Implementations may
// fail or return arbitrary shapes; callers must treat both the error and a
// ParseError from RawGuess.Parse as "strategy failed".
type Client interface {
	Extract(ctx context.Context, text string) (RawGuess, error)
}

// RawGuess is the undecoded response shape from the capability.
type RawGuess map[string]any

// ParseError classifies a malformed capability response.
type ParseError struct {
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed llm response: field %q %s", e.Field, e.Reason)
}

// Guess is the validated structured extraction result.
type Guess struct {
	Amount      decimal.Decimal
	Currency    string
	Category    string
	Description string
	Merchant    string
	Confidence  int
}

// Parse validates the raw response strictly. A usable guess must carry a
// positive numeric (or numeric-string) amount and a non-empty category.
// Anything else returns a *ParseError.
func (g RawGuess) Parse() (*Guess, error) {
	if g == nil {
		return nil, &ParseError{Field: "response", Reason: "is nil"}
	}

	amount, err := parseAmount(g["amount"])
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, &ParseError{Field: "amount", Reason: "must be positive"}
	}

	cat, ok := g["category"].(string)
	if !ok || strings.TrimSpace(cat) == "" {
		return nil, &ParseError{Field: "category", Reason: "missing or not a non-empty string"}
	}

	guess := &Guess{
		Amount:     amount,
		Category:   strings.TrimSpace(cat),
		Confidence: 90,
	}
	if s, ok := g["currency"].(string); ok {
		guess.Currency = strings.ToUpper(strings.TrimSpace(s))
	}
	if s, ok := g["description"].(string); ok {
		guess.Description = strings.TrimSpace(s)
	}
	if s, ok := g["merchant"].(string); ok {
		guess.Merchant = strings.TrimSpace(s)
	}
	if c, err := parseAmount(g["confidence"]); err == nil {
		v := int(c.IntPart())
		if v >= 0 && v <= 100 {
			guess.Confidence = v
		}
	}

	return guess, nil
}

// parseAmount accepts the numeric shapes JSON decoding can produce plus
// numeric strings. Everything else is a ParseError.
func parseAmount(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, &ParseError{Field: "amount", Reason: "is missing"}
	case float64:
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, &ParseError{Field: "amount", Reason: "is not numeric"}
		}
		return d, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Zero, &ParseError{Field: "amount", Reason: "is not a numeric string"}
		}
		return d, nil
	default:
		return decimal.Zero, &ParseError{Field: "amount", Reason: fmt.Sprintf("has unsupported type %T", v)}
	}
}
