// Package money provides currency-safe monetary values using integer minor
// units. It wraps go-money for arithmetic and shopspring/decimal for precise
// conversion at the parsing boundary.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency codes the pipeline recognizes (ISO-4217).
const (
	BDT = "BDT" // Bangladeshi Taka
	USD = "USD" // US Dollar
	EUR = "EUR" // Euro
	GBP = "GBP" // British Pound
	INR = "INR" // Indian Rupee
)

// SupportedCurrencies lists every code an expense may carry.
var SupportedCurrencies = []string{BDT, USD, EUR, GBP, INR}

// IsSupported reports whether code is one of the recognized currencies.
func IsSupported(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range SupportedCurrencies {
		if c == code {
			return true
		}
	}
	return false
}

// Money represents a monetary value in integer minor units with a currency.
type Money struct {
	m *money.Money
}

// New creates a Money value from minor units (paisa/cents) and a currency code.
func New(amountMinor int64, currencyCode string) *Money {
	return &Money{m: money.New(amountMinor, currencyCode)}
}

// NewFromDecimal creates Money from a decimal amount in major units.
// The amount is rounded to the currency's fraction before conversion.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currency = money.GetCurrency(BDT)
	}
	multiplier := decimal.New(1, int32(currency.Fraction))
	minor := amount.Mul(multiplier).Round(0).IntPart()
	return New(minor, currencyCode)
}

// NewFromString parses a plain decimal string ("250", "12.50") into Money.
// Currency symbols and thousands separators must already be stripped.
func NewFromString(amount, currencyCode string) (*Money, error) {
	amount = strings.TrimSpace(amount)
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return NewFromDecimal(d, currencyCode), nil
}

// NormalizeDecimal rounds an amount to exactly two decimal places, the
// precision every parsed expense carries.
func NormalizeDecimal(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// Zero returns a zero Money value for the given currency.
func Zero(currencyCode string) *Money {
	return New(0, currencyCode)
}

// AmountMinor returns the amount in minor units.
func (m *Money) AmountMinor() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 currency code.
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// IsZero returns true if the amount is zero.
func (m *Money) IsZero() bool {
	return m == nil || m.m == nil || m.m.IsZero()
}

// IsPositive returns true if the amount is greater than zero.
func (m *Money) IsPositive() bool {
	return m != nil && m.m != nil && m.m.IsPositive()
}

// Add adds two Money values. Returns an error if currencies differ.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		return other, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}
	result, err := m.m.Add(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// Equals returns true if both values carry the same amount and currency.
func (m *Money) Equals(other *Money) bool {
	if m == nil || m.m == nil {
		return other == nil || other.m == nil || other.IsZero()
	}
	if other == nil || other.m == nil {
		return m.IsZero()
	}
	eq, _ := m.m.Equals(other.m)
	return eq
}

// ToDecimal converts to a decimal amount in major units.
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	d := decimal.NewFromInt(m.m.Amount())
	divisor := decimal.New(1, int32(m.m.Currency().Fraction))
	return d.Div(divisor)
}

// Display returns a formatted string for user-facing messages.
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return "0.00"
	}
	return m.m.Display()
}

// String returns the amount as a decimal string (e.g. "250.00").
func (m *Money) String() string {
	if m == nil || m.m == nil {
		return "0.00"
	}
	return m.ToDecimal().StringFixed(2)
}

// Split divides money into n equal parts, distributing the remainder to the
// first parts so no minor unit is lost.
func (m *Money) Split(n int) ([]*Money, error) {
	if m == nil || m.m == nil {
		return nil, errors.New("cannot split nil money")
	}
	parts, err := m.m.Split(n)
	if err != nil {
		return nil, err
	}
	result := make([]*Money, len(parts))
	for i, p := range parts {
		result[i] = &Money{m: p}
	}
	return result, nil
}

// MarshalJSON encodes the value as {"amount_minor": ..., "currency": ...}.
func (m *Money) MarshalJSON() ([]byte, error) {
	if m == nil || m.m == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(map[string]any{
		"amount_minor": m.AmountMinor(),
		"currency":     m.Currency(),
	})
}

// UnmarshalJSON decodes {"amount_minor": ..., "currency": ...}.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		AmountMinor int64  `json:"amount_minor"`
		Currency    string `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	m.m = money.New(v.AmountMinor, v.Currency)
	return nil
}
