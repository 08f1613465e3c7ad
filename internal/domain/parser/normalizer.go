// Package parser turns free-form expense messages into candidate expense
// items. It hosts the amount/currency normalizer and the multi-strategy
// parser built on top of it.
package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/khoroch-app/khoroch/pkg/money"
)

// AmountResult is a detected amount with its currency.
type AmountResult struct {
	Amount   decimal.Decimal
	Currency string
}

// currencySymbols maps currency symbols to ISO codes. Symbol-adjacent
// detection is the highest-trust rule.
var currencySymbols = map[string]string{
	"৳": money.BDT,
	"$": money.USD,
	"€": money.EUR,
	"£": money.GBP,
	"₹": money.INR,
}

// currencyWords maps currency words and abbreviations to ISO codes.
var currencyWords = map[string]string{
	"taka":    money.BDT,
	"tk":      money.BDT,
	"bdt":     money.BDT,
	"টাকা":    money.BDT,
	"dollar":  money.USD,
	"dollars": money.USD,
	"bucks":   money.USD,
	"usd":     money.USD,
	"euro":    money.EUR,
	"euros":   money.EUR,
	"eur":     money.EUR,
	"pound":   money.GBP,
	"pounds":  money.GBP,
	"quid":    money.GBP,
	"gbp":     money.GBP,
	"rupee":   money.INR,
	"rupees":  money.INR,
	"inr":     money.INR,
}

// currencyWordAlt is the alternation of every currency word, longest first
// so e.g. "dollars" wins over "dollar" in regex matching.
const currencyWordAlt = `dollars|dollar|bucks|euros|euro|pounds|pound|rupees|rupee|quid|taka|টাকা|bdt|usd|eur|gbp|inr|tk`

var (
	bengaliDigits = strings.NewReplacer(
		"০", "0", "১", "1", "২", "2", "৩", "3", "৪", "4",
		"৫", "5", "৬", "6", "৭", "7", "৮", "8", "৯", "9",
	)

	multiplierRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*[kK]\b`)

	symbolAmountRe = regexp.MustCompile(`([৳$€£₹])\s*(\d+(?:\.\d+)?)`)
	amountSymbolRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([৳$€£₹])`)

	// ASCII \b does not delimit Bengali words, so boundaries are expressed
	// as consuming non-letter classes instead.
	amountWordRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(` + currencyWordAlt + `)(?:[^\pL\pN]|$)`)
	wordAmountRe = regexp.MustCompile(`(?i)(?:^|[^\pL\pN])(` + currencyWordAlt + `)\.?\s*(\d+(?:\.\d+)?)`)

	actionVerbRe = regexp.MustCompile(`(?i)(?:\b(?:spent|spend|paid|pay|bought|buy|costs|cost)\b|খরচ|কিনলাম|দিলাম)\D{0,40}?(\d+(?:\.\d+)?)`)

	numberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

	monthNames = []string{
		"january", "february", "march", "april", "may", "june", "july",
		"august", "september", "october", "november", "december",
		"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept",
		"oct", "nov", "dec",
	}
)

// AmountNormalizer extracts a numeric amount and currency from raw text.
type AmountNormalizer struct {
	defaultCurrency string
}

// NewAmountNormalizer creates a normalizer that falls back to
// defaultCurrency when text carries no currency marker.
func NewAmountNormalizer(defaultCurrency string) *AmountNormalizer {
	if !money.IsSupported(defaultCurrency) {
		defaultCurrency = money.BDT
	}
	return &AmountNormalizer{defaultCurrency: strings.ToUpper(defaultCurrency)}
}

// Preprocess transliterates non-Latin numerals to ASCII and expands trailing
// shorthand multipliers ("1.2k" becomes "1200") so every downstream rule
// sees plain ASCII numbers.
func Preprocess(text string) string {
	text = bengaliDigits.Replace(text)
	return multiplierRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := multiplierRe.FindStringSubmatch(m)
		d, err := decimal.NewFromString(sub[1])
		if err != nil {
			return m
		}
		return d.Mul(decimal.NewFromInt(1000)).String()
	})
}

// Extract applies the detection rules in strict priority order: currency
// symbol, currency word, action verb, first plausible number. Returns
// (nil, false) when no numeric token survives filtering; callers treat
// that as "no expense found", never as an error.
func (n *AmountNormalizer) Extract(text string) (*AmountResult, bool) {
	text = Preprocess(text)

	// Rule 1: currency symbol adjacent to digits.
	if m := symbolAmountRe.FindStringSubmatch(text); m != nil {
		return n.result(m[2], currencySymbols[m[1]])
	}
	if m := amountSymbolRe.FindStringSubmatch(text); m != nil {
		return n.result(m[1], currencySymbols[m[2]])
	}

	// Rule 2: currency word adjacent to digits, either word order.
	if m := amountWordRe.FindStringSubmatch(text); m != nil {
		return n.result(m[1], currencyWords[strings.ToLower(m[2])])
	}
	if m := wordAmountRe.FindStringSubmatch(text); m != nil {
		return n.result(m[2], currencyWords[strings.ToLower(m[1])])
	}

	// Rule 3: spend/pay/buy verb followed by a number.
	if m := actionVerbRe.FindStringSubmatch(text); m != nil {
		return n.result(m[1], n.defaultCurrency)
	}

	// Rule 4: first plausible numeric token.
	for _, loc := range numberRe.FindAllStringIndex(text, -1) {
		token := text[loc[0]:loc[1]]
		if looksLikeYear(token) || followedByMonth(text, loc[1]) {
			continue
		}
		return n.result(token, n.defaultCurrency)
	}

	return nil, false
}

// DetectCurrency reports the currency marker in text, if any.
func (n *AmountNormalizer) DetectCurrency(text string) (string, bool) {
	text = Preprocess(text)
	if m := symbolAmountRe.FindStringSubmatch(text); m != nil {
		return currencySymbols[m[1]], true
	}
	if m := amountSymbolRe.FindStringSubmatch(text); m != nil {
		return currencySymbols[m[2]], true
	}
	if m := amountWordRe.FindStringSubmatch(text); m != nil {
		return currencyWords[strings.ToLower(m[2])], true
	}
	if m := wordAmountRe.FindStringSubmatch(text); m != nil {
		return currencyWords[strings.ToLower(m[1])], true
	}
	return n.defaultCurrency, false
}

// DefaultCurrency returns the configured fallback currency.
func (n *AmountNormalizer) DefaultCurrency() string { return n.defaultCurrency }

func (n *AmountNormalizer) result(token, currency string) (*AmountResult, bool) {
	d, err := decimal.NewFromString(token)
	if err != nil || !d.IsPositive() {
		return nil, false
	}
	if currency == "" {
		currency = n.defaultCurrency
	}
	return &AmountResult{Amount: money.NormalizeDecimal(d), Currency: currency}, true
}

// looksLikeYear filters integer tokens in the calendar-year range.
func looksLikeYear(token string) bool {
	if strings.Contains(token, ".") || len(token) != 4 {
		return false
	}
	return token >= "1900" && token <= "2100"
}

// followedByMonth reports whether the text right after offset names a month.
func followedByMonth(text string, offset int) bool {
	rest := strings.ToLower(strings.TrimLeft(text[offset:], " ,.-/"))
	for _, m := range monthNames {
		if strings.HasPrefix(rest, m) {
			return true
		}
	}
	return false
}
