package parser

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/khoroch-app/khoroch/internal/domain/category"
	"github.com/khoroch-app/khoroch/internal/domain/llm"
	"github.com/khoroch-app/khoroch/pkg/money"
)

// Strategy identifies which parsing strategy produced a candidate item.
type Strategy string

const (
	StrategyLLM        Strategy = "llm"
	StrategyMultiItem  Strategy = "multi_item_regex"
	StrategySingleItem Strategy = "single_item_regex"
	StrategyCorrection Strategy = "correction_context"
)

// Item is a candidate expense item produced by one parse attempt.
// Correction-context items leave Currency, CategoryGuess and Merchant empty,
// signaling "inherit from the expense being corrected".
type Item struct {
	Amount        decimal.Decimal
	Currency      string
	RawText       string
	CategoryGuess category.Category
	Confidence    int
	Strategy      Strategy
	Merchant      *string
	OccurredAt    time.Time
}

// Options controls a single parse invocation.
type Options struct {
	// CorrectionContext flags the message as a reply to a prior ambiguous
	// or incorrect expense, enabling the bare-number strategy.
	CorrectionContext bool
	// Now is the reference timestamp for relative-date resolution.
	// Zero means time.Now().
	Now time.Time
}

var (
	// Two accepted single-item shapes: "description amount" and
	// "amount description", each tolerating a currency symbol beside the
	// number and a trailing or following currency word.
	descAmountRe = regexp.MustCompile(`(?i)^\s*(.*?\pL.*?)[\s:,\-]+([৳$€£₹])?\s*(\d+(?:\.\d+)?)\s*[৳$€£₹]?(?:\s*(?:` + currencyWordAlt + `))?\s*[.!]?\s*$`)
	amountDescRe = regexp.MustCompile(`(?i)^\s*([৳$€£₹])?\s*(\d+(?:\.\d+)?)\s*[৳$€£₹]?(?:\s*(?:` + currencyWordAlt + `))?\s+(.*?\pL.*?)\s*$`)

	// Bare number, optionally preceded by a currency symbol. Multipliers are
	// already expanded by Preprocess.
	correctionRe = regexp.MustCompile(`^\s*[৳$€£₹]?\s*(\d+(?:\.\d+)?)\s*$`)

	listSeparators = strings.NewReplacer(" and ", ", ", " এবং ", ", ", " আর ", ", ")
)

// Parser orchestrates the parsing strategies in priority order.
type Parser struct {
	llm        llm.Client
	categories *category.Engine
	amounts    *AmountNormalizer
	logger     *slog.Logger
}

// New creates a multi-strategy parser. client may be nil, in which case the
// language-model strategy is skipped entirely.
func New(client llm.Client, categories *category.Engine, amounts *AmountNormalizer, logger *slog.Logger) *Parser {
	return &Parser{
		llm:        client,
		categories: categories,
		amounts:    amounts,
		logger:     logger,
	}
}

// Amounts exposes the normalizer for collaborators that need currency
// detection outside a full parse.
func (p *Parser) Amounts() *AmountNormalizer { return p.amounts }

// Parse extracts zero or more candidate expense items from text. It never
// returns an error; an empty slice means "this message is not an expense".
// Strategies short-circuit on the first one yielding a valid amount.
func (p *Parser) Parse(ctx context.Context, text string, opts Options) []Item {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	if items := p.tryLLM(ctx, text, now); len(items) > 0 {
		return items
	}
	if items := p.tryMultiItem(text, now); len(items) > 0 {
		return items
	}
	if item := p.parseFragment(text, now, 75, StrategySingleItem); item != nil {
		return []Item{*item}
	}
	if opts.CorrectionContext {
		if item := p.tryCorrection(text); item != nil {
			return []Item{*item}
		}
	}
	return nil
}

// tryLLM delegates to the language-model capability. Any transport error or
// malformed response is logged and treated as "strategy failed".
func (p *Parser) tryLLM(ctx context.Context, text string, now time.Time) []Item {
	if p.llm == nil {
		return nil
	}

	raw, err := p.llm.Extract(ctx, text)
	if err != nil {
		p.logger.Debug("llm strategy failed", slog.Any("error", err))
		return nil
	}
	guess, err := raw.Parse()
	if err != nil {
		p.logger.Debug("llm returned malformed guess", slog.Any("error", err))
		return nil
	}

	currency := guess.Currency
	if !money.IsSupported(currency) {
		if detected, ok := p.amounts.DetectCurrency(text); ok {
			currency = detected
		} else {
			currency = p.amounts.DefaultCurrency()
		}
	}

	rawText := guess.Description
	if rawText == "" {
		rawText = text
	}
	merchant := ExtractMerchant(text)
	if guess.Merchant != "" {
		m := guess.Merchant
		merchant = &m
	}

	return []Item{{
		Amount:        money.NormalizeDecimal(guess.Amount),
		Currency:      currency,
		RawText:       rawText,
		CategoryGuess: category.Normalize(guess.Category),
		Confidence:    guess.Confidence,
		Strategy:      StrategyLLM,
		Merchant:      merchant,
		OccurredAt:    ResolveDate(text, now),
	}}
}

// tryMultiItem splits "X and Y" lists into comma fragments and parses each
// one. Engages only when the message splits into at least two fragments.
func (p *Parser) tryMultiItem(text string, now time.Time) []Item {
	normalized := listSeparators.Replace(text)
	fragments := strings.Split(normalized, ",")

	var nonEmpty []string
	for _, f := range fragments {
		if strings.TrimSpace(f) != "" {
			nonEmpty = append(nonEmpty, f)
		}
	}
	if len(nonEmpty) < 2 {
		return nil
	}

	var items []Item
	for _, fragment := range nonEmpty {
		if item := p.parseFragment(fragment, now, 85, StrategyMultiItem); item != nil {
			items = append(items, *item)
		}
	}
	return items
}

// parseFragment applies the two regex shapes to one fragment and builds a
// candidate from the first shape yielding a positive amount.
func (p *Parser) parseFragment(fragment string, now time.Time, confidence int, strategy Strategy) *Item {
	pre := Preprocess(fragment)

	var desc, symbol, amountToken string
	if m := descAmountRe.FindStringSubmatch(pre); m != nil {
		desc, symbol, amountToken = m[1], m[2], m[3]
	} else if m := amountDescRe.FindStringSubmatch(pre); m != nil {
		symbol, amountToken, desc = m[1], m[2], m[3]
	} else {
		return nil
	}

	amount, err := decimal.NewFromString(amountToken)
	if err != nil || !amount.IsPositive() {
		return nil
	}

	currency := ""
	if symbol != "" {
		currency = currencySymbols[symbol]
	}
	if currency == "" {
		currency, _ = p.amounts.DetectCurrency(fragment)
	}

	desc = strings.TrimSpace(desc)
	return &Item{
		Amount:        money.NormalizeDecimal(amount),
		Currency:      currency,
		RawText:       desc,
		CategoryGuess: p.categories.Guess(fragment),
		Confidence:    confidence,
		Strategy:      strategy,
		Merchant:      ExtractMerchant(fragment),
		OccurredAt:    ResolveDate(fragment, now),
	}
}

// tryCorrection accepts a bare number as a correction to a prior expense.
func (p *Parser) tryCorrection(text string) *Item {
	m := correctionRe.FindStringSubmatch(Preprocess(text))
	if m == nil {
		return nil
	}
	amount, err := decimal.NewFromString(m[1])
	if err != nil || !amount.IsPositive() {
		return nil
	}
	return &Item{
		Amount:     money.NormalizeDecimal(amount),
		RawText:    strings.TrimSpace(text),
		Confidence: 95,
		Strategy:   StrategyCorrection,
	}
}
