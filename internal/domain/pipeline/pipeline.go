// Package pipeline wires the parsing, ambiguity, clarification, preference
// and invariant components into the two entry points the transport layer
// calls: ParseAndClassify for new messages and ResolveClarification for
// replies to a pending question.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/khoroch-app/khoroch/internal/domain/ambiguity"
	"github.com/khoroch-app/khoroch/internal/domain/category"
	"github.com/khoroch-app/khoroch/internal/domain/clarify"
	"github.com/khoroch-app/khoroch/internal/domain/expense"
	"github.com/khoroch-app/khoroch/internal/domain/invariant"
	"github.com/khoroch-app/khoroch/internal/domain/parser"
	"github.com/khoroch-app/khoroch/internal/domain/prefs"
	"github.com/khoroch-app/khoroch/internal/domain/repair"
	"github.com/khoroch-app/khoroch/pkg/money"
)

// Status is the outcome class of a pipeline invocation.
type Status string

const (
	StatusWrite     Status = "write"
	StatusClarify   Status = "clarify"
	StatusNoExpense Status = "no_expense_found"
)

// noExpenseHint is the corrective message for unparseable input.
const noExpenseHint = `I couldn't find an expense there. Try something like "lunch 250" or "spent 500 taka on groceries".`

// Result is the pipeline's answer to the transport layer. Requests holds
// every write produced by the message; multi-item messages produce several.
type Result struct {
	Status   Status                 `json:"status"`
	Requests []expense.WriteRequest `json:"requests,omitempty"`
	Message  string                 `json:"message,omitempty"`
}

// Message is one inbound chat message.
type Message struct {
	UserID    string
	MessageID string
	Text      string
	// CorrectionContext marks the message as a reply to a prior ambiguous
	// or incorrect expense.
	CorrectionContext bool
}

// Pipeline owns one logical invocation per inbound message. Parsing and
// classification are stateless; the only cross-message state is the
// clarification store and the preference store.
type Pipeline struct {
	parser     *parser.Parser
	repairer   *repair.Detector
	ambiguity  *ambiguity.Detector
	dialogue   *clarify.Machine
	prefs      prefs.Store
	invariants *invariant.Monitor
	expenses   expense.Store

	source          string
	defaultCurrency string
	tracer          trace.Tracer
	logger          *slog.Logger
	now             func() time.Time
}

// Config carries the pipeline's collaborators and settings.
type Config struct {
	Parser     *parser.Parser
	Repairer   *repair.Detector
	Ambiguity  *ambiguity.Detector
	Dialogue   *clarify.Machine
	Prefs      prefs.Store
	Invariants *invariant.Monitor
	Expenses   expense.Store

	Source          string
	DefaultCurrency string
	Logger          *slog.Logger
}

func New(cfg Config) *Pipeline {
	return &Pipeline{
		parser:          cfg.Parser,
		repairer:        cfg.Repairer,
		ambiguity:       cfg.Ambiguity,
		dialogue:        cfg.Dialogue,
		prefs:           cfg.Prefs,
		invariants:      cfg.Invariants,
		expenses:        cfg.Expenses,
		source:          cfg.Source,
		defaultCurrency: cfg.DefaultCurrency,
		tracer:          otel.Tracer("khoroch/pipeline"),
		logger:          cfg.Logger,
		now:             time.Now,
	}
}

// HasPendingClarification lets the transport route a message to
// ResolveClarification before any other handling.
func (p *Pipeline) HasPendingClarification(userID string) bool {
	return p.dialogue.HasPending(userID)
}

// ParseAndClassify runs the full interpretation pipeline for one message.
// The returned error is non-nil only for invariant violations and storage
// failures; "not an expense" is a Status, not an error.
func (p *Pipeline) ParseAndClassify(ctx context.Context, msg Message) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.parse_and_classify",
		trace.WithAttributes(attribute.String("user_id", msg.UserID)))
	defer span.End()

	items := p.parser.Parse(ctx, msg.Text, parser.Options{
		CorrectionContext: msg.CorrectionContext,
		Now:               p.now(),
	})
	if len(items) == 0 {
		if item := p.tryRepair(msg.Text); item != nil {
			items = []parser.Item{*item}
		}
	}
	if len(items) == 0 {
		span.SetAttributes(attribute.String("status", string(StatusNoExpense)))
		return Result{Status: StatusNoExpense, Message: noExpenseHint}, nil
	}
	span.SetAttributes(
		attribute.String("strategy", string(items[0].Strategy)),
		attribute.Int("items", len(items)),
	)

	var (
		requests       []expense.WriteRequest
		clarifyMessage string
	)
	for i, item := range items {
		item = p.fillDefaults(item)
		cat, ask := p.categorize(ctx, msg, item, clarifyMessage != "")

		req := p.buildRequest(msg, item, cat, i)
		if err := p.invariants.Validate(req); err != nil {
			span.RecordError(err)
			return Result{}, err
		}
		if err := p.expenses.Insert(ctx, req); err != nil {
			span.RecordError(err)
			return Result{}, fmt.Errorf("insert expense: %w", err)
		}
		requests = append(requests, req)

		if ask != nil {
			ask.IdempotencyKey = req.IdempotencyKey
			ask.MessageID = msg.MessageID
			clarifyMessage = p.dialogue.Ask(ask)
		}
	}

	if clarifyMessage != "" {
		span.SetAttributes(attribute.String("status", string(StatusClarify)))
		return Result{Status: StatusClarify, Requests: requests, Message: clarifyMessage}, nil
	}

	span.SetAttributes(attribute.String("status", string(StatusWrite)))
	return Result{
		Status:   StatusWrite,
		Requests: requests,
		Message:  confirmation(requests),
	}, nil
}

// tryRepair gives a mis-routed expense message a second chance: when the
// parser found nothing but the text still looks like an expense, build a
// single candidate from the repaired classification.
func (p *Pipeline) tryRepair(text string) *parser.Item {
	res := p.repairer.Repair(text, "unknown", nil, "")
	if res.Intent != repair.IntentAddExpense || res.Amount == nil {
		return nil
	}
	item := &parser.Item{
		Amount:        money.NormalizeDecimal(*res.Amount),
		RawText:       strings.TrimSpace(text),
		CategoryGuess: res.Category,
		Confidence:    60,
		Strategy:      parser.StrategySingleItem,
		Merchant:      parser.ExtractMerchant(text),
		OccurredAt:    parser.ResolveDate(text, p.now()),
	}
	// An explicit currency marker in the text survives repair; only its
	// absence falls through to the default.
	if cur, explicit := p.parser.Amounts().DetectCurrency(text); explicit {
		item.Currency = cur
	}
	return item
}

// fillDefaults resolves the inherit markers a correction-context item
// carries and defaults the currency for items parsed without one.
func (p *Pipeline) fillDefaults(item parser.Item) parser.Item {
	if item.Currency == "" {
		item.Currency = p.defaultCurrency
	}
	if item.OccurredAt.IsZero() {
		item.OccurredAt = p.now()
	}
	return item
}

// categorize decides the final category for one item. A learned preference
// always wins and skips ambiguity scoring entirely. At most one
// clarification is asked per message; later ambiguous items keep the
// sentinel silently.
func (p *Pipeline) categorize(ctx context.Context, msg Message, item parser.Item, alreadyAsking bool) (category.Category, *clarify.Pending) {
	noun, isAmbiguousNoun := ambiguity.HeadNoun(item.RawText)
	if isAmbiguousNoun {
		if learned, ok, err := p.prefs.Lookup(ctx, msg.UserID, noun); err != nil {
			p.logger.Warn("preference lookup failed", slog.Any("error", err))
		} else if ok {
			return learned, nil
		}
	}

	res := p.ambiguity.Detect(item.RawText, item.Amount, msg.Text)
	if !res.Ambiguous {
		return item.CategoryGuess, nil
	}
	if !res.NeedsClarification {
		return res.Category, nil
	}
	if alreadyAsking {
		// One question at a time; this item stays at the sentinel until the
		// user corrects it.
		return category.PendingClarification, nil
	}
	return category.PendingClarification, &clarify.Pending{
		UserID:       msg.UserID,
		Item:         res.Noun,
		Amount:       item.Amount,
		Currency:     item.Currency,
		OriginalText: msg.Text,
		Options:      res.Options,
	}
}

func (p *Pipeline) buildRequest(msg Message, item parser.Item, cat category.Category, index int) expense.WriteRequest {
	if cat == "" {
		// Correction-context items inherit no category guess.
		cat = category.Uncategorized
	}
	description := item.RawText
	if description == "" {
		description = msg.Text
	}
	return expense.WriteRequest{
		UserID:         msg.UserID,
		AmountMinor:    money.NewFromDecimal(item.Amount, item.Currency).AmountMinor(),
		Currency:       item.Currency,
		Category:       cat,
		Description:    description,
		Merchant:       item.Merchant,
		Source:         p.source,
		IdempotencyKey: idempotencyKey(msg.UserID, msg.MessageID, index),
		MessageID:      msg.MessageID,
		OccurredAt:     item.OccurredAt,
	}
}

// idempotencyKey is deterministic per logical write so a redelivered
// message maps to the same key and the storage layer absorbs the retry.
func idempotencyKey(userID, messageID string, index int) string {
	seed := fmt.Sprintf("%s|%s|%d", userID, messageID, index)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}

func confirmation(requests []expense.WriteRequest) string {
	if len(requests) == 1 {
		r := requests[0]
		return fmt.Sprintf("Recorded %s under %s.",
			money.New(r.AmountMinor, r.Currency).Display(), r.Category.Label())
	}
	parts := make([]string, len(requests))
	for i, r := range requests {
		parts[i] = fmt.Sprintf("%s (%s)",
			money.New(r.AmountMinor, r.Currency).Display(), r.Category.Label())
	}
	return fmt.Sprintf("Recorded %d expenses: %s.", len(requests), strings.Join(parts, ", "))
}

// ResolveClarification feeds the user's reply to the dialogue state machine.
// On resolution the provisional expense is reassigned and the choice is
// learned; the preference store is why the same question is not asked twice.
func (p *Pipeline) ResolveClarification(ctx context.Context, userID, reply string) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.resolve_clarification",
		trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	res := p.dialogue.Resolve(userID, reply)
	span.SetAttributes(attribute.Int("outcome", int(res.Outcome)))

	switch res.Outcome {
	case clarify.OutcomeResolved:
		if err := p.prefs.Learn(ctx, userID, res.Pending.Item, res.Category, res.Pending.OriginalText); err != nil {
			// Losing the preference is survivable; losing the expense update
			// is not, so keep going and only log.
			p.logger.Warn("failed to learn preference", slog.Any("error", err))
		}
		if err := p.expenses.UpdateCategory(ctx, userID, res.Pending.IdempotencyKey, res.Category); err != nil {
			span.RecordError(err)
			return Result{}, fmt.Errorf("update provisional expense: %w", err)
		}
		return Result{Status: StatusWrite, Message: res.Message}, nil
	case clarify.OutcomeReAsk:
		return Result{Status: StatusClarify, Message: res.Message}, nil
	case clarify.OutcomeExpired:
		return Result{
			Status:  StatusNoExpense,
			Message: "That question expired, so I left the expense uncategorized. You can correct it any time.",
		}, nil
	default:
		return Result{Status: StatusNoExpense, Message: noExpenseHint}, nil
	}
}
