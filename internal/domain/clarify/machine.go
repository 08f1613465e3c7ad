// Package clarify implements the clarification dialogue: when an expense
// item is ambiguous the pipeline suspends categorization, asks the user a
// numbered multiple-choice question, and resolves the reply on their next
// message. State lives in a per-user TTL store, never in the conversation.
package clarify

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/khoroch-app/khoroch/internal/domain/ambiguity"
	"github.com/khoroch-app/khoroch/internal/domain/category"
)

// Dialogue states. A user with no store entry is in StateNone.
type State string

const (
	StateNone     State = "none"
	StateAwaiting State = "awaiting_clarification"
	StateResolved State = "resolved"
	StateExpired  State = "expired"
)

// Outcome classifies the result of feeding a user reply to Resolve.
type Outcome int

const (
	// OutcomeNoPending means the user had no live clarification.
	OutcomeNoPending Outcome = iota
	// OutcomeResolved means the reply selected a category.
	OutcomeResolved
	// OutcomeReAsk means the reply was unparseable; the question repeats.
	OutcomeReAsk
	// OutcomeExpired means the entry lapsed before the reply arrived.
	OutcomeExpired
)

// Resolution is the state machine's answer for one user reply.
type Resolution struct {
	Outcome  Outcome
	Category category.Category
	Pending  *Pending
	// Message is user-facing: the confirmation on resolve, or the repeated
	// question on re-ask.
	Message string
}

// Machine drives the dialogue state transitions over a Store.
type Machine struct {
	store  *Store
	logger *slog.Logger
}

func NewMachine(store *Store, logger *slog.Logger) *Machine {
	return &Machine{store: store, logger: logger}
}

// Store exposes the underlying TTL store for sweeping.
func (m *Machine) Store() *Store { return m.store }

// Ask transitions the user into StateAwaiting: persists the pending entry
// (superseding any prior one) and returns the question to send back.
func (m *Machine) Ask(p *Pending) string {
	m.store.Put(p)
	m.logger.Info("clarification requested",
		slog.String("user_id", p.UserID),
		slog.String("item", p.Item),
	)
	return Question(p)
}

// Question renders the numbered multiple-choice message for a pending entry.
func Question(p *Pending) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I recorded %s %s for %q, but I'm not sure of the category. Which one fits?\n",
		p.Amount.StringFixed(2), p.Currency, p.Item)
	for i, opt := range p.Options {
		fmt.Fprintf(&b, "%d. %s (e.g. %s)\n", i+1, opt.Label, opt.Example)
	}
	b.WriteString("Reply with a number or the category name.")
	return b.String()
}

// HasPending reports whether the user is currently in StateAwaiting.
func (m *Machine) HasPending(userID string) bool {
	p, _ := m.store.Get(userID)
	return p != nil
}

// Resolve feeds a user reply into the state machine. The whole
// lookup-parse-delete sequence runs under the user's stripe lock so two
// concurrent replies cannot both claim the same pending entry.
func (m *Machine) Resolve(userID, reply string) Resolution {
	var res Resolution
	m.store.WithUser(userID, func() {
		res = m.resolveLocked(userID, reply)
	})
	return res
}

func (m *Machine) resolveLocked(userID, reply string) Resolution {
	p, expired := m.store.Get(userID)
	if p == nil {
		if expired {
			m.logger.Info("clarification expired before reply", slog.String("user_id", userID))
			return Resolution{Outcome: OutcomeExpired}
		}
		return Resolution{Outcome: OutcomeNoPending}
	}

	opt, ok := matchReply(reply, p.Options)
	if !ok {
		// No transition. Ask again with the same options.
		return Resolution{
			Outcome: OutcomeReAsk,
			Pending: p,
			Message: "Sorry, I didn't catch that.\n" + Question(p),
		}
	}

	m.store.Delete(userID)
	m.logger.Info("clarification resolved",
		slog.String("user_id", userID),
		slog.String("item", p.Item),
		slog.String("category", opt.Category.String()),
	)
	return Resolution{
		Outcome:  OutcomeResolved,
		Category: opt.Category,
		Pending:  p,
		Message: fmt.Sprintf("Got it, %q filed under %s. I'll remember that for next time.",
			p.Item, opt.Category.Label()),
	}
}

// matchReply resolves a free-text reply to one of the offered options:
// first as a bare 1-based position, then by matching the text against each
// option's category name, label and synonym set. Matching is strict
// substring plus a one-edit misspelling of the category name; anything
// looser would let filler replies like "no" select a category.
func matchReply(reply string, options []ambiguity.Option) (ambiguity.Option, bool) {
	cleaned := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(reply), ".!"))
	if n, err := strconv.Atoi(cleaned); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1], true
		}
		return ambiguity.Option{}, false
	}

	lowered := strings.ToLower(cleaned)
	for _, opt := range options {
		name := strings.ToLower(opt.Category.String())
		label := strings.ToLower(opt.Label)
		if strings.Contains(lowered, name) || strings.Contains(lowered, label) {
			return opt, true
		}
		if len([]rune(lowered)) >= 5 && fuzzy.LevenshteinDistance(lowered, name) <= 1 {
			return opt, true
		}
	}

	// Synonym folding: "medicines" resolves to health even though no option
	// label contains that word.
	if cat := category.Normalize(lowered); cat != category.Uncategorized {
		for _, opt := range options {
			if opt.Category == cat {
				return opt, true
			}
		}
	}

	// "something else" style replies pick the catch-all option when present.
	if strings.Contains(lowered, "else") || strings.Contains(lowered, "other") || strings.Contains(lowered, "none") {
		for _, opt := range options {
			if opt.Category == category.Uncategorized {
				return opt, true
			}
		}
	}

	return ambiguity.Option{}, false
}
