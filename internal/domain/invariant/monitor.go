// Package invariant gates every expense write request. Violations are loud,
// classified errors that must reach the caller; they indicate a programming
// error upstream, never a transient condition, so nothing here retries.
package invariant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/khoroch-app/khoroch/internal/domain/category"
	"github.com/khoroch-app/khoroch/internal/domain/expense"
)

// Kind classifies a violation for counters and audit logs.
type Kind string

const (
	KindSourceNotAllowed     Kind = "source_not_allowed"
	KindMissingIdempotency   Kind = "missing_idempotency_key"
	KindMissingUser          Kind = "missing_user_id"
	KindNonPositiveAmount    Kind = "non_positive_amount"
	KindNonCanonicalCategory Kind = "non_canonical_category"
)

// Violation is a classified invariant failure. It blocks the write.
type Violation struct {
	Kind  Kind
	Field string
	// Detail carries audit context. Never raw message text or amounts tied
	// to a user; violations are logged, not scrubbed later.
	Detail string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("invariant violation (%s) on %s: %s", v.Kind, v.Field, v.Detail)
}

// Health states reported by CheckStorage.
const (
	HealthOK       = "OK"
	HealthDegraded = "DEGRADED"
)

var (
	violationCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "khoroch_invariant_violations_total",
		Help: "Write requests rejected by the single-writer invariant monitor.",
	}, []string{"kind"})
	storageEnforcement = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "khoroch_storage_source_check_active",
		Help: "1 when the storage layer's own source allow-list is enforced.",
	})
)

// Monitor validates write requests against the single-writer invariants.
type Monitor struct {
	allowedSource string
	logger        *slog.Logger
}

// NewMonitor builds a monitor for the one permitted source value.
func NewMonitor(allowedSource string, logger *slog.Logger) *Monitor {
	return &Monitor{allowedSource: allowedSource, logger: logger}
}

// Validate returns nil when req satisfies every invariant, or a *Violation
// describing the first failure. Uniqueness of the idempotency key is the
// storage layer's contract; only presence is checked here.
func (m *Monitor) Validate(req expense.WriteRequest) error {
	if req.Source != m.allowedSource {
		return m.reject(&Violation{
			Kind:   KindSourceNotAllowed,
			Field:  "source",
			Detail: fmt.Sprintf("%q is not the permitted source", req.Source),
		})
	}
	if req.IdempotencyKey == "" {
		return m.reject(&Violation{
			Kind:   KindMissingIdempotency,
			Field:  "idempotency_key",
			Detail: "empty",
		})
	}
	if req.UserID == "" {
		return m.reject(&Violation{
			Kind:   KindMissingUser,
			Field:  "user_id",
			Detail: "empty",
		})
	}
	if req.AmountMinor <= 0 {
		return m.reject(&Violation{
			Kind:   KindNonPositiveAmount,
			Field:  "amount_minor",
			Detail: fmt.Sprintf("%d", req.AmountMinor),
		})
	}
	// The sentinel is permitted: provisional writes carry it until the
	// clarification dialogue resolves.
	if !category.IsCanonical(req.Category) && req.Category != category.PendingClarification {
		return m.reject(&Violation{
			Kind:   KindNonCanonicalCategory,
			Field:  "category",
			Detail: req.Category.String(),
		})
	}
	return nil
}

func (m *Monitor) reject(v *Violation) error {
	violationCounter.WithLabelValues(string(v.Kind)).Inc()
	m.logger.Error("write request rejected",
		slog.String("kind", string(v.Kind)),
		slog.String("field", v.Field),
		slog.String("detail", v.Detail),
	)
	return v
}

// CheckStorage independently verifies the storage layer's defense-in-depth
// source enforcement and returns HealthOK or HealthDegraded. A probe error
// counts as degraded; assuming enforcement without evidence defeats the
// point of the redundancy.
func (m *Monitor) CheckStorage(ctx context.Context, store expense.Store) string {
	active, err := store.SourceCheckActive(ctx)
	if err != nil {
		m.logger.Warn("storage enforcement probe failed", slog.Any("error", err))
		storageEnforcement.Set(0)
		return HealthDegraded
	}
	if !active {
		m.logger.Error("storage layer source allow-list is not enforced")
		storageEnforcement.Set(0)
		return HealthDegraded
	}
	storageEnforcement.Set(1)
	return HealthOK
}
