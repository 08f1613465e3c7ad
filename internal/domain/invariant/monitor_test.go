package invariant

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoroch-app/khoroch/internal/domain/category"
	"github.com/khoroch-app/khoroch/internal/domain/expense"
)

func validRequest() expense.WriteRequest {
	return expense.WriteRequest{
		UserID:         "u1",
		AmountMinor:    25000,
		Currency:       "BDT",
		Category:       category.Food,
		Description:    "lunch",
		Source:         "chat_pipeline",
		IdempotencyKey: "idem-1",
		MessageID:      "msg-1",
		OccurredAt:     time.Now(),
	}
}

func TestValidatePasses(t *testing.T) {
	m := NewMonitor("chat_pipeline", slog.New(slog.DiscardHandler))
	assert.NoError(t, m.Validate(validRequest()))
}

func TestValidateRejections(t *testing.T) {
	m := NewMonitor("chat_pipeline", slog.New(slog.DiscardHandler))

	tests := []struct {
		name   string
		mutate func(*expense.WriteRequest)
		kind   Kind
	}{
		{"disallowed source", func(r *expense.WriteRequest) { r.Source = "messenger" }, KindSourceNotAllowed},
		{"empty source", func(r *expense.WriteRequest) { r.Source = "" }, KindSourceNotAllowed},
		{"missing idempotency key", func(r *expense.WriteRequest) { r.IdempotencyKey = "" }, KindMissingIdempotency},
		{"missing user", func(r *expense.WriteRequest) { r.UserID = "" }, KindMissingUser},
		{"zero amount", func(r *expense.WriteRequest) { r.AmountMinor = 0 }, KindNonPositiveAmount},
		{"negative amount", func(r *expense.WriteRequest) { r.AmountMinor = -100 }, KindNonPositiveAmount},
		{"non-canonical category", func(r *expense.WriteRequest) { r.Category = "weird" }, KindNonCanonicalCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			err := m.Validate(req)
			var v *Violation
			require.ErrorAs(t, err, &v)
			assert.Equal(t, tt.kind, v.Kind)
		})
	}
}

func TestValidateAllowsSentinel(t *testing.T) {
	m := NewMonitor("chat_pipeline", slog.New(slog.DiscardHandler))

	req := validRequest()
	req.Category = category.PendingClarification
	assert.NoError(t, m.Validate(req))
}

type stubStore struct {
	expense.Store
	active bool
	err    error
}

func (s *stubStore) SourceCheckActive(context.Context) (bool, error) {
	return s.active, s.err
}

func TestCheckStorage(t *testing.T) {
	m := NewMonitor("chat_pipeline", slog.New(slog.DiscardHandler))
	ctx := context.Background()

	assert.Equal(t, HealthOK, m.CheckStorage(ctx, &stubStore{active: true}))
	assert.Equal(t, HealthDegraded, m.CheckStorage(ctx, &stubStore{active: false}))
	assert.Equal(t, HealthDegraded, m.CheckStorage(ctx, &stubStore{err: errors.New("db down")}))
}
