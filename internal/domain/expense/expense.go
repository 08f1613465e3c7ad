// Package expense defines the pipeline's output contract to storage: the
// write request and the idempotent store that accepts it.
package expense

import (
	"context"
	"time"

	"github.com/khoroch-app/khoroch/internal/domain/category"
)

// WriteRequest is a fully validated expense ready for storage. It is built
// only by the pipeline and checked by the invariant monitor before leaving.
type WriteRequest struct {
	UserID         string            `json:"user_id"`
	AmountMinor    int64             `json:"amount_minor"`
	Currency       string            `json:"currency"`
	Category       category.Category `json:"category"`
	Description    string            `json:"description"`
	Merchant       *string           `json:"merchant,omitempty"`
	Source         string            `json:"source"`
	IdempotencyKey string            `json:"idempotency_key"`
	MessageID      string            `json:"message_id"`
	OccurredAt     time.Time         `json:"occurred_at"`
}

// Store persists expenses. Insert is idempotent on IdempotencyKey: a retried
// write is absorbed, never duplicated.
type Store interface {
	Insert(ctx context.Context, req WriteRequest) error
	// UpdateCategory reassigns the category of a previously written expense,
	// used when a clarification resolves a provisional sentinel write.
	UpdateCategory(ctx context.Context, userID, idempotencyKey string, cat category.Category) error
	// ListRecent returns the user's most recent expenses, newest first.
	ListRecent(ctx context.Context, userID string, limit int) ([]WriteRequest, error)
	// SourceCheckActive reports whether the storage layer's own source
	// allow-list enforcement is still in place.
	SourceCheckActive(ctx context.Context) (bool, error)
}
