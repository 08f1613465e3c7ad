package expense

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/khoroch-app/khoroch/internal/domain/category"
)

// Querier is the slice of pgxpool.Pool the store needs. Satisfied by
// *pgxpool.Pool and by pgxmock in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore writes expenses to the expenses table. The table carries its
// own CHECK constraint on source, mirroring the pipeline-level allow-list.
type PostgresStore struct {
	db Querier
}

func NewPostgresStore(db Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, req WriteRequest) error {
	query := `
		INSERT INTO expenses (
			user_id, amount_minor, currency, category, description,
			merchant, source, idempotency_key, message_id, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (idempotency_key) DO NOTHING
	`
	_, err := s.db.Exec(ctx, query,
		req.UserID, req.AmountMinor, req.Currency, req.Category.String(),
		req.Description, req.Merchant, req.Source, req.IdempotencyKey,
		req.MessageID, req.OccurredAt,
	)
	return err
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, userID, idempotencyKey string, cat category.Category) error {
	query := `
		UPDATE expenses SET category = $3, updated_at = now()
		WHERE user_id = $1 AND idempotency_key = $2
	`
	result, err := s.db.Exec(ctx, query, userID, idempotencyKey, cat.String())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, userID string, limit int) ([]WriteRequest, error) {
	query := `
		SELECT user_id, amount_minor, currency, category, description,
			merchant, source, idempotency_key, message_id, occurred_at
		FROM expenses
		WHERE user_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`
	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []WriteRequest
	for rows.Next() {
		var e WriteRequest
		var cat string
		if err := rows.Scan(
			&e.UserID, &e.AmountMinor, &e.Currency, &cat, &e.Description,
			&e.Merchant, &e.Source, &e.IdempotencyKey, &e.MessageID, &e.OccurredAt,
		); err != nil {
			return nil, err
		}
		e.Category = category.Category(cat)
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// SourceCheckActive verifies the expenses table still carries its source
// CHECK constraint. The application-level gate and this constraint are
// intentionally redundant.
func (s *PostgresStore) SourceCheckActive(ctx context.Context) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM pg_constraint
			WHERE conname = 'expenses_source_allowed' AND contype = 'c'
		)
	`
	var active bool
	if err := s.db.QueryRow(ctx, query).Scan(&active); err != nil {
		return false, err
	}
	return active, nil
}
