package prefs

import (
	"context"
	"errors"

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

// PostgresStore persists preferences in the user profile schema.
type PostgresStore struct {
	db Querier
}

func NewPostgresStore(db Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Learn(ctx context.Context, userID, item string, cat category.Category, contextText string) error {
	query := `
		INSERT INTO user_category_preferences (
			user_id, item_key, category, context_snapshot, confidence, corrections
		) VALUES ($1, $2, $3, $4, 100, 1)
		ON CONFLICT (user_id, item_key) DO UPDATE SET
			category = EXCLUDED.category,
			context_snapshot = EXCLUDED.context_snapshot,
			corrections = user_category_preferences.corrections + 1,
			learned_at = now()
	`
	if _, err := s.db.Exec(ctx, query, userID, NormalizeKey(item), cat.String(), contextText); err != nil {
		return err
	}

	history := `
		INSERT INTO user_interaction_history (user_id, item_key, category, context_snapshot)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.Exec(ctx, history, userID, NormalizeKey(item), cat.String(), contextText); err != nil {
		return err
	}

	// Keep only the most recent entries per user.
	trim := `
		DELETE FROM user_interaction_history
		WHERE user_id = $1 AND id NOT IN (
			SELECT id FROM user_interaction_history
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		)
	`
	_, err := s.db.Exec(ctx, trim, userID, HistoryLimit)
	return err
}

func (s *PostgresStore) Lookup(ctx context.Context, userID, item string) (category.Category, bool, error) {
	query := `
		SELECT category FROM user_category_preferences
		WHERE user_id = $1 AND item_key = $2
	`
	var raw string
	err := s.db.QueryRow(ctx, query, userID, NormalizeKey(item)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return category.Normalize(raw), true, nil
}

func (s *PostgresStore) History(ctx context.Context, userID string) ([]Interaction, error) {
	query := `
		SELECT item_key, category, context_snapshot, created_at
		FROM user_interaction_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.Query(ctx, query, userID, HistoryLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []Interaction
	for rows.Next() {
		var it Interaction
		var raw string
		if err := rows.Scan(&it.Item, &raw, &it.Context, &it.At); err != nil {
			return nil, err
		}
		it.Category = category.Normalize(raw)
		history = append(history, it)
	}
	return history, rows.Err()
}
