package prefs

import (
	"context"
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoroch-app/khoroch/internal/domain/category"
)

func TestMemoryLearnAndLookup(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Learn(ctx, "u1", "Mouse", category.Shopping, "bought a mouse 1500"))

	// Exact case-insensitive match.
	cat, ok, err := s.Lookup(ctx, "u1", "  MOUSE ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, category.Shopping, cat)

	// Never fuzzy: a different word must miss.
	_, ok, err = s.Lookup(ctx, "u1", "mice")
	require.NoError(t, err)
	assert.False(t, ok)

	// Scoped per user.
	_, ok, err = s.Lookup(ctx, "u2", "mouse")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryRelearnBumpsCorrections(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Learn(ctx, "u1", "tablet", category.Shopping, ""))
	require.NoError(t, s.Learn(ctx, "u1", "tablet", category.Health, "tablet from pharmacy"))

	cat, ok, err := s.Lookup(ctx, "u1", "tablet")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, category.Health, cat)
	assert.Equal(t, 2, s.prefs["u1"]["tablet"].Corrections)
}

func TestMemoryHistoryBounded(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < HistoryLimit+20; i++ {
		item := fmt.Sprintf("%s-%d", gofakeit.NounConcrete(), i)
		require.NoError(t, s.Learn(ctx, "u1", item, category.Shopping, ""))
	}

	history, err := s.History(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, history, HistoryLimit)
	// Newest first: the last learned item leads.
	assert.Contains(t, history[0].Item, fmt.Sprintf("-%d", HistoryLimit+19))
}

func TestPostgresLearn(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresStore(mock)

	mock.ExpectExec("INSERT INTO user_category_preferences").
		WithArgs("u1", "mouse", "shopping", "bought a mouse").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO user_interaction_history").
		WithArgs("u1", "mouse", "shopping", "bought a mouse").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM user_interaction_history").
		WithArgs("u1", HistoryLimit).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.Learn(context.Background(), "u1", " Mouse ", category.Shopping, "bought a mouse"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLookup(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresStore(mock)

	mock.ExpectQuery("SELECT category FROM user_category_preferences").
		WithArgs("u1", "mouse").
		WillReturnRows(pgxmock.NewRows([]string{"category"}).AddRow("shopping"))

	cat, ok, lookupErr := s.Lookup(context.Background(), "u1", "mouse")
	require.NoError(t, lookupErr)
	assert.True(t, ok)
	assert.Equal(t, category.Shopping, cat)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLookupMiss(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresStore(mock)

	mock.ExpectQuery("SELECT category FROM user_category_preferences").
		WithArgs("u1", "mouse").
		WillReturnError(pgx.ErrNoRows)

	_, ok, lookupErr := s.Lookup(context.Background(), "u1", "mouse")
	require.NoError(t, lookupErr)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
