package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keralaseva/deadline-alerts/internal/notifications"
)

func TestClassifyInsert(t *testing.T) {
	t.Run("inserted", func(t *testing.T) {
		assert.NoError(t, classifyInsert(pgconn.NewCommandTag("INSERT 0 1"), nil))
	})

	t.Run("conflict skipped", func(t *testing.T) {
		err := classifyInsert(pgconn.NewCommandTag("INSERT 0 0"), nil)
		assert.ErrorIs(t, err, notifications.ErrDuplicate)
	})

	t.Run("unique violation", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "notifications_user_scholarship_key"}
		err := classifyInsert(pgconn.CommandTag{}, fmt.Errorf("exec: %w", pgErr))
		assert.ErrorIs(t, err, notifications.ErrDuplicate)
		assert.Contains(t, err.Error(), "notifications_user_scholarship_key")
	})

	t.Run("foreign key violation is not a duplicate", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"}
		err := classifyInsert(pgconn.CommandTag{}, pgErr)
		require.Error(t, err)
		assert.False(t, errors.Is(err, notifications.ErrDuplicate))
	})

	t.Run("message mentioning unique is not a duplicate", func(t *testing.T) {
		err := classifyInsert(pgconn.CommandTag{}, errors.New("unique connection id exhausted"))
		require.Error(t, err)
		assert.False(t, errors.Is(err, notifications.ErrDuplicate))
	})
}

func TestToCivil(t *testing.T) {
	assert.Nil(t, toCivil(pgtype.Date{}))
	assert.Nil(t, toCivil(pgtype.Date{Valid: true, InfinityModifier: pgtype.Infinity}))

	got := toCivil(pgtype.Date{Valid: true, Time: time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)})
	require.NotNil(t, got)
	assert.Equal(t, civil.Date{Year: 2025, Month: time.January, Day: 8}, *got)
}
