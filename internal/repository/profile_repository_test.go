package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileRepository_DecrementCredit(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProfileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE profiles SET credits = credits - 1, updated_at = $1 WHERE id = $2 AND credits > 0 RETURNING credits`)).
		WithArgs(sqlmock.AnyArg(), "u1").
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(4))

	remaining, ok, err := repo.DecrementCredit(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, remaining)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_DecrementCredit_EmptyBalance(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProfileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $2 AND credits > 0`)).
		WithArgs(sqlmock.AnyArg(), "u1").
		WillReturnError(sql.ErrNoRows)

	_, ok, err := repo.DecrementCredit(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_RefundCredit(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProfileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SET credits = credits + 1`)).
		WithArgs(sqlmock.AnyArg(), "u1").
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(5))

	credits, err := repo.RefundCredit(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, credits)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_GetCredits_MissingProfile(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProfileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT credits FROM profiles WHERE id = $1`)).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	credits, err := repo.GetCredits(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Zero(t, credits)
	require.NoError(t, mock.ExpectationsWereMet())
}
