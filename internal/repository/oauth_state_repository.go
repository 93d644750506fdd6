package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/captionflow/internal/models"
)

type OAuthStateRepository interface {
	Create(ctx context.Context, state *models.OAuthState) error
	// Consume deletes the state and returns it. A missing state yields nil.
	Consume(ctx context.Context, state string) (*models.OAuthState, error)
}

type oauthStateRepository struct {
	db *sql.DB
}

func NewOAuthStateRepository(db *sql.DB) OAuthStateRepository {
	return &oauthStateRepository{db: db}
}

func (r *oauthStateRepository) Create(ctx context.Context, state *models.OAuthState) error {
	query := `INSERT INTO oauth_states (state, user_id, created_at) VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, query, state.State, state.UserID, state.CreatedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *oauthStateRepository) Consume(ctx context.Context, state string) (*models.OAuthState, error) {
	query := `DELETE FROM oauth_states WHERE state = $1 RETURNING state, user_id, created_at`

	var s models.OAuthState
	err := r.db.QueryRowContext(ctx, query, state).Scan(&s.State, &s.UserID, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &s, nil
}
