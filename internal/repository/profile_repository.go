package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/captionflow/internal/models"
)

// ProfileRepository owns the per-user credit balance.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetCredits(ctx context.Context, id string) (int, error)
	// DecrementCredit takes one credit if the balance is positive. ok is false
	// when the balance was already zero.
	DecrementCredit(ctx context.Context, id string) (remaining int, ok bool, err error)
	RefundCredit(ctx context.Context, id string) (int, error)
}

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT id, email, full_name, credits, created_at, updated_at FROM profiles WHERE id = $1`

	var p models.Profile
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Email, &p.FullName, &p.Credits, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &p, nil
}

func (r *profileRepository) GetCredits(ctx context.Context, id string) (int, error) {
	query := `SELECT credits FROM profiles WHERE id = $1`

	var credits int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&credits)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		slog.Info(err.Error())
		return 0, err
	}
	return credits, nil
}

func (r *profileRepository) DecrementCredit(ctx context.Context, id string) (int, bool, error) {
	query := `
		UPDATE profiles
		SET credits = credits - 1,
			updated_at = $1
		WHERE id = $2 AND credits > 0
		RETURNING credits
	`

	var remaining int
	err := r.db.QueryRowContext(ctx, query, time.Now(), id).Scan(&remaining)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		slog.Info(err.Error())
		return 0, false, err
	}
	return remaining, true, nil
}

func (r *profileRepository) RefundCredit(ctx context.Context, id string) (int, error) {
	query := `
		UPDATE profiles
		SET credits = credits + 1,
			updated_at = $1
		WHERE id = $2
		RETURNING credits
	`

	var credits int
	err := r.db.QueryRowContext(ctx, query, time.Now(), id).Scan(&credits)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return credits, nil
}
