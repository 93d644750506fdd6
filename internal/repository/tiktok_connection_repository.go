package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/captionflow/internal/models"
)

// TiktokConnectionRepository stores one TikTok account link per user. Tokens
// are written and read in their encrypted form.
type TiktokConnectionRepository interface {
	Upsert(ctx context.Context, conn *models.TiktokConnection) error
	GetByUserID(ctx context.Context, userID string) (*models.TiktokConnection, error)
	ListByTimeInterval(ctx context.Context, initialTime, finalTime time.Time) ([]*models.TiktokConnection, error)
	SetToken(ctx context.Context, userID, oldAccessToken string, conn *models.TiktokConnection) error
	Remove(ctx context.Context, userID string) error
}

type tiktokConnectionRepository struct {
	db *sql.DB
}

func NewTiktokConnectionRepository(db *sql.DB) TiktokConnectionRepository {
	return &tiktokConnectionRepository{db: db}
}

func (r *tiktokConnectionRepository) Upsert(ctx context.Context, conn *models.TiktokConnection) error {
	query := `
		INSERT INTO tiktok_connections(
			user_id,
			tiktok_user_id,
			tiktok_username,
			display_name,
			avatar_url,
			scope,
			access_token,
			refresh_token,
			token_expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			tiktok_user_id = EXCLUDED.tiktok_user_id,
			tiktok_username = EXCLUDED.tiktok_username,
			display_name = EXCLUDED.display_name,
			avatar_url = EXCLUDED.avatar_url,
			scope = EXCLUDED.scope,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.ExecContext(ctx, query,
		conn.UserID,
		conn.TiktokUserID,
		conn.TiktokUsername,
		conn.DisplayName,
		conn.AvatarURL,
		conn.Scope,
		conn.AccessToken,
		conn.RefreshToken,
		conn.TokenExpiresAt,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *tiktokConnectionRepository) GetByUserID(ctx context.Context, userID string) (*models.TiktokConnection, error) {
	query := `
		SELECT user_id, tiktok_user_id, tiktok_username, display_name, avatar_url, scope,
			access_token, refresh_token, token_expires_at, created_at, updated_at
		FROM tiktok_connections
		WHERE user_id = $1
	`

	var c models.TiktokConnection
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&c.UserID, &c.TiktokUserID, &c.TiktokUsername, &c.DisplayName, &c.AvatarURL, &c.Scope,
		&c.AccessToken, &c.RefreshToken, &c.TokenExpiresAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &c, nil
}

// ListByTimeInterval returns connections whose token expires inside the
// window, plus those already expired.
func (r *tiktokConnectionRepository) ListByTimeInterval(ctx context.Context, initialTime, finalTime time.Time) ([]*models.TiktokConnection, error) {
	query := `SELECT
			user_id,
			access_token,
			refresh_token,
			token_expires_at
			FROM tiktok_connections
			WHERE (token_expires_at BETWEEN $1 AND $2)
			OR (token_expires_at < $3)`
	rows, err := r.db.QueryContext(ctx, query, initialTime, finalTime, initialTime)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var conns []*models.TiktokConnection
	for rows.Next() {
		var c models.TiktokConnection
		if err := rows.Scan(&c.UserID, &c.AccessToken, &c.RefreshToken, &c.TokenExpiresAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		conns = append(conns, &c)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return conns, nil
}

// SetToken replaces the token pair only if the stored access token still
// matches oldAccessToken, so two concurrent refreshes cannot both win.
func (r *tiktokConnectionRepository) SetToken(ctx context.Context, userID, oldAccessToken string, conn *models.TiktokConnection) error {
	query := `
		UPDATE tiktok_connections
		SET
			access_token = COALESCE(NULLIF($3, ''), access_token),
			refresh_token = COALESCE(NULLIF($4, ''), refresh_token),
			token_expires_at = $5,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1 AND access_token = $2
	`
	result, err := r.db.ExecContext(ctx, query, userID, oldAccessToken, conn.AccessToken, conn.RefreshToken, conn.TokenExpiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		slog.Info("no rows affected; token was already rotated")
		return errors.New("no rows affected; token was already rotated")
	}
	return nil
}

func (r *tiktokConnectionRepository) Remove(ctx context.Context, userID string) error {
	query := `DELETE FROM tiktok_connections WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
