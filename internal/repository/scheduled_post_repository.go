package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/captionflow/internal/models"
)

type ScheduledPostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (string, error)
	CreateBatch(ctx context.Context, posts []*models.ScheduledPost) ([]string, error)
	GetByID(ctx context.Context, id string) (*models.ScheduledPost, error)
	ListByUserID(ctx context.Context, userID string) ([]*models.ScheduledPost, error)
	UpdateDate(ctx context.Context, id, userID string, date time.Time) error
	SetPublishResult(ctx context.Context, id, status string, publishID, errorMessage *string) error
	RemoveScheduledByUserID(ctx context.Context, userID string) ([]string, error)
	RemoveByItem(ctx context.Context, kind models.ContentKind, itemID, userID string) ([]string, error)
	Remove(ctx context.Context, id, userID string) error
}

type scheduledPostRepository struct {
	db *sql.DB
}

func NewScheduledPostRepository(db *sql.DB) ScheduledPostRepository {
	return &scheduledPostRepository{db: db}
}

const postColumns = `id, user_id, product_id, image_id, caption, scheduled_date, platform, status,
	video_url, image_url, video_path, tiktok_settings, publish_id, error_message, created_at, updated_at`

func scanScheduledPost(row rowScanner) (*models.ScheduledPost, error) {
	var post models.ScheduledPost
	err := row.Scan(
		&post.ID,
		&post.UserID,
		&post.ProductID,
		&post.ImageID,
		&post.Caption,
		&post.ScheduledDate,
		&post.Platform,
		&post.Status,
		&post.VideoURL,
		&post.ImageURL,
		&post.VideoPath,
		&post.TiktokSettings,
		&post.PublishID,
		&post.ErrorMessage,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *scheduledPostRepository) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (string, error) {
	query := `
		INSERT INTO scheduled_posts (user_id, product_id, image_id, caption, scheduled_date, platform, status,
			video_url, image_url, video_path, tiktok_settings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	args := []any{
		post.UserID,
		post.ProductID,
		post.ImageID,
		post.Caption,
		post.ScheduledDate,
		post.Platform,
		post.Status,
		post.VideoURL,
		post.ImageURL,
		post.VideoPath,
		post.TiktokSettings,
	}

	var id string
	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return id, nil
}

// CreateBatch inserts all posts in one transaction; either every row is
// written or none is.
func (r *scheduledPostRepository) CreateBatch(ctx context.Context, posts []*models.ScheduledPost) (ids []string, err error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	ids = make([]string, 0, len(posts))
	for _, post := range posts {
		id, err := r.Create(ctx, tx, post)
		if err != nil {
			return nil, fmt.Errorf("error creating scheduled post: %w", err)
		}
		post.ID = id
		ids = append(ids, id)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return ids, nil
}

func (r *scheduledPostRepository) GetByID(ctx context.Context, id string) (*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts WHERE id = $1`

	post, err := scanScheduledPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *scheduledPostRepository) ListByUserID(ctx context.Context, userID string) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts WHERE user_id = $1 ORDER BY scheduled_date ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		post, err := scanScheduledPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *scheduledPostRepository) UpdateDate(ctx context.Context, id, userID string, date time.Time) error {
	query := `
		UPDATE scheduled_posts
		SET scheduled_date = $1,
			updated_at = $2
		WHERE id = $3 AND user_id = $4
	`
	_, err := r.db.ExecContext(ctx, query, date, time.Now(), id, userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *scheduledPostRepository) SetPublishResult(ctx context.Context, id, status string, publishID, errorMessage *string) error {
	query := `
		UPDATE scheduled_posts
		SET status = $1,
			publish_id = COALESCE($2, publish_id),
			error_message = $3,
			updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, status, publishID, errorMessage, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// RemoveScheduledByUserID deletes every still-pending post of the user and
// returns the removed ids.
func (r *scheduledPostRepository) RemoveScheduledByUserID(ctx context.Context, userID string) ([]string, error) {
	query := `DELETE FROM scheduled_posts WHERE user_id = $1 AND status = $2 RETURNING id`

	rows, err := r.db.QueryContext(ctx, query, userID, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return scanIDs(rows)
}

// RemoveByItem deletes every post of the user that points at the item and
// returns the removed ids.
func (r *scheduledPostRepository) RemoveByItem(ctx context.Context, kind models.ContentKind, itemID, userID string) ([]string, error) {
	column := "product_id"
	if kind == models.ContentKindImage {
		column = "image_id"
	}
	query := `DELETE FROM scheduled_posts WHERE user_id = $1 AND ` + column + ` = $2 RETURNING id`

	rows, err := r.db.QueryContext(ctx, query, userID, itemID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return scanIDs(rows)
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *scheduledPostRepository) Remove(ctx context.Context, id, userID string) error {
	query := `DELETE FROM scheduled_posts WHERE id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
