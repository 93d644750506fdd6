package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/captionflow/internal/models"
)

// ContentRepository reads and writes the two content tables, products and
// images. Every method that takes an owner id scopes the statement to it.
type ContentRepository interface {
	ListByOwner(ctx context.Context, kind models.ContentKind, ownerID string) ([]*models.ContentItem, error)
	GetByID(ctx context.Context, kind models.ContentKind, id, ownerID string) (*models.ContentItem, error)
	Create(ctx context.Context, item *models.ContentItem) (string, error)
	UpdateDetails(ctx context.Context, item *models.ContentItem) error
	SetCaption(ctx context.Context, kind models.ContentKind, id, ownerID string, caption *string) error
	SetEnhancementStatus(ctx context.Context, kind models.ContentKind, id, ownerID, status string) error
	CompleteEnhancement(ctx context.Context, kind models.ContentKind, id, ownerID, enhancedPath string) (bool, error)
	SetSelectedVersion(ctx context.Context, kind models.ContentKind, id, ownerID, version string) error
	MarkProductsViewed(ctx context.Context, ownerID string) error
	FailStaleProcessing(ctx context.Context, kind models.ContentKind, olderThan time.Time) (int64, error)
	Remove(ctx context.Context, kind models.ContentKind, id, ownerID string) error
}

type contentRepository struct {
	db *sql.DB
}

func NewContentRepository(db *sql.DB) ContentRepository {
	return &contentRepository{db: db}
}

// Both tables are projected onto the same column list so one scan works for either kind.
const productColumns = `id, owner_id, image_path, enhanced_image_path, image_enhancement_status, selected_version,
	caption, media_type, name, price, description, category, is_new, tiktok_settings, created_at, updated_at`

const imageColumns = `id, owner_id, image_path, enhanced_image_path, image_enhancement_status, selected_version,
	caption, media_type, original_filename, NULL::numeric, NULL::text, category, false, NULL::jsonb, created_at, updated_at`

func selectColumns(kind models.ContentKind) string {
	if kind == models.ContentKindImage {
		return imageColumns
	}
	return productColumns
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContentItem(row rowScanner, kind models.ContentKind) (*models.ContentItem, error) {
	item := models.ContentItem{Kind: kind}
	err := row.Scan(
		&item.ID,
		&item.OwnerID,
		&item.ImagePath,
		&item.EnhancedImagePath,
		&item.ImageEnhancementStatus,
		&item.SelectedVersion,
		&item.Caption,
		&item.MediaType,
		&item.Name,
		&item.Price,
		&item.Description,
		&item.Category,
		&item.IsNew,
		&item.TiktokSettings,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *contentRepository) ListByOwner(ctx context.Context, kind models.ContentKind, ownerID string) ([]*models.ContentItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE owner_id = $1 ORDER BY created_at DESC`, selectColumns(kind), kind.Table())

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var items []*models.ContentItem
	for rows.Next() {
		item, err := scanContentItem(rows, kind)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return items, nil
}

func (r *contentRepository) GetByID(ctx context.Context, kind models.ContentKind, id, ownerID string) (*models.ContentItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND owner_id = $2`, selectColumns(kind), kind.Table())

	item, err := scanContentItem(r.db.QueryRowContext(ctx, query, id, ownerID), kind)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return item, nil
}

func (r *contentRepository) Create(ctx context.Context, item *models.ContentItem) (string, error) {
	var id string
	var err error

	if item.Kind == models.ContentKindImage {
		query := `
			INSERT INTO images (owner_id, image_path, enhanced_image_path, image_enhancement_status,
				selected_version, caption, media_type, original_filename, category)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`
		err = r.db.QueryRowContext(ctx, query,
			item.OwnerID,
			item.ImagePath,
			item.EnhancedImagePath,
			item.ImageEnhancementStatus,
			item.SelectedVersion,
			item.Caption,
			item.MediaType,
			item.Name,
			item.Category,
		).Scan(&id)
	} else {
		query := `
			INSERT INTO products (owner_id, image_path, enhanced_image_path, image_enhancement_status,
				selected_version, caption, media_type, name, price, description, category, is_new, tiktok_settings)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id
		`
		err = r.db.QueryRowContext(ctx, query,
			item.OwnerID,
			item.ImagePath,
			item.EnhancedImagePath,
			item.ImageEnhancementStatus,
			item.SelectedVersion,
			item.Caption,
			item.MediaType,
			item.Name,
			item.Price,
			item.Description,
			item.Category,
			item.IsNew,
			item.TiktokSettings,
		).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return id, nil
}

func (r *contentRepository) UpdateDetails(ctx context.Context, item *models.ContentItem) error {
	var err error
	if item.Kind == models.ContentKindImage {
		query := `
			UPDATE images
			SET original_filename = $1, category = $2, caption = $3, updated_at = $4
			WHERE id = $5 AND owner_id = $6
		`
		_, err = r.db.ExecContext(ctx, query, item.Name, item.Category, item.Caption, time.Now(), item.ID, item.OwnerID)
	} else {
		query := `
			UPDATE products
			SET name = $1, price = $2, description = $3, category = $4, caption = $5,
				tiktok_settings = $6, updated_at = $7
			WHERE id = $8 AND owner_id = $9
		`
		_, err = r.db.ExecContext(ctx, query,
			item.Name,
			item.Price,
			item.Description,
			item.Category,
			item.Caption,
			item.TiktokSettings,
			time.Now(),
			item.ID,
			item.OwnerID,
		)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *contentRepository) SetCaption(ctx context.Context, kind models.ContentKind, id, ownerID string, caption *string) error {
	query := fmt.Sprintf(`UPDATE %s SET caption = $1, updated_at = $2 WHERE id = $3 AND owner_id = $4`, kind.Table())
	return r.exec(ctx, query, caption, time.Now(), id, ownerID)
}

func (r *contentRepository) SetEnhancementStatus(ctx context.Context, kind models.ContentKind, id, ownerID, status string) error {
	query := fmt.Sprintf(`UPDATE %s SET image_enhancement_status = $1, updated_at = $2 WHERE id = $3 AND owner_id = $4`, kind.Table())
	return r.exec(ctx, query, status, time.Now(), id, ownerID)
}

// CompleteEnhancement stores the enhanced image on a row that is still
// processing. It reports false when the row was failed or reset meanwhile.
func (r *contentRepository) CompleteEnhancement(ctx context.Context, kind models.ContentKind, id, ownerID, enhancedPath string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET image_enhancement_status = $1, enhanced_image_path = $2, selected_version = $3, updated_at = $4
		WHERE id = $5 AND owner_id = $6 AND image_enhancement_status = $7
	`, kind.Table())

	result, err := r.db.ExecContext(ctx, query, models.EnhancementCompleted, enhancedPath, models.VersionEnhanced, time.Now(), id, ownerID, models.EnhancementProcessing)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *contentRepository) SetSelectedVersion(ctx context.Context, kind models.ContentKind, id, ownerID, version string) error {
	query := fmt.Sprintf(`UPDATE %s SET selected_version = $1, updated_at = $2 WHERE id = $3 AND owner_id = $4`, kind.Table())
	return r.exec(ctx, query, version, time.Now(), id, ownerID)
}

func (r *contentRepository) MarkProductsViewed(ctx context.Context, ownerID string) error {
	query := `UPDATE products SET is_new = false WHERE owner_id = $1 AND is_new = true`
	return r.exec(ctx, query, ownerID)
}

func (r *contentRepository) FailStaleProcessing(ctx context.Context, kind models.ContentKind, olderThan time.Time) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET image_enhancement_status = $1, updated_at = $2
		WHERE image_enhancement_status = $3 AND updated_at < $4
	`, kind.Table())

	result, err := r.db.ExecContext(ctx, query, models.EnhancementFailed, time.Now(), models.EnhancementProcessing, olderThan)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return result.RowsAffected()
}

func (r *contentRepository) Remove(ctx context.Context, kind models.ContentKind, id, ownerID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND owner_id = $2`, kind.Table())
	return r.exec(ctx, query, id, ownerID)
}

func (r *contentRepository) exec(ctx context.Context, query string, args ...any) error {
	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
