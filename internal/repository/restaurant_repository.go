package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/lib/pq"
	"github.com/maheshrc27/captionflow/internal/models"
)

type RestaurantRepository interface {
	GetByOwnerID(ctx context.Context, ownerID string) (*models.Restaurant, error)
}

type restaurantRepository struct {
	db *sql.DB
}

func NewRestaurantRepository(db *sql.DB) RestaurantRepository {
	return &restaurantRepository{db: db}
}

func (r *restaurantRepository) GetByOwnerID(ctx context.Context, ownerID string) (*models.Restaurant, error) {
	query := `
		SELECT id, owner_id, name, brand_type, category, locations, vision, created_at
		FROM restaurants
		WHERE owner_id = $1
		ORDER BY created_at ASC
		LIMIT 1
	`

	var rest models.Restaurant
	var brandType, category, vision sql.NullString
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(
		&rest.ID,
		&rest.OwnerID,
		&rest.Name,
		&brandType,
		&category,
		pq.Array(&rest.Locations),
		&vision,
		&rest.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	rest.BrandType = brandType.String
	rest.Category = category.String
	rest.Vision = vision.String
	return &rest, nil
}
