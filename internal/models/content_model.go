package models

import "time"

type ContentKind string

const (
	ContentKindProduct ContentKind = "product"
	ContentKindImage   ContentKind = "image"
)

func (k ContentKind) Valid() bool {
	return k == ContentKindProduct || k == ContentKindImage
}

// Table returns the table that stores items of this kind.
func (k ContentKind) Table() string {
	if k == ContentKindImage {
		return "images"
	}
	return "products"
}

type ContentStatus string

const (
	ContentStatusDraft     ContentStatus = "draft"
	ContentStatusScheduled ContentStatus = "scheduled"
	ContentStatusPosted    ContentStatus = "posted"
	// ContentStatusFailed is only ever shown for posts, never for items.
	ContentStatusFailed ContentStatus = "failed"
)

const (
	EnhancementNone              = "none"
	EnhancementProcessing        = "processing"
	EnhancementCompleted         = "completed"
	EnhancementFailed            = "failed"
	EnhancementCompletedMultiple = "completed_multiple"
)

const (
	VersionOriginal = "original"
	VersionEnhanced = "enhanced"
)

const (
	MediaTypePhoto = "photo"
	MediaTypeVideo = "video"
)

// ContentItem is either a products row or an images row. Name holds the
// product name or the original filename of a general image.
type ContentItem struct {
	ID                     string          `db:"id" json:"id"`
	Kind                   ContentKind     `json:"kind"`
	OwnerID                string          `db:"owner_id" json:"owner_id"`
	ImagePath              string          `db:"image_path" json:"image_path"`
	EnhancedImagePath      *string         `db:"enhanced_image_path" json:"enhanced_image_path"`
	ImageEnhancementStatus string          `db:"image_enhancement_status" json:"image_enhancement_status"`
	SelectedVersion        string          `db:"selected_version" json:"selected_version"`
	Caption                *string         `db:"caption" json:"caption"`
	MediaType              string          `db:"media_type" json:"media_type"`
	Name                   string          `db:"name" json:"name"`
	Price                  *float64        `db:"price" json:"price,omitempty"`
	Description            *string         `db:"description" json:"description,omitempty"`
	Category               *string         `db:"category" json:"category,omitempty"`
	IsNew                  bool            `db:"is_new" json:"is_new"`
	TiktokSettings         *TiktokSettings `db:"tiktok_settings" json:"tiktok_settings,omitempty"`
	CreatedAt              time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time       `db:"updated_at" json:"updated_at"`

	Status           ContentStatus `json:"status"`
	ImageURL         string        `json:"image_url,omitempty"`
	EnhancedImageURL string        `json:"enhanced_image_url,omitempty"`
}

func (c *ContentItem) HasCaption() bool {
	return c.Caption != nil && *c.Caption != ""
}

// DisplayPath is the storage path of the version currently shown for the item.
func (c *ContentItem) DisplayPath() string {
	if c.SelectedVersion == VersionEnhanced && c.EnhancedImagePath != nil && *c.EnhancedImagePath != "" {
		return *c.EnhancedImagePath
	}
	return c.ImagePath
}
