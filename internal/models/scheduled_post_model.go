package models

import "time"

type ScheduledPost struct {
	ID             string          `db:"id" json:"id"`
	UserID         string          `db:"user_id" json:"user_id"`
	ProductID      *string         `db:"product_id" json:"product_id"`
	ImageID        *string         `db:"image_id" json:"image_id"`
	Caption        string          `db:"caption" json:"caption"`
	ScheduledDate  time.Time       `db:"scheduled_date" json:"scheduled_date"`
	Platform       string          `db:"platform" json:"platform"`
	Status         string          `db:"status" json:"status"` // scheduled, posted, failed
	VideoURL       *string         `db:"video_url" json:"video_url,omitempty"`
	ImageURL       *string         `db:"image_url" json:"image_url,omitempty"`
	VideoPath      *string         `db:"video_path" json:"video_path,omitempty"`
	TiktokSettings *TiktokSettings `db:"tiktok_settings" json:"tiktok_settings,omitempty"`
	PublishID      *string         `db:"publish_id" json:"publish_id,omitempty"`
	ErrorMessage   *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`

	DisplayStatus ContentStatus `json:"display_status"`
}

const (
	PostStatusScheduled = "scheduled"
	PostStatusPosted    = "posted"
	PostStatusFailed    = "failed"
)

const (
	PlatformTiktok    = "tiktok"
	PlatformInstagram = "instagram"
	PlatformFacebook  = "facebook"
)

// ItemRef returns the kind and id of the content item the post refers to.
func (p *ScheduledPost) ItemRef() (ContentKind, string) {
	if p.ProductID != nil && *p.ProductID != "" {
		return ContentKindProduct, *p.ProductID
	}
	if p.ImageID != nil && *p.ImageID != "" {
		return ContentKindImage, *p.ImageID
	}
	return "", ""
}

// References reports whether the post points at the given item.
func (p *ScheduledPost) References(kind ContentKind, id string) bool {
	k, ref := p.ItemRef()
	return k == kind && ref == id
}
