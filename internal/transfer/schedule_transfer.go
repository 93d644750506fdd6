package transfer

import (
	"time"

	"github.com/maheshrc27/captionflow/internal/models"
)

// PostCreation creates a single post by hand. Exactly one of ProductID and
// ImageID must be set.
type PostCreation struct {
	ProductID      *string                `json:"product_id"`
	ImageID        *string                `json:"image_id"`
	Caption        string                 `json:"caption"`
	ScheduledDate  time.Time              `json:"scheduled_date"`
	Platform       string                 `json:"platform"`
	VideoURL       *string                `json:"video_url"`
	ImageURL       *string                `json:"image_url"`
	VideoPath      *string                `json:"video_path"`
	TiktokSettings *models.TiktokSettings `json:"tiktok_settings"`
}

// PostDateUpdate moves a post to Date (YYYY-MM-DD) at Hour:Minute local time.
type PostDateUpdate struct {
	Date   string `json:"date"`
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
}

type ScheduleResponse struct {
	Created int                     `json:"created"`
	Posts   []*models.ScheduledPost `json:"posts"`
}

type CancelResponse struct {
	Cancelled int `json:"cancelled"`
}

type VariantsResponse struct {
	Products []*models.ContentItem `json:"products"`
}

type ProcessImageRequest struct {
	ImagePath string `json:"image_path"`
}

type ProcessImageResponse struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}
