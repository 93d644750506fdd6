package transfer

import "github.com/maheshrc27/captionflow/internal/models"

// ContentUpload carries the form fields sent alongside an uploaded file.
type ContentUpload struct {
	Name        string
	Price       *float64
	Description string
	Category    string
}

// ContentUpdate is a partial update; nil fields are left untouched.
type ContentUpdate struct {
	Name           *string                `json:"name"`
	Price          *float64               `json:"price"`
	Description    *string                `json:"description"`
	Category       *string                `json:"category"`
	Caption        *string                `json:"caption"`
	TiktokSettings *models.TiktokSettings `json:"tiktok_settings"`
}

type CaptionResponse struct {
	Caption string `json:"caption"`
}

type CaptionsResponse struct {
	Captions []string `json:"captions"`
}

type SelectVersionRequest struct {
	Version string `json:"version"`
}

type EnhancementStatusResponse struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
}

type CreditsResponse struct {
	Credits int `json:"credits"`
}
