package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type TiktokConnection struct {
	UserID         string    `db:"user_id" json:"user_id"`
	TiktokUserID   string    `db:"tiktok_user_id" json:"tiktok_user_id"`
	TiktokUsername string    `db:"tiktok_username" json:"tiktok_username"`
	DisplayName    string    `db:"display_name" json:"display_name"`
	AvatarURL      string    `db:"avatar_url" json:"avatar_url"`
	Scope          string    `db:"scope" json:"scope"`
	AccessToken    string    `db:"access_token" json:"-"`
	RefreshToken   string    `db:"refresh_token" json:"-"`
	TokenExpiresAt time.Time `db:"token_expires_at" json:"token_expires_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

type OAuthState struct {
	State     string    `db:"state"`
	UserID    string    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

const (
	PrivacyPublic  = "public"
	PrivacyFriends = "friends"
	PrivacyOnlyMe  = "only_me"
)

// TiktokSettings is stored as jsonb on products and, optionally, on posts.
type TiktokSettings struct {
	PrivacyLevel      string `json:"privacy_level"`
	AllowComments     bool   `json:"allow_comments"`
	AllowDuet         bool   `json:"allow_duet"`
	AllowStitch       bool   `json:"allow_stitch"`
	CommercialContent bool   `json:"commercial_content"`
	YourBrand         bool   `json:"your_brand"`
	BrandedContent    bool   `json:"branded_content"`
}

func (s TiktokSettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *TiktokSettings) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("tiktok_settings: unsupported column type")
	}
	return json.Unmarshal(data, s)
}
