package service

import (
	"fmt"

	"github.com/maheshrc27/captionflow/internal/models"
)

const (
	TiktokPublicToEveryone    = "PUBLIC_TO_EVERYONE"
	TiktokMutualFollowFriends = "MUTUAL_FOLLOW_FRIENDS"
	TiktokSelfOnly            = "SELF_ONLY"
)

// DefaultTiktokSettings applies when neither the post nor the product
// carries settings.
func DefaultTiktokSettings() models.TiktokSettings {
	return models.TiktokSettings{
		PrivacyLevel:  models.PrivacyPublic,
		AllowComments: true,
		AllowDuet:     true,
		AllowStitch:   true,
	}
}

// ResolveSettings picks the post's settings, then the product's, then the defaults.
func ResolveSettings(post *models.ScheduledPost, product *models.ContentItem) models.TiktokSettings {
	if post != nil && post.TiktokSettings != nil {
		return *post.TiktokSettings
	}
	if product != nil && product.TiktokSettings != nil {
		return *product.TiktokSettings
	}
	return DefaultTiktokSettings()
}

func MapPrivacy(level string) (string, error) {
	switch level {
	case models.PrivacyPublic, "":
		return TiktokPublicToEveryone, nil
	case models.PrivacyFriends:
		return TiktokMutualFollowFriends, nil
	case models.PrivacyOnlyMe:
		return TiktokSelfOnly, nil
	}
	return "", validationError("unknown privacy level %q", level)
}

// ValidateCompliance enforces TikTok's commercial content disclosure rules.
// privacy is the already mapped TikTok value.
func ValidateCompliance(settings models.TiktokSettings, privacy string) error {
	if settings.CommercialContent && !settings.YourBrand && !settings.BrandedContent {
		return fmt.Errorf("%w: commercial content must be marked as your brand or branded content", ErrCompliance)
	}
	if settings.BrandedContent && privacy == TiktokSelfOnly {
		return fmt.Errorf("%w: branded content cannot be private", ErrCompliance)
	}
	return nil
}

// ResolveMediaURL returns the single URL TikTok should pull the media from:
// video_url, then image_url, then the stored video, then the item's image.
func ResolveMediaURL(post *models.ScheduledPost, item *models.ContentItem, publicURL func(string) string) (string, bool, error) {
	if post.VideoURL != nil && *post.VideoURL != "" {
		return *post.VideoURL, true, nil
	}
	if post.ImageURL != nil && *post.ImageURL != "" {
		return *post.ImageURL, false, nil
	}
	if post.VideoPath != nil && *post.VideoPath != "" {
		return publicURL(*post.VideoPath), true, nil
	}
	if item != nil {
		if path := item.DisplayPath(); path != "" {
			return publicURL(path), item.MediaType == models.MediaTypeVideo, nil
		}
	}
	return "", false, ErrNoMedia
}
