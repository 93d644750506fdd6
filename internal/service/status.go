package service

import (
	"time"

	"github.com/maheshrc27/captionflow/internal/models"
)

// DeriveStatus computes the display status of an item from the posts that
// reference it. It is recomputed on every read and never stored.
//
// A post still marked scheduled whose date has passed counts as posted; the
// publish task normally runs at that moment and overwrites the row.
func DeriveStatus(item *models.ContentItem, posts []*models.ScheduledPost, now time.Time) models.ContentStatus {
	status := models.ContentStatusDraft
	for _, post := range posts {
		if !post.References(item.Kind, item.ID) {
			continue
		}
		switch post.Status {
		case models.PostStatusPosted:
			return models.ContentStatusPosted
		case models.PostStatusScheduled:
			if !post.ScheduledDate.After(now) {
				return models.ContentStatusPosted
			}
			status = models.ContentStatusScheduled
		}
	}
	return status
}

// PostDisplayStatus is the per-post counterpart of DeriveStatus.
func PostDisplayStatus(post *models.ScheduledPost, now time.Time) models.ContentStatus {
	switch post.Status {
	case models.PostStatusPosted:
		return models.ContentStatusPosted
	case models.PostStatusFailed:
		return models.ContentStatusFailed
	}
	if post.ScheduledDate.After(now) {
		return models.ContentStatusScheduled
	}
	return models.ContentStatusPosted
}
