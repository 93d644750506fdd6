package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"sort"
	"strings"
	"time"

	"github.com/maheshrc27/captionflow/internal/models"
	"github.com/maheshrc27/captionflow/internal/repository"
	"github.com/maheshrc27/captionflow/internal/transfer"
)

type ContentService interface {
	List(ctx context.Context, userID string) ([]*models.ContentItem, error)
	Get(ctx context.Context, userID string, kind models.ContentKind, id string) (*models.ContentItem, error)
	Upload(ctx context.Context, userID string, kind models.ContentKind, file *multipart.FileHeader, meta *transfer.ContentUpload) (*models.ContentItem, error)
	Update(ctx context.Context, userID string, kind models.ContentKind, id string, upd *transfer.ContentUpdate) (*models.ContentItem, error)
	Delete(ctx context.Context, userID string, kind models.ContentKind, id string) error
}

type contentService struct {
	cr      repository.ContentRepository
	pr      repository.ScheduledPostRepository
	store     ObjectStore
	scheduler TaskScheduler
	tracker   *EnhancementTracker
	now       func() time.Time
}

func NewContentService(
	cr repository.ContentRepository,
	pr repository.ScheduledPostRepository,
	store ObjectStore,
	scheduler TaskScheduler,
	tracker *EnhancementTracker) ContentService {
	return &contentService{
		cr:        cr,
		pr:        pr,
		store:     store,
		scheduler: scheduler,
		tracker:   tracker,
		now:       time.Now,
	}
}

// List merges products and images into one list, newest first, each item
// carrying its derived status. Any read failure aborts the whole list.
func (s *contentService) List(ctx context.Context, userID string) ([]*models.ContentItem, error) {
	products, err := s.cr.ListByOwner(ctx, models.ContentKindProduct, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: products: %v", ErrLoadFailed, err)
	}
	images, err := s.cr.ListByOwner(ctx, models.ContentKindImage, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: images: %v", ErrLoadFailed, err)
	}
	posts, err := s.pr.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: scheduled posts: %v", ErrLoadFailed, err)
	}

	items := make([]*models.ContentItem, 0, len(products)+len(images))
	items = append(items, products...)
	items = append(items, images...)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	versions := s.selectedVersions(ctx, userID)
	now := s.now()

	hasNew := false
	for _, item := range items {
		if v, ok := versions[ItemKey(item.Kind, item.ID)]; ok {
			item.SelectedVersion = v
		}
		item.Status = DeriveStatus(item, posts, now)
		s.annotateURLs(item)
		if item.IsNew {
			hasNew = true
		}
	}

	if hasNew {
		go s.markViewed(userID)
	}

	return items, nil
}

func (s *contentService) markViewed(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.cr.MarkProductsViewed(ctx, userID); err != nil {
		slog.Error("failed to mark products viewed", "user_id", userID, "error", err)
	}
}

func (s *contentService) selectedVersions(ctx context.Context, userID string) map[string]string {
	if s.tracker == nil {
		return nil
	}
	versions, err := s.tracker.SelectedVersions(ctx, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil
	}
	return versions
}

func (s *contentService) annotateURLs(item *models.ContentItem) {
	if item.ImagePath != "" {
		item.ImageURL = s.store.PublicURL(item.ImagePath)
	}
	if item.EnhancedImagePath != nil && *item.EnhancedImagePath != "" {
		item.EnhancedImageURL = s.store.PublicURL(*item.EnhancedImagePath)
	}
}

func (s *contentService) Get(ctx context.Context, userID string, kind models.ContentKind, id string) (*models.ContentItem, error) {
	item, err := s.cr.GetByID(ctx, kind, id, userID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	s.annotateURLs(item)
	return item, nil
}

func (s *contentService) Upload(ctx context.Context, userID string, kind models.ContentKind, file *multipart.FileHeader, meta *transfer.ContentUpload) (*models.ContentItem, error) {
	if !kind.Valid() {
		return nil, validationError("unknown content kind %q", kind)
	}
	if file == nil {
		return nil, validationError("no file provided")
	}
	if meta == nil {
		meta = &transfer.ContentUpload{}
	}
	if kind == models.ContentKindProduct && strings.TrimSpace(meta.Name) == "" {
		return nil, validationError("product name is required")
	}

	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("error reading file content: %w", err)
	}

	fileType, err := DetectFileType(data)
	if err != nil {
		return nil, err
	}

	path, err := NewObjectPath(userID, "", fileType.Extension)
	if err != nil {
		return nil, err
	}
	if err := s.store.Upload(ctx, path, data, fileType.MIME.Value); err != nil {
		return nil, fmt.Errorf("error uploading file: %w", err)
	}

	item := &models.ContentItem{
		Kind:                   kind,
		OwnerID:                userID,
		ImagePath:              path,
		ImageEnhancementStatus: models.EnhancementNone,
		SelectedVersion:        models.VersionOriginal,
		MediaType:              mediaTypeOf(fileType),
		Name:                   strings.TrimSpace(meta.Name),
		Category:               optionalString(meta.Category),
	}
	if kind == models.ContentKindProduct {
		item.Price = meta.Price
		item.Description = optionalString(meta.Description)
		item.IsNew = true
	} else if item.Name == "" {
		item.Name = file.Filename
	}

	id, err := s.cr.Create(ctx, item)
	if err != nil {
		if rmErr := s.store.Remove(ctx, path); rmErr != nil {
			slog.Info(rmErr.Error())
		}
		return nil, fmt.Errorf("error creating %s: %w", kind, err)
	}

	item.ID = id
	item.CreatedAt = s.now()
	item.UpdatedAt = item.CreatedAt
	item.Status = models.ContentStatusDraft
	s.annotateURLs(item)
	return item, nil
}

func (s *contentService) Update(ctx context.Context, userID string, kind models.ContentKind, id string, upd *transfer.ContentUpdate) (*models.ContentItem, error) {
	if upd == nil {
		return nil, validationError("empty update")
	}

	item, err := s.cr.GetByID(ctx, kind, id, userID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" && kind == models.ContentKindProduct {
			return nil, validationError("product name cannot be empty")
		}
		item.Name = name
	}
	if upd.Price != nil {
		if *upd.Price < 0 {
			return nil, validationError("price cannot be negative")
		}
		item.Price = upd.Price
	}
	if upd.Description != nil {
		item.Description = optionalString(*upd.Description)
	}
	if upd.Category != nil {
		item.Category = optionalString(*upd.Category)
	}
	if upd.Caption != nil {
		item.Caption = optionalString(*upd.Caption)
	}
	if upd.TiktokSettings != nil {
		if kind != models.ContentKindProduct {
			return nil, validationError("tiktok settings can only be stored on products")
		}
		privacy, err := MapPrivacy(upd.TiktokSettings.PrivacyLevel)
		if err != nil {
			return nil, err
		}
		if err := ValidateCompliance(*upd.TiktokSettings, privacy); err != nil {
			return nil, err
		}
		item.TiktokSettings = upd.TiktokSettings
	}

	if err := s.cr.UpdateDetails(ctx, item); err != nil {
		return nil, err
	}

	s.annotateURLs(item)
	return item, nil
}

// Delete removes the row first; storage cleanup is best effort and only logged.
func (s *contentService) Delete(ctx context.Context, userID string, kind models.ContentKind, id string) error {
	item, err := s.cr.GetByID(ctx, kind, id, userID)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrNotFound
	}

	postIDs, err := s.pr.RemoveByItem(ctx, kind, id, userID)
	if err != nil {
		return err
	}
	for _, postID := range postIDs {
		if err := s.scheduler.CancelPublish(ctx, postID); err != nil {
			slog.Error("failed to cancel publish task", "post_id", postID, "error", err)
		}
	}

	if err := s.cr.Remove(ctx, kind, id, userID); err != nil {
		return err
	}

	paths := []string{item.ImagePath}
	if item.EnhancedImagePath != nil && *item.EnhancedImagePath != "" {
		paths = append(paths, *item.EnhancedImagePath)
	}
	if err := s.store.Remove(ctx, paths...); err != nil {
		slog.Error("failed to remove stored media", "item_id", id, "paths", paths, "error", err)
	}

	if s.tracker != nil {
		if err := s.tracker.Forget(ctx, userID, kind, id); err != nil {
			slog.Info(err.Error())
		}
	}
	return nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
