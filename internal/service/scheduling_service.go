package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/maheshrc27/captionflow/internal/models"
	"github.com/maheshrc27/captionflow/internal/observability"
	"github.com/maheshrc27/captionflow/internal/repository"
	"github.com/maheshrc27/captionflow/internal/transfer"
)

// Publisher sends a post to its platform and records the outcome on the row.
type Publisher interface {
	Publish(ctx context.Context, post *models.ScheduledPost) error
}

type SchedulingService interface {
	ScheduleAutomatic(ctx context.Context, userID string) ([]*models.ScheduledPost, error)
	CancelAll(ctx context.Context, userID string) (int, error)
	UpdatePostDate(ctx context.Context, userID, postID string, upd *transfer.PostDateUpdate) (*models.ScheduledPost, error)
	DeletePost(ctx context.Context, userID, postID string) error
	ListPosts(ctx context.Context, userID string) ([]*models.ScheduledPost, error)
	CreatePost(ctx context.Context, userID string, req *transfer.PostCreation) (*models.ScheduledPost, error)
	PostNow(ctx context.Context, userID, postID string) (*models.ScheduledPost, error)
	PublishScheduled(ctx context.Context, postID string) error
	FailPublish(ctx context.Context, postID string, cause error) error
}

type schedulingService struct {
	cr        repository.ContentRepository
	pr        repository.ScheduledPostRepository
	store     ObjectStore
	scheduler TaskScheduler
	publisher Publisher
	loc       *time.Location
	now       func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewSchedulingService(
	cr repository.ContentRepository,
	pr repository.ScheduledPostRepository,
	store ObjectStore,
	scheduler TaskScheduler,
	publisher Publisher,
	loc *time.Location) SchedulingService {
	if loc == nil {
		loc = time.UTC
	}
	seed := uint64(time.Now().UnixNano())
	return &schedulingService{
		cr:        cr,
		pr:        pr,
		store:     store,
		scheduler: scheduler,
		publisher: publisher,
		loc:       loc,
		now:       time.Now,
		rng:       rand.New(rand.NewPCG(seed, seed>>1)),
	}
}

// ScheduleAutomatic spreads every captioned item over the next four weeks,
// one TikTok post per day, cycling through the items.
func (s *schedulingService) ScheduleAutomatic(ctx context.Context, userID string) ([]*models.ScheduledPost, error) {
	eligible, err := s.eligibleContent(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return nil, ErrNoEligibleContent
	}

	now := s.now()
	s.rngMu.Lock()
	slots := BuildCalendar(now, s.loc, s.rng)
	s.rngMu.Unlock()

	posts := make([]*models.ScheduledPost, 0, len(slots))
	for i, slot := range slots {
		item := eligible[i%len(eligible)]
		post := &models.ScheduledPost{
			UserID:        userID,
			Caption:       *item.Caption,
			ScheduledDate: slot.UTC(),
			Platform:      models.PlatformTiktok,
			Status:        models.PostStatusScheduled,
		}
		id := item.ID
		if item.Kind == models.ContentKindProduct {
			post.ProductID = &id
		} else {
			post.ImageID = &id
		}
		posts = append(posts, post)
	}

	ids, err := s.pr.CreateBatch(ctx, posts)
	if err != nil {
		return nil, fmt.Errorf("error creating scheduled posts: %w", err)
	}

	for i, post := range posts {
		post.ID = ids[i]
		post.DisplayStatus = PostDisplayStatus(post, now)
		s.enqueue(ctx, post)
	}
	observability.PostsScheduled.Add(float64(len(posts)))

	return posts, nil
}

func (s *schedulingService) eligibleContent(ctx context.Context, userID string) ([]*models.ContentItem, error) {
	var eligible []*models.ContentItem
	for _, kind := range []models.ContentKind{models.ContentKindProduct, models.ContentKindImage} {
		items, err := s.cr.ListByOwner(ctx, kind, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, kind.Table(), err)
		}
		for _, item := range items {
			if item.HasCaption() && item.DisplayPath() != "" {
				eligible = append(eligible, item)
			}
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].CreatedAt.After(eligible[j].CreatedAt)
	})
	return eligible, nil
}

// enqueue logs instead of failing: the row is already committed and a
// missing task only delays the post until it is rescheduled.
func (s *schedulingService) enqueue(ctx context.Context, post *models.ScheduledPost) {
	if err := s.scheduler.EnqueuePublish(ctx, post.ID, post.ScheduledDate); err != nil {
		slog.Error("failed to enqueue publish task", "post_id", post.ID, "error", err)
	}
}

func (s *schedulingService) CancelAll(ctx context.Context, userID string) (int, error) {
	ids, err := s.pr.RemoveScheduledByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := s.scheduler.CancelPublish(ctx, id); err != nil {
			slog.Info(err.Error())
		}
	}
	return len(ids), nil
}

func (s *schedulingService) UpdatePostDate(ctx context.Context, userID, postID string, upd *transfer.PostDateUpdate) (*models.ScheduledPost, error) {
	if upd == nil {
		return nil, validationError("date is required")
	}
	day, err := time.ParseInLocation("2006-01-02", upd.Date, s.loc)
	if err != nil {
		return nil, validationError("date must be YYYY-MM-DD")
	}
	if upd.Hour < 0 || upd.Hour > 23 || upd.Minute < 0 || upd.Minute > 59 {
		return nil, validationError("invalid time %02d:%02d", upd.Hour, upd.Minute)
	}

	date := time.Date(day.Year(), day.Month(), day.Day(), upd.Hour, upd.Minute, 0, 0, s.loc)
	now := s.now()
	if !date.After(now) {
		return nil, ErrPastDate
	}

	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if post.Status != models.PostStatusScheduled {
		return nil, validationError("only scheduled posts can be moved")
	}

	if err := s.pr.UpdateDate(ctx, postID, userID, date.UTC()); err != nil {
		return nil, err
	}

	post.ScheduledDate = date.UTC()
	post.DisplayStatus = PostDisplayStatus(post, now)
	s.enqueue(ctx, post)
	return post, nil
}

func (s *schedulingService) DeletePost(ctx context.Context, userID, postID string) error {
	if _, err := s.ownedPost(ctx, userID, postID); err != nil {
		return err
	}
	if err := s.pr.Remove(ctx, postID, userID); err != nil {
		return err
	}
	if err := s.scheduler.CancelPublish(ctx, postID); err != nil {
		slog.Info(err.Error())
	}
	return nil
}

func (s *schedulingService) ListPosts(ctx context.Context, userID string) ([]*models.ScheduledPost, error) {
	posts, err := s.pr.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].ScheduledDate.Before(posts[j].ScheduledDate)
	})

	now := s.now()
	for _, post := range posts {
		post.DisplayStatus = PostDisplayStatus(post, now)
	}
	return posts, nil
}

func (s *schedulingService) CreatePost(ctx context.Context, userID string, req *transfer.PostCreation) (*models.ScheduledPost, error) {
	if req == nil {
		return nil, validationError("empty post")
	}
	req.ProductID, req.ImageID = nonEmpty(req.ProductID), nonEmpty(req.ImageID)
	if (req.ProductID == nil) == (req.ImageID == nil) {
		return nil, validationError("a post refers to exactly one product or image")
	}

	now := s.now()
	if !req.ScheduledDate.After(now) {
		return nil, ErrPastDate
	}

	platform := req.Platform
	if platform == "" {
		platform = models.PlatformTiktok
	}
	switch platform {
	case models.PlatformTiktok, models.PlatformInstagram, models.PlatformFacebook:
	default:
		return nil, validationError("unknown platform %q", platform)
	}

	post := &models.ScheduledPost{
		UserID:         userID,
		ProductID:      req.ProductID,
		ImageID:        req.ImageID,
		Caption:        req.Caption,
		ScheduledDate:  req.ScheduledDate.UTC(),
		Platform:       platform,
		Status:         models.PostStatusScheduled,
		VideoURL:       req.VideoURL,
		ImageURL:       req.ImageURL,
		VideoPath:      req.VideoPath,
		TiktokSettings: req.TiktokSettings,
	}

	var item *models.ContentItem
	if kind, id := post.ItemRef(); kind != "" {
		var err error
		item, err = s.cr.GetByID(ctx, kind, id, userID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, ErrNotFound
		}
		if post.Caption == "" && item.Caption != nil {
			post.Caption = *item.Caption
		}
	}

	if _, _, err := ResolveMediaURL(post, item, s.store.PublicURL); err != nil {
		return nil, err
	}
	if req.TiktokSettings != nil {
		privacy, err := MapPrivacy(req.TiktokSettings.PrivacyLevel)
		if err != nil {
			return nil, err
		}
		if err := ValidateCompliance(*req.TiktokSettings, privacy); err != nil {
			return nil, err
		}
	}

	id, err := s.pr.Create(ctx, nil, post)
	if err != nil {
		return nil, err
	}
	post.ID = id
	post.DisplayStatus = PostDisplayStatus(post, now)

	s.enqueue(ctx, post)
	observability.PostsScheduled.Inc()
	return post, nil
}

// PostNow publishes right away and drops the pending delayed task.
func (s *schedulingService) PostNow(ctx context.Context, userID, postID string) (*models.ScheduledPost, error) {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if post.Status == models.PostStatusPosted {
		return nil, validationError("post was already published")
	}

	if err := s.scheduler.CancelPublish(ctx, postID); err != nil {
		slog.Info(err.Error())
	}

	if err := s.publish(ctx, post); err != nil {
		return nil, err
	}

	updated, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	updated.DisplayStatus = PostDisplayStatus(updated, s.now())
	return updated, nil
}

// PublishScheduled runs from the delayed queue task. Posts that were
// deleted or already handled are skipped.
func (s *schedulingService) PublishScheduled(ctx context.Context, postID string) error {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return ErrNotFound
	}
	if post.Status != models.PostStatusScheduled {
		slog.Info("skipping publish", "post_id", postID, "status", post.Status)
		return nil
	}
	return s.publish(ctx, post)
}

// FailPublish records cause on a post that is still scheduled once its
// publish task has used up its retries.
func (s *schedulingService) FailPublish(ctx context.Context, postID string, cause error) error {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil || post.Status != models.PostStatusScheduled {
		return nil
	}
	msg := cause.Error()
	if err := s.pr.SetPublishResult(ctx, post.ID, models.PostStatusFailed, nil, &msg); err != nil {
		return err
	}
	observability.PostsPublished.WithLabelValues(post.Platform, "failed").Inc()
	slog.Error("publish retries exhausted", "post_id", post.ID, "error", cause)
	return nil
}

func (s *schedulingService) publish(ctx context.Context, post *models.ScheduledPost) error {
	if post.Platform != models.PlatformTiktok {
		msg := fmt.Sprintf("publishing to %s is not supported", post.Platform)
		if err := s.pr.SetPublishResult(ctx, post.ID, models.PostStatusFailed, nil, &msg); err != nil {
			return err
		}
		observability.PostsPublished.WithLabelValues(post.Platform, "unsupported").Inc()
		return validationError("%s", msg)
	}
	return s.publisher.Publish(ctx, post)
}

func (s *schedulingService) ownedPost(ctx context.Context, userID, postID string) (*models.ScheduledPost, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.UserID != userID {
		return nil, ErrNotFound
	}
	return post, nil
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
