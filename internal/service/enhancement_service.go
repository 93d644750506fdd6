package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/maheshrc27/captionflow/internal/enhancer"
	"github.com/maheshrc27/captionflow/internal/models"
	"github.com/maheshrc27/captionflow/internal/observability"
	"github.com/maheshrc27/captionflow/internal/repository"
)

// staleGrace keeps the sweep behind the enhancement task timeout so rows
// are not failed under a worker that is still polling.
const staleGrace = 10 * time.Minute

type EnhancementService interface {
	Start(ctx context.Context, userID string, kind models.ContentKind, itemID string) (*models.ContentItem, error)
	Retry(ctx context.Context, userID string, kind models.ContentKind, itemID string) (*models.ContentItem, error)
	Watch(ctx context.Context, userID string, kind models.ContentKind, itemID string) (string, error)
	CancelWatch(userID string, kind models.ContentKind, itemID string) bool
	Reconcile(ctx context.Context, userID string) ([]string, error)
	ReconcileAll(ctx context.Context) error
	SelectVersion(ctx context.Context, userID string, kind models.ContentKind, itemID, version string) error
	Process(ctx context.Context, task EnhancementTask) error
	SweepStale(ctx context.Context) (int64, error)
}

type watch struct {
	cancel context.CancelFunc
	gen    uint64
}

type enhancementService struct {
	cr        repository.ContentRepository
	store     ObjectStore
	tracker   *EnhancementTracker
	scheduler TaskScheduler
	enhancer  ImageEnhancer

	watchBackoff Backoff
	jobBackoff   Backoff
	maxJobAge    time.Duration
	now          func() time.Time

	mu      sync.Mutex
	watches map[string]watch
	gen     uint64
}

func NewEnhancementService(
	cr repository.ContentRepository,
	store ObjectStore,
	tracker *EnhancementTracker,
	scheduler TaskScheduler,
	enh ImageEnhancer,
	maxWait, maxJobAge time.Duration) EnhancementService {
	return &enhancementService{
		cr:           cr,
		store:        store,
		tracker:      tracker,
		scheduler:    scheduler,
		enhancer:     enh,
		watchBackoff: DefaultWatchBackoff(maxWait),
		jobBackoff:   DefaultWatchBackoff(maxJobAge),
		maxJobAge:    maxJobAge,
		now:          time.Now,
		watches:      map[string]watch{},
	}
}

func (s *enhancementService) Start(ctx context.Context, userID string, kind models.ContentKind, itemID string) (*models.ContentItem, error) {
	item, err := s.load(ctx, userID, kind, itemID)
	if err != nil {
		return nil, err
	}
	if item.ImageEnhancementStatus == models.EnhancementProcessing {
		return nil, ErrAlreadyProcessing
	}
	return s.begin(ctx, item)
}

func (s *enhancementService) Retry(ctx context.Context, userID string, kind models.ContentKind, itemID string) (*models.ContentItem, error) {
	item, err := s.load(ctx, userID, kind, itemID)
	if err != nil {
		return nil, err
	}
	if item.ImageEnhancementStatus == models.EnhancementProcessing {
		return nil, ErrAlreadyProcessing
	}
	if item.ImageEnhancementStatus != models.EnhancementFailed {
		return nil, validationError("only failed enhancements can be retried")
	}
	return s.begin(ctx, item)
}

func (s *enhancementService) begin(ctx context.Context, item *models.ContentItem) (*models.ContentItem, error) {
	if item.MediaType == models.MediaTypeVideo {
		return nil, validationError("videos cannot be enhanced")
	}

	if err := s.cr.SetEnhancementStatus(ctx, item.Kind, item.ID, item.OwnerID, models.EnhancementProcessing); err != nil {
		return nil, err
	}
	if err := s.tracker.Add(ctx, item.OwnerID, item.Kind, item.ID); err != nil {
		slog.Info(err.Error())
	}

	task := EnhancementTask{UserID: item.OwnerID, Kind: item.Kind, ItemID: item.ID}
	if err := s.scheduler.EnqueueEnhancement(ctx, task); err != nil {
		slog.Info(err.Error())
		if err := s.cr.SetEnhancementStatus(context.WithoutCancel(ctx), item.Kind, item.ID, item.OwnerID, models.EnhancementFailed); err != nil {
			slog.Info(err.Error())
		}
		if err := s.tracker.Remove(context.WithoutCancel(ctx), item.OwnerID, item.Kind, item.ID); err != nil {
			slog.Info(err.Error())
		}
		return nil, fmt.Errorf("error enqueueing enhancement: %w", err)
	}

	item.ImageEnhancementStatus = models.EnhancementProcessing
	return item, nil
}

// Watch polls the row until the enhancement leaves processing. A second watch
// on the same item cancels the first.
func (s *enhancementService) Watch(ctx context.Context, userID string, kind models.ContentKind, itemID string) (string, error) {
	if _, err := s.load(ctx, userID, kind, itemID); err != nil {
		return "", err
	}

	ctx, done := s.register(ctx, userID, kind, itemID)
	defer done()

	status := models.EnhancementProcessing
	err := s.watchBackoff.Poll(ctx, func(ctx context.Context) (bool, error) {
		item, err := s.cr.GetByID(ctx, kind, itemID, userID)
		if err != nil {
			return false, err
		}
		if item == nil {
			return false, ErrNotFound
		}
		status = item.ImageEnhancementStatus
		return status != models.EnhancementProcessing, nil
	})
	if err != nil {
		return status, err
	}

	bg := context.WithoutCancel(ctx)
	if status == models.EnhancementCompleted {
		if err := s.tracker.SetSelected(bg, userID, kind, itemID, models.VersionEnhanced); err != nil {
			slog.Info(err.Error())
		}
	}
	if err := s.tracker.Remove(bg, userID, kind, itemID); err != nil {
		slog.Info(err.Error())
	}
	return status, nil
}

func watchKey(userID string, kind models.ContentKind, itemID string) string {
	return userID + "|" + ItemKey(kind, itemID)
}

func (s *enhancementService) register(ctx context.Context, userID string, kind models.ContentKind, itemID string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	key := watchKey(userID, kind, itemID)

	s.mu.Lock()
	if prev, ok := s.watches[key]; ok {
		prev.cancel()
	}
	s.gen++
	gen := s.gen
	s.watches[key] = watch{cancel: cancel, gen: gen}
	s.mu.Unlock()

	return ctx, func() {
		cancel()
		s.mu.Lock()
		if w, ok := s.watches[key]; ok && w.gen == gen {
			delete(s.watches, key)
		}
		s.mu.Unlock()
	}
}

// CancelWatch stops a running watch and reports whether one existed.
func (s *enhancementService) CancelWatch(userID string, kind models.ContentKind, itemID string) bool {
	key := watchKey(userID, kind, itemID)

	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.watches[key]
	if !ok {
		return false
	}
	w.cancel()
	delete(s.watches, key)
	return true
}

// Reconcile drops markers whose row is no longer processing and returns the
// item keys that are still being enhanced.
func (s *enhancementService) Reconcile(ctx context.Context, userID string) ([]string, error) {
	markers, err := s.tracker.Markers(ctx, userID)
	if err != nil {
		return nil, err
	}

	active := make([]string, 0, len(markers))
	for _, marker := range markers {
		kind, id, err := ParseItemKey(marker)
		if err != nil {
			slog.Info(err.Error())
			continue
		}

		item, err := s.cr.GetByID(ctx, kind, id, userID)
		if err != nil {
			return nil, err
		}
		if item != nil && item.ImageEnhancementStatus == models.EnhancementProcessing {
			active = append(active, marker)
			continue
		}

		if err := s.tracker.Remove(ctx, userID, kind, id); err != nil {
			slog.Info(err.Error())
		}
	}
	return active, nil
}

func (s *enhancementService) ReconcileAll(ctx context.Context) error {
	users, err := s.tracker.Users(ctx)
	if err != nil {
		return err
	}
	for _, userID := range users {
		if _, err := s.Reconcile(ctx, userID); err != nil {
			slog.Error("failed to reconcile enhancement markers", "user_id", userID, "error", err)
		}
	}
	return nil
}

func (s *enhancementService) SelectVersion(ctx context.Context, userID string, kind models.ContentKind, itemID, version string) error {
	if version != models.VersionOriginal && version != models.VersionEnhanced {
		return validationError("unknown version %q", version)
	}

	item, err := s.load(ctx, userID, kind, itemID)
	if err != nil {
		return err
	}
	if version == models.VersionEnhanced && (item.EnhancedImagePath == nil || *item.EnhancedImagePath == "") {
		return validationError("item has no enhanced image")
	}

	if err := s.cr.SetSelectedVersion(ctx, kind, itemID, userID, version); err != nil {
		return err
	}
	if err := s.tracker.SetSelected(ctx, userID, kind, itemID, version); err != nil {
		slog.Info(err.Error())
	}
	return nil
}

// Process runs one enhancement job end to end. Items that are no longer
// processing are skipped.
func (s *enhancementService) Process(ctx context.Context, task EnhancementTask) error {
	item, err := s.cr.GetByID(ctx, task.Kind, task.ItemID, task.UserID)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrNotFound
	}
	if item.ImageEnhancementStatus != models.EnhancementProcessing {
		slog.Info("skipping enhancement", "item", ItemKey(task.Kind, task.ItemID), "status", item.ImageEnhancementStatus)
		return nil
	}

	started := s.now()
	err = s.enhance(ctx, item)
	if errors.Is(err, errEnhancementSuperseded) {
		slog.Info("dropping late enhancement result", "item", ItemKey(item.Kind, item.ID))
		return nil
	}
	if err != nil {
		slog.Error("image enhancement failed", "item", ItemKey(item.Kind, item.ID), "error", err)
		if err := s.cr.SetEnhancementStatus(context.WithoutCancel(ctx), item.Kind, item.ID, item.OwnerID, models.EnhancementFailed); err != nil {
			slog.Info(err.Error())
		}
		observability.EnhancementsFinished.WithLabelValues(models.EnhancementFailed).Inc()
		return err
	}

	observability.EnhancementsFinished.WithLabelValues(models.EnhancementCompleted).Inc()
	observability.EnhancementDuration.Observe(s.now().Sub(started).Seconds())
	return nil
}

func (s *enhancementService) enhance(ctx context.Context, item *models.ContentItem) error {
	original, err := s.store.Download(ctx, item.ImagePath)
	if err != nil {
		return err
	}
	fileType, err := DetectFileType(original)
	if err != nil {
		return err
	}

	job, err := s.enhancer.Submit(ctx, original, path.Base(item.ImagePath), fileType.MIME.Value)
	if err != nil {
		return upstreamError("enhancement", err)
	}

	err = s.jobBackoff.Poll(ctx, func(ctx context.Context) (bool, error) {
		current, err := s.enhancer.Status(ctx, job.JobID)
		if err != nil {
			return false, upstreamError("enhancement status", err)
		}
		job = current
		if job.Status == enhancer.JobFailed {
			return true, upstreamError("enhancement", errors.New(job.Error))
		}
		return job.Done(), nil
	})
	if err != nil {
		return err
	}

	enhanced, contentType, err := s.enhancer.Download(ctx, job.OutputURL)
	if err != nil {
		return upstreamError("enhancement download", err)
	}

	ext := fileType.Extension
	if t, err := DetectFileType(enhanced); err == nil {
		ext, contentType = t.Extension, t.MIME.Value
	}

	enhancedPath, err := NewObjectPath(item.OwnerID, "enhanced-", ext)
	if err != nil {
		return err
	}
	if err := s.store.Upload(ctx, enhancedPath, enhanced, contentType); err != nil {
		return err
	}

	completed, err := s.cr.CompleteEnhancement(ctx, item.Kind, item.ID, item.OwnerID, enhancedPath)
	if err != nil {
		return err
	}
	if !completed {
		if err := s.store.Remove(context.WithoutCancel(ctx), enhancedPath); err != nil {
			slog.Info(err.Error())
		}
		return errEnhancementSuperseded
	}
	return nil
}

// SweepStale fails rows that have been processing longer than the maximum
// job age plus staleGrace, by which point the worker has given up on them.
func (s *enhancementService) SweepStale(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-(s.maxJobAge + staleGrace))

	var total int64
	for _, kind := range []models.ContentKind{models.ContentKindProduct, models.ContentKindImage} {
		n, err := s.cr.FailStaleProcessing(ctx, kind, cutoff)
		if err != nil {
			return total, err
		}
		total += n
	}

	if total > 0 {
		observability.EnhancementsFinished.WithLabelValues(models.EnhancementFailed).Add(float64(total))
	}
	return total, nil
}

func (s *enhancementService) load(ctx context.Context, userID string, kind models.ContentKind, itemID string) (*models.ContentItem, error) {
	if !kind.Valid() {
		return nil, validationError("unknown content kind %q", kind)
	}
	item, err := s.cr.GetByID(ctx, kind, itemID, userID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}
