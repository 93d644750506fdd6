package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/maheshrc27/captionflow/internal/enhancer"
	"github.com/maheshrc27/captionflow/internal/models"
)

// contentRepoStub keeps items in memory keyed by kind:id.
type contentRepoStub struct {
	mu        sync.Mutex
	items     map[string]*models.ContentItem
	nextID    int
	listErr   error
	setErr    error
	created   []*models.ContentItem
	viewed    chan string
	staleRows int64
	cutoffs   []time.Time
}

func newContentRepoStub(items ...*models.ContentItem) *contentRepoStub {
	r := &contentRepoStub{items: map[string]*models.ContentItem{}, viewed: make(chan string, 4)}
	for _, it := range items {
		r.items[ItemKey(it.Kind, it.ID)] = it
	}
	return r
}

func (r *contentRepoStub) get(kind models.ContentKind, id string) *models.ContentItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[ItemKey(kind, id)]
}

func (r *contentRepoStub) ListByOwner(ctx context.Context, kind models.ContentKind, ownerID string) ([]*models.ContentItem, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ContentItem
	for _, it := range r.items {
		if it.Kind == kind && it.OwnerID == ownerID {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *contentRepoStub) GetByID(ctx context.Context, kind models.ContentKind, id, ownerID string) (*models.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[ItemKey(kind, id)]
	if !ok || it.OwnerID != ownerID {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

func (r *contentRepoStub) Create(ctx context.Context, item *models.ContentItem) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := fmt.Sprintf("new-%d", r.nextID)
	cp := *item
	cp.ID = id
	r.items[ItemKey(item.Kind, id)] = &cp
	r.created = append(r.created, &cp)
	return id, nil
}

func (r *contentRepoStub) UpdateDetails(ctx context.Context, item *models.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *item
	r.items[ItemKey(item.Kind, item.ID)] = &cp
	return nil
}

func (r *contentRepoStub) update(kind models.ContentKind, id string, fn func(*models.ContentItem)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	if it, ok := r.items[ItemKey(kind, id)]; ok {
		fn(it)
	}
	return nil
}

func (r *contentRepoStub) SetCaption(ctx context.Context, kind models.ContentKind, id, ownerID string, caption *string) error {
	return r.update(kind, id, func(it *models.ContentItem) { it.Caption = caption })
}

func (r *contentRepoStub) SetEnhancementStatus(ctx context.Context, kind models.ContentKind, id, ownerID, status string) error {
	return r.update(kind, id, func(it *models.ContentItem) { it.ImageEnhancementStatus = status })
}

func (r *contentRepoStub) CompleteEnhancement(ctx context.Context, kind models.ContentKind, id, ownerID, enhancedPath string) (bool, error) {
	completed := false
	err := r.update(kind, id, func(it *models.ContentItem) {
		if it.ImageEnhancementStatus != models.EnhancementProcessing {
			return
		}
		it.ImageEnhancementStatus = models.EnhancementCompleted
		it.EnhancedImagePath = &enhancedPath
		it.SelectedVersion = models.VersionEnhanced
		completed = true
	})
	return completed, err
}

func (r *contentRepoStub) SetSelectedVersion(ctx context.Context, kind models.ContentKind, id, ownerID, version string) error {
	return r.update(kind, id, func(it *models.ContentItem) { it.SelectedVersion = version })
}

func (r *contentRepoStub) MarkProductsViewed(ctx context.Context, ownerID string) error {
	r.viewed <- ownerID
	return nil
}

func (r *contentRepoStub) FailStaleProcessing(ctx context.Context, kind models.ContentKind, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	r.cutoffs = append(r.cutoffs, olderThan)
	r.mu.Unlock()
	return r.staleRows, nil
}

func (r *contentRepoStub) Remove(ctx context.Context, kind models.ContentKind, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, ItemKey(kind, id))
	return nil
}

type postRepoStub struct {
	mu       sync.Mutex
	posts    map[string]*models.ScheduledPost
	batchErr error
	nextID   int
	batches  int
}

func newPostRepoStub(posts ...*models.ScheduledPost) *postRepoStub {
	r := &postRepoStub{posts: map[string]*models.ScheduledPost{}}
	for _, p := range posts {
		r.posts[p.ID] = p
	}
	return r
}

func (r *postRepoStub) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	post.ID = fmt.Sprintf("post-%d", r.nextID)
	cp := *post
	r.posts[post.ID] = &cp
	return post.ID, nil
}

func (r *postRepoStub) CreateBatch(ctx context.Context, posts []*models.ScheduledPost) ([]string, error) {
	if r.batchErr != nil {
		return nil, r.batchErr
	}
	r.batches++
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		id, _ := r.Create(ctx, nil, p)
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *postRepoStub) GetByID(ctx context.Context, id string) (*models.ScheduledPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *postRepoStub) ListByUserID(ctx context.Context, userID string) ([]*models.ScheduledPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ScheduledPost
	for _, p := range r.posts {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *postRepoStub) UpdateDate(ctx context.Context, id, userID string, date time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.posts[id]; ok && p.UserID == userID {
		p.ScheduledDate = date
	}
	return nil
}

func (r *postRepoStub) SetPublishResult(ctx context.Context, id, status string, publishID, errorMessage *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.posts[id]; ok {
		p.Status = status
		if publishID != nil {
			p.PublishID = publishID
		}
		p.ErrorMessage = errorMessage
	}
	return nil
}

func (r *postRepoStub) RemoveScheduledByUserID(ctx context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, p := range r.posts {
		if p.UserID == userID && p.Status == models.PostStatusScheduled {
			ids = append(ids, id)
			delete(r.posts, id)
		}
	}
	return ids, nil
}

func (r *postRepoStub) RemoveByItem(ctx context.Context, kind models.ContentKind, itemID, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, p := range r.posts {
		if p.UserID == userID && p.References(kind, itemID) {
			ids = append(ids, id)
			delete(r.posts, id)
		}
	}
	return ids, nil
}

func (r *postRepoStub) Remove(ctx context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, id)
	return nil
}

type restaurantRepoStub struct {
	rest *models.Restaurant
}

func (r *restaurantRepoStub) GetByOwnerID(ctx context.Context, ownerID string) (*models.Restaurant, error) {
	return r.rest, nil
}

type profileRepoStub struct {
	mu      sync.Mutex
	credits int
	refunds int
}

func (r *profileRepoStub) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	return &models.Profile{ID: id, Credits: r.credits}, nil
}

func (r *profileRepoStub) GetCredits(ctx context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.credits, nil
}

func (r *profileRepoStub) DecrementCredit(ctx context.Context, id string) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.credits <= 0 {
		return 0, false, nil
	}
	r.credits--
	return r.credits, true, nil
}

func (r *profileRepoStub) RefundCredit(ctx context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.credits++
	r.refunds++
	return r.credits, nil
}

type memoryStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	removed   []string
	uploadErr error
	removeErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}}
}

func (m *memoryStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = data
	return nil
}

func (m *memoryStore) Download(ctx context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[path]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *memoryStore) Remove(ctx context.Context, paths ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, paths...)
	if m.removeErr != nil {
		return m.removeErr
	}
	for _, p := range paths {
		delete(m.objects, p)
	}
	return nil
}

func (m *memoryStore) PublicURL(path string) string {
	return "https://cdn.test/" + path
}

type llmStub struct {
	mu    sync.Mutex
	calls []float64
	fn    func(prompt string, temperature float64) (string, error)
}

func (l *llmStub) Complete(ctx context.Context, system, prompt string, temperature float64) (string, error) {
	l.mu.Lock()
	l.calls = append(l.calls, temperature)
	l.mu.Unlock()
	return l.fn(prompt, temperature)
}

type schedulerStub struct {
	mu           sync.Mutex
	published    map[string]time.Time
	cancelled    []string
	enhancements []EnhancementTask
	enqueueErr   error
}

func newSchedulerStub() *schedulerStub {
	return &schedulerStub{published: map[string]time.Time{}}
}

func (s *schedulerStub) EnqueuePublish(ctx context.Context, postID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published[postID] = at
	return nil
}

func (s *schedulerStub) CancelPublish(ctx context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, postID)
	return nil
}

func (s *schedulerStub) EnqueueEnhancement(ctx context.Context, task EnhancementTask) error {
	if s.enqueueErr != nil {
		return s.enqueueErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enhancements = append(s.enhancements, task)
	return nil
}

type enhancerStub struct {
	statuses   []string
	calls      int
	output     []byte
	fail       error
	onDownload func()
}

func (e *enhancerStub) Submit(ctx context.Context, image []byte, filename, contentType string) (*enhancer.Job, error) {
	if e.fail != nil {
		return nil, e.fail
	}
	return &enhancer.Job{JobID: "job-1", Status: enhancer.JobQueued}, nil
}

func (e *enhancerStub) Status(ctx context.Context, jobID string) (*enhancer.Job, error) {
	status := e.statuses[len(e.statuses)-1]
	if e.calls < len(e.statuses) {
		status = e.statuses[e.calls]
	}
	e.calls++
	job := &enhancer.Job{JobID: jobID, Status: status}
	if status == enhancer.JobCompleted {
		job.OutputURL = "https://enhancer.test/out/job-1"
	}
	return job, nil
}

func (e *enhancerStub) Download(ctx context.Context, outputURL string) ([]byte, string, error) {
	if e.onDownload != nil {
		e.onDownload()
	}
	return e.output, "image/png", nil
}
