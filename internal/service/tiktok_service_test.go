package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	config "github.com/maheshrc27/captionflow/configs"
	"github.com/maheshrc27/captionflow/internal/models"
	"github.com/maheshrc27/captionflow/internal/transfer"
	"github.com/maheshrc27/captionflow/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecretKey = "0123456789abcdef0123456789abcdef"

type connRepoStub struct {
	mu       sync.Mutex
	conns    map[string]*models.TiktokConnection
	oldToken string
	getErr   error
}

func (r *connRepoStub) Upsert(ctx context.Context, conn *models.TiktokConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *conn
	r.conns[conn.UserID] = &cp
	return nil
}

func (r *connRepoStub) GetByUserID(ctx context.Context, userID string) (*models.TiktokConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	c, ok := r.conns[userID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *connRepoStub) ListByTimeInterval(ctx context.Context, initialTime, finalTime time.Time) ([]*models.TiktokConnection, error) {
	return nil, nil
}

func (r *connRepoStub) SetToken(ctx context.Context, userID, oldAccessToken string, conn *models.TiktokConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.oldToken = oldAccessToken
	c := r.conns[userID]
	c.AccessToken, c.RefreshToken, c.TokenExpiresAt = conn.AccessToken, conn.RefreshToken, conn.TokenExpiresAt
	return nil
}

func (r *connRepoStub) Remove(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, userID)
	return nil
}

type stateRepoStub struct {
	states map[string]*models.OAuthState
}

func (r *stateRepoStub) Create(ctx context.Context, state *models.OAuthState) error {
	r.states[state.State] = state
	return nil
}

func (r *stateRepoStub) Consume(ctx context.Context, state string) (*models.OAuthState, error) {
	st, ok := r.states[state]
	if !ok {
		return nil, nil
	}
	delete(r.states, state)
	return st, nil
}

type compressorStub struct {
	out   []byte
	err   error
	calls int
}

func (c *compressorStub) Compress(ctx context.Context, data []byte) ([]byte, error) {
	c.calls++
	return c.out, c.err
}

// fakeTiktok records every request and answers like the v2 open API.
type fakeTiktok struct {
	mu            sync.Mutex
	paths         []string
	bodies        map[string][]byte
	forms         map[string]url.Values
	privacyLevels []string
	revokeStatus  int
}

func (f *fakeTiktok) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	record := func(r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.paths = append(f.paths, r.URL.Path)
		if r.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
			_ = r.ParseForm()
			f.forms[r.URL.Path] = r.PostForm
			return
		}
		var raw json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&raw)
		f.bodies[r.URL.Path] = raw
	}
	ok := map[string]string{"code": "ok", "message": "", "log_id": "log-1"}

	mux.HandleFunc("/v2/oauth/token/", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		token := "tok-new"
		if r.PostForm.Get("grant_type") == "refresh_token" {
			token = "tok-2"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": token, "refresh_token": "refresh-" + token, "expires_in": 86400,
			"open_id": "open-1", "scope": tiktokScopes, "token_type": "Bearer",
		})
	})
	mux.HandleFunc("/v2/user/info/", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		assert.Equal(t, "Bearer tok-new", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":  map[string]any{"user": map[string]string{"open_id": "open-1", "username": "joesdiner", "display_name": "Joe's Diner"}},
			"error": ok,
		})
	})
	mux.HandleFunc("/v2/post/publish/creator_info/query/", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		f.mu.Lock()
		levels := f.privacyLevels
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":  map[string]any{"creator_username": "joesdiner", "privacy_level_options": levels},
			"error": ok,
		})
	})
	publish := func(w http.ResponseWriter, r *http.Request) {
		record(r)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"publish_id": "pub-123"}, "error": ok})
	}
	mux.HandleFunc("/v2/post/publish/video/init/", publish)
	mux.HandleFunc("/v2/post/publish/content/init/", publish)
	mux.HandleFunc("/v2/oauth/revoke/", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		f.mu.Lock()
		status := f.revokeStatus
		f.mu.Unlock()
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{})
	})
	return mux
}

func (f *fakeTiktok) form(path string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forms[path]
}

func (f *fakeTiktok) body(path string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[path]
}

func (f *fakeTiktok) set(fn func(f *fakeTiktok)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeTiktok) requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

type tiktokFixture struct {
	svc   *tiktokService
	api   *fakeTiktok
	cr    *contentRepoStub
	pr    *postRepoStub
	conns *connRepoStub
	state *stateRepoStub
	store *memoryStore
	comp  *compressorStub
}

func newTiktokFixture(t *testing.T, items []*models.ContentItem, posts ...*models.ScheduledPost) *tiktokFixture {
	t.Helper()
	f := &tiktokFixture{
		api: &fakeTiktok{
			bodies:        map[string][]byte{},
			forms:         map[string]url.Values{},
			privacyLevels: []string{TiktokPublicToEveryone, TiktokMutualFollowFriends, TiktokSelfOnly},
			revokeStatus:  http.StatusOK,
		},
		cr:    newContentRepoStub(items...),
		pr:    newPostRepoStub(posts...),
		conns: &connRepoStub{conns: map[string]*models.TiktokConnection{}},
		state: &stateRepoStub{states: map[string]*models.OAuthState{}},
		store: newMemoryStore(),
		comp:  &compressorStub{},
	}
	server := httptest.NewServer(f.api.handler(t))
	t.Cleanup(server.Close)

	cfg := config.Config{
		TiktokClientKey:    "client-key",
		TiktokClientSecret: "client-secret",
		TiktokRedirectURI:  "https://app.test/auth/tiktok/callback",
		TiktokAPIBaseURL:   server.URL,
		TiktokAuthURL:      "https://www.tiktok.com/v2/auth/authorize/",
		SecretKey:          testSecretKey,
	}
	f.svc = NewTiktokService(cfg, f.cr, f.pr, f.conns, f.state, f.store, f.comp).(*tiktokService)
	return f
}

func (f *tiktokFixture) connect(t *testing.T, userID string) {
	t.Helper()
	access, err := utils.Encrypt([]byte("tok-1"), []byte(testSecretKey))
	require.NoError(t, err)
	refresh, err := utils.Encrypt([]byte("refresh-1"), []byte(testSecretKey))
	require.NoError(t, err)
	f.conns.conns[userID] = &models.TiktokConnection{
		UserID: userID, TiktokUsername: "joesdiner", AccessToken: access, RefreshToken: refresh,
		TokenExpiresAt: time.Now().Add(time.Hour),
	}
}

func scheduledTiktokPost(id, productID string) *models.ScheduledPost {
	return &models.ScheduledPost{
		ID: id, UserID: "u1", ProductID: &productID, Caption: "Burger time #burger",
		Platform: models.PlatformTiktok, Status: models.PostStatusScheduled,
	}
}

func TestTiktokService_PublishPhoto(t *testing.T) {
	product := productItem("p1")
	product.TiktokSettings = &models.TiktokSettings{PrivacyLevel: models.PrivacyFriends, AllowComments: true}
	post := scheduledTiktokPost("s1", "p1")
	f := newTiktokFixture(t, []*models.ContentItem{product}, post)
	f.connect(t, "u1")

	require.NoError(t, f.svc.Publish(context.Background(), post))

	stored := f.pr.posts["s1"]
	assert.Equal(t, models.PostStatusPosted, stored.Status)
	assert.Equal(t, "pub-123", *stored.PublishID)
	assert.Equal(t, []string{"/v2/post/publish/creator_info/query/", "/v2/post/publish/content/init/"}, f.api.requests())

	var body transfer.PhotoUploadRequest
	require.NoError(t, json.Unmarshal(f.api.body("/v2/post/publish/content/init/"), &body))
	assert.Equal(t, TiktokMutualFollowFriends, body.PostInfo.PrivacyLevel)
	assert.Equal(t, "PULL_FROM_URL", body.SourceInfo.Source)
	assert.Equal(t, []string{"https://cdn.test/u1/p1.jpg"}, body.SourceInfo.PhotoImages)
	assert.Equal(t, "PHOTO", body.MediaType)
	assert.False(t, body.PostInfo.DisableComment)
}

func TestTiktokService_PublishVideoUsesPostSettings(t *testing.T) {
	post := scheduledTiktokPost("s1", "p1")
	post.VideoURL = strPtr("https://videos.test/clip.mp4")
	post.TiktokSettings = &models.TiktokSettings{PrivacyLevel: models.PrivacyPublic, CommercialContent: true, YourBrand: true}
	f := newTiktokFixture(t, []*models.ContentItem{productItem("p1")}, post)
	f.connect(t, "u1")

	require.NoError(t, f.svc.Publish(context.Background(), post))

	var body transfer.VideoUploadRequest
	require.NoError(t, json.Unmarshal(f.api.body("/v2/post/publish/video/init/"), &body))
	assert.Equal(t, "https://videos.test/clip.mp4", body.SourceInfo.VideoURL)
	assert.Equal(t, TiktokPublicToEveryone, body.PostInfo.PrivacyLevel)
	assert.True(t, body.PostInfo.BrandOrganicToggle)
	assert.True(t, body.PostInfo.DisableComment)
	assert.True(t, body.PostInfo.DisableDuet)
}

func TestTiktokService_PublishRejectsPrivateBrandedContentBeforeAnyRequest(t *testing.T) {
	product := productItem("p1")
	product.TiktokSettings = &models.TiktokSettings{PrivacyLevel: models.PrivacyOnlyMe, CommercialContent: true, BrandedContent: true}
	post := scheduledTiktokPost("s1", "p1")
	f := newTiktokFixture(t, []*models.ContentItem{product}, post)
	f.connect(t, "u1")

	err := f.svc.Publish(context.Background(), post)
	assert.ErrorIs(t, err, ErrCompliance)
	assert.Empty(t, f.api.requests())
	assert.Equal(t, models.PostStatusFailed, f.pr.posts["s1"].Status)
	require.NotNil(t, f.pr.posts["s1"].ErrorMessage)
	assert.Contains(t, *f.pr.posts["s1"].ErrorMessage, "branded content")
}

func TestTiktokService_PublishFailures(t *testing.T) {
	post := scheduledTiktokPost("s1", "p1")
	f := newTiktokFixture(t, []*models.ContentItem{productItem("p1")}, post)

	err := f.svc.Publish(context.Background(), post)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, models.PostStatusFailed, f.pr.posts["s1"].Status)

	f.connect(t, "u1")
	f.api.set(func(f *fakeTiktok) { f.privacyLevels = []string{TiktokSelfOnly} })
	err = f.svc.Publish(context.Background(), post)
	assert.ErrorIs(t, err, ErrValidation)

	noMedia := &models.ScheduledPost{ID: "s2", UserID: "u1", Platform: models.PlatformTiktok, Status: models.PostStatusScheduled}
	f.pr.posts["s2"] = noMedia
	err = f.svc.Publish(context.Background(), noMedia)
	assert.ErrorIs(t, err, ErrNoMedia)
}

func TestTiktokService_PublishTransientErrorKeepsPostScheduled(t *testing.T) {
	post := scheduledTiktokPost("s1", "p1")
	f := newTiktokFixture(t, []*models.ContentItem{productItem("p1")}, post)
	f.connect(t, "u1")
	f.conns.getErr = errors.New("driver: bad connection")

	err := f.svc.Publish(context.Background(), post)
	require.Error(t, err)
	assert.False(t, IsTerminal(err))
	assert.Equal(t, models.PostStatusScheduled, f.pr.posts["s1"].Status)
	assert.Nil(t, f.pr.posts["s1"].ErrorMessage)
	assert.Empty(t, f.api.requests())

	f.conns.getErr = nil
	require.NoError(t, f.svc.Publish(context.Background(), post))
	assert.Equal(t, models.PostStatusPosted, f.pr.posts["s1"].Status)
}

func TestTiktokService_LoginAndCallback(t *testing.T) {
	f := newTiktokFixture(t, nil)
	ctx := context.Background()

	loginURL, err := f.svc.LoginStart(ctx, "u1")
	require.NoError(t, err)
	parsed, err := url.Parse(loginURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	assert.NotEmpty(t, state)
	assert.Equal(t, "client-key", parsed.Query().Get("client_key"))
	assert.Equal(t, tiktokScopes, parsed.Query().Get("scope"))

	userID, err := f.svc.Callback(ctx, "auth-code", state)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
	assert.Equal(t, "auth-code", f.api.form("/v2/oauth/token/").Get("code"))

	conn := f.conns.conns["u1"]
	require.NotNil(t, conn)
	assert.Equal(t, "joesdiner", conn.TiktokUsername)
	assert.NotEqual(t, "tok-new", conn.AccessToken)
	plain, err := utils.Decrypt(conn.AccessToken, []byte(testSecretKey))
	require.NoError(t, err)
	assert.Equal(t, "tok-new", plain)

	_, err = f.svc.Callback(ctx, "auth-code", state)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestTiktokService_CallbackRejectsExpiredState(t *testing.T) {
	f := newTiktokFixture(t, nil)
	f.state.states["old"] = &models.OAuthState{State: "old", UserID: "u1", CreatedAt: time.Now().Add(-time.Hour)}

	_, err := f.svc.Callback(context.Background(), "code", "old")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Empty(t, f.api.requests())
}

func TestTiktokService_RefreshToken(t *testing.T) {
	f := newTiktokFixture(t, nil)
	f.connect(t, "u1")
	oldToken := f.conns.conns["u1"].AccessToken

	require.NoError(t, f.svc.RefreshToken(context.Background(), "u1"))
	assert.Equal(t, oldToken, f.conns.oldToken)
	assert.Equal(t, "refresh-1", f.api.form("/v2/oauth/token/").Get("refresh_token"))

	plain, err := utils.Decrypt(f.conns.conns["u1"].AccessToken, []byte(testSecretKey))
	require.NoError(t, err)
	assert.Equal(t, "tok-2", plain)

	assert.ErrorIs(t, f.svc.RefreshToken(context.Background(), "u2"), ErrNotConnected)
}

func TestTiktokService_DisconnectRemovesEvenWhenRevokeFails(t *testing.T) {
	f := newTiktokFixture(t, nil)
	f.connect(t, "u1")
	f.api.set(func(f *fakeTiktok) { f.revokeStatus = http.StatusBadRequest })

	require.NoError(t, f.svc.Disconnect(context.Background(), "u1"))
	assert.Empty(t, f.conns.conns)
	assert.Equal(t, "tok-1", f.api.form("/v2/oauth/revoke/").Get("token"))

	status, err := f.svc.Connection(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, status.Connected)
}

func TestTiktokService_ProcessImageFallsBackToOriginal(t *testing.T) {
	f := newTiktokFixture(t, nil)
	f.store.objects["u1/burger.png"] = pngBytes
	f.comp.err = errors.New("quota exceeded")

	resp, err := f.svc.ProcessImageForTikTok(context.Background(), "u1", "u1/burger.png")
	require.NoError(t, err)
	assert.Regexp(t, `^u1/tiktok-[A-Za-z0-9_-]+\.png$`, resp.Path)
	assert.Equal(t, "https://cdn.test/"+resp.Path, resp.URL)
	assert.Equal(t, pngBytes, f.store.objects[resp.Path])

	f.comp.err = nil
	f.comp.out = []byte("smaller")
	resp, err = f.svc.ProcessImageForTikTok(context.Background(), "u1", "u1/burger.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("smaller"), f.store.objects[resp.Path])

	_, err = f.svc.ProcessImageForTikTok(context.Background(), "u2", "u1/burger.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTiktokService_ProcessImageRejectsTraversal(t *testing.T) {
	f := newTiktokFixture(t, nil)
	f.store.objects["u2/secret.png"] = pngBytes

	for _, p := range []string{"u1/../u2/secret.png", "u1/./../u2/secret.png", "u1//secret.png", "u1/"} {
		_, err := f.svc.ProcessImageForTikTok(context.Background(), "u1", p)
		assert.ErrorIs(t, err, ErrNotFound, p)
	}
	assert.Len(t, f.store.objects, 1)
	assert.Zero(t, f.comp.calls)
}

func TestTokenExpiry(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(2*time.Hour), tokenExpiry(now, 7200))
	assert.Equal(t, now.Add(24*time.Hour), tokenExpiry(now, 0))
}

func TestTiktokService_CreatorInfo(t *testing.T) {
	f := newTiktokFixture(t, nil)

	_, err := f.svc.CreatorInfo(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, f.api.requests())

	f.connect(t, "u1")
	info, err := f.svc.CreatorInfo(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "joesdiner", info.CreatorUsername)
	assert.Contains(t, info.PrivacyLevelOptions, TiktokSelfOnly)
}

func TestTiktokService_ConfigAndConnection(t *testing.T) {
	f := newTiktokFixture(t, nil)

	cfg := f.svc.Config()
	assert.Equal(t, "client-key", cfg.ClientKey)
	assert.Equal(t, "https://app.test/auth/tiktok/callback", cfg.RedirectURI)
	assert.Equal(t, tiktokScopes, cfg.Scopes)

	conn, err := f.svc.Connection(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, conn.Connected)

	f.connect(t, "u1")
	conn, err = f.svc.Connection(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, conn.Connected)
	assert.Equal(t, "joesdiner", conn.Username)
}
