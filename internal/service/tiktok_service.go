package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"slices"
	"strings"
	"time"

	config "github.com/maheshrc27/captionflow/configs"
	"github.com/maheshrc27/captionflow/internal/models"
	"github.com/maheshrc27/captionflow/internal/observability"
	"github.com/maheshrc27/captionflow/internal/repository"
	"github.com/maheshrc27/captionflow/internal/transfer"
	"github.com/maheshrc27/captionflow/pkg/utils"
)

const (
	oauthStateTTL      = 10 * time.Minute
	photoTitleMaxRunes = 90
)

type TiktokService interface {
	Publish(ctx context.Context, post *models.ScheduledPost) error
	LoginStart(ctx context.Context, userID string) (string, error)
	Callback(ctx context.Context, code, state string) (string, error)
	Config() transfer.TiktokConfigResponse
	CreatorInfo(ctx context.Context, userID string) (*transfer.TiktokCreatorInfo, error)
	RefreshToken(ctx context.Context, userID string) error
	RefreshConnection(ctx context.Context, conn *models.TiktokConnection) error
	Disconnect(ctx context.Context, userID string) error
	Connection(ctx context.Context, userID string) (*transfer.TiktokConnectionResponse, error)
	ProcessImageForTikTok(ctx context.Context, userID, imagePath string) (*transfer.ProcessImageResponse, error)
}

type tiktokService struct {
	cfg        config.Config
	api        *tiktokAPI
	cr         repository.ContentRepository
	pr         repository.ScheduledPostRepository
	tc         repository.TiktokConnectionRepository
	states     repository.OAuthStateRepository
	store      ObjectStore
	compressor ImageCompressor
	now        func() time.Time
}

func NewTiktokService(
	cfg config.Config,
	cr repository.ContentRepository,
	pr repository.ScheduledPostRepository,
	tc repository.TiktokConnectionRepository,
	states repository.OAuthStateRepository,
	store ObjectStore,
	compressor ImageCompressor) TiktokService {
	return &tiktokService{
		cfg:        cfg,
		api:        newTiktokAPI(cfg.TiktokAPIBaseURL, cfg.TiktokClientKey, cfg.TiktokClientSecret, cfg.TiktokRedirectURI),
		cr:         cr,
		pr:         pr,
		tc:         tc,
		states:     states,
		store:      store,
		compressor: compressor,
		now:        time.Now,
	}
}

// Publish sends the post to TikTok with PULL_FROM_URL and records the
// outcome on the row: posted with the publish id, or failed with the reason.
// Settings are validated before any request goes out. Transient errors leave
// the row scheduled so the task can be retried.
func (s *tiktokService) Publish(ctx context.Context, post *models.ScheduledPost) error {
	publishID, err := s.publish(ctx, post)
	if err != nil && !IsTerminal(err) {
		slog.Error("tiktok publish interrupted", "post_id", post.ID, "error", err)
		return err
	}
	if err != nil {
		msg := err.Error()
		if werr := s.pr.SetPublishResult(context.WithoutCancel(ctx), post.ID, models.PostStatusFailed, nil, &msg); werr != nil {
			slog.Info(werr.Error())
		}
		observability.PostsPublished.WithLabelValues(models.PlatformTiktok, "failed").Inc()
		slog.Error("tiktok publish failed", "post_id", post.ID, "error", err)
		return err
	}

	if err := s.pr.SetPublishResult(ctx, post.ID, models.PostStatusPosted, &publishID, nil); err != nil {
		return err
	}
	observability.PostsPublished.WithLabelValues(models.PlatformTiktok, "ok").Inc()
	slog.Info("tiktok publish accepted", "post_id", post.ID, "publish_id", publishID)
	return nil
}

func (s *tiktokService) publish(ctx context.Context, post *models.ScheduledPost) (string, error) {
	var item *models.ContentItem
	if kind, id := post.ItemRef(); kind != "" {
		var err error
		item, err = s.cr.GetByID(ctx, kind, id, post.UserID)
		if err != nil {
			return "", err
		}
	}

	var product *models.ContentItem
	if item != nil && item.Kind == models.ContentKindProduct {
		product = item
	}
	settings := ResolveSettings(post, product)

	privacy, err := MapPrivacy(settings.PrivacyLevel)
	if err != nil {
		return "", err
	}
	if err := ValidateCompliance(settings, privacy); err != nil {
		return "", err
	}

	mediaURL, isVideo, err := ResolveMediaURL(post, item, s.store.PublicURL)
	if err != nil {
		return "", err
	}

	accessToken, err := s.accessToken(ctx, post.UserID)
	if err != nil {
		return "", err
	}

	info, err := s.api.creatorInfo(ctx, accessToken)
	if err != nil {
		return "", upstreamError("tiktok creator info", err)
	}
	if len(info.PrivacyLevelOptions) > 0 && !slices.Contains(info.PrivacyLevelOptions, privacy) {
		return "", validationError("privacy level %s is not available for this account", privacy)
	}

	var publishID string
	if isVideo {
		publishID, err = s.api.publishVideo(ctx, accessToken, transfer.VideoUploadRequest{
			PostInfo: transfer.VideoPostInfo{
				Title:                 post.Caption,
				PrivacyLevel:          privacy,
				DisableDuet:           !settings.AllowDuet || info.DuetDisabled,
				DisableComment:        !settings.AllowComments || info.CommentDisabled,
				DisableStitch:         !settings.AllowStitch || info.StitchDisabled,
				VideoCoverTimestampMs: 1000,
				BrandContentToggle:    settings.BrandedContent,
				BrandOrganicToggle:    settings.YourBrand,
			},
			SourceInfo: transfer.VideoSourceInfo{
				Source:   "PULL_FROM_URL",
				VideoURL: mediaURL,
			},
		})
	} else {
		publishID, err = s.api.publishPhoto(ctx, accessToken, transfer.PhotoUploadRequest{
			PostInfo: transfer.PhotoPostInfo{
				Title:              truncateRunes(post.Caption, photoTitleMaxRunes),
				Description:        post.Caption,
				PrivacyLevel:       privacy,
				DisableComment:     !settings.AllowComments || info.CommentDisabled,
				AutoAddMusic:       true,
				BrandContentToggle: settings.BrandedContent,
				BrandOrganicToggle: settings.YourBrand,
			},
			SourceInfo: transfer.PhotoSourceInfo{
				Source:          "PULL_FROM_URL",
				PhotoCoverIndex: 0,
				PhotoImages:     []string{mediaURL},
			},
			PostMode:  "DIRECT_POST",
			MediaType: "PHOTO",
		})
	}
	if err != nil {
		return "", upstreamError("tiktok publish", err)
	}
	return publishID, nil
}

func (s *tiktokService) LoginStart(ctx context.Context, userID string) (string, error) {
	state, err := utils.GenerateRandomKey(32)
	if err != nil {
		return "", err
	}

	if err := s.states.Create(ctx, &models.OAuthState{State: state, UserID: userID, CreatedAt: s.now()}); err != nil {
		return "", err
	}

	params := url.Values{}
	params.Add("client_key", s.cfg.TiktokClientKey)
	params.Add("scope", tiktokScopes)
	params.Add("response_type", "code")
	params.Add("redirect_uri", s.cfg.TiktokRedirectURI)
	params.Add("state", state)

	return fmt.Sprintf("%s?%s", s.cfg.TiktokAuthURL, params.Encode()), nil
}

// Callback completes the OAuth flow and returns the user the state belonged to.
func (s *tiktokService) Callback(ctx context.Context, code, state string) (string, error) {
	if code == "" {
		return "", validationError("code is empty")
	}
	if state == "" {
		return "", ErrInvalidState
	}

	st, err := s.states.Consume(ctx, state)
	if err != nil {
		return "", err
	}
	if st == nil || s.now().Sub(st.CreatedAt) > oauthStateTTL {
		return "", ErrInvalidState
	}

	tokenResponse, err := s.api.exchangeCodeForToken(ctx, code)
	if err != nil {
		return "", upstreamError("tiktok token exchange", err)
	}

	user, err := s.api.userInfo(ctx, tokenResponse.AccessToken)
	if err != nil {
		return "", upstreamError("tiktok user info", err)
	}

	conn := &models.TiktokConnection{
		UserID:         st.UserID,
		TiktokUserID:   user.OpenID,
		TiktokUsername: user.Username,
		DisplayName:    user.DisplayName,
		AvatarURL:      user.AvatarURL,
		Scope:          tokenResponse.Scope,
		TokenExpiresAt: tokenExpiry(s.now(), tokenResponse.ExpiresIn),
	}
	if err := s.encryptTokens(conn, tokenResponse); err != nil {
		return "", err
	}

	if err := s.tc.Upsert(ctx, conn); err != nil {
		return "", err
	}
	return st.UserID, nil
}

func (s *tiktokService) Config() transfer.TiktokConfigResponse {
	return transfer.TiktokConfigResponse{
		ClientKey:   s.cfg.TiktokClientKey,
		RedirectURI: s.cfg.TiktokRedirectURI,
		Scopes:      tiktokScopes,
	}
}

func (s *tiktokService) CreatorInfo(ctx context.Context, userID string) (*transfer.TiktokCreatorInfo, error) {
	accessToken, err := s.accessToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	info, err := s.api.creatorInfo(ctx, accessToken)
	if err != nil {
		return nil, upstreamError("tiktok creator info", err)
	}
	return info, nil
}

func (s *tiktokService) RefreshToken(ctx context.Context, userID string) error {
	conn, err := s.tc.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if conn == nil {
		return ErrNotConnected
	}
	return s.RefreshConnection(ctx, conn)
}

// RefreshConnection swaps the stored tokens for fresh ones. The update is
// conditional on the old access token so concurrent refreshes cannot
// overwrite each other.
func (s *tiktokService) RefreshConnection(ctx context.Context, conn *models.TiktokConnection) error {
	refreshToken, err := utils.Decrypt(conn.RefreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	tokenResponse, err := s.api.refreshToken(ctx, refreshToken)
	if err != nil {
		return upstreamError("tiktok token refresh", err)
	}

	updated := &models.TiktokConnection{TokenExpiresAt: tokenExpiry(s.now(), tokenResponse.ExpiresIn)}
	if err := s.encryptTokens(updated, tokenResponse); err != nil {
		return err
	}

	return s.tc.SetToken(ctx, conn.UserID, conn.AccessToken, updated)
}

// Disconnect revokes the token and deletes the connection. A failed revoke
// is logged; the local connection is removed either way.
func (s *tiktokService) Disconnect(ctx context.Context, userID string) error {
	accessToken, err := s.accessToken(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.api.revoke(ctx, accessToken); err != nil {
		slog.Error("failed to revoke tiktok token", "user_id", userID, "error", err)
	}

	return s.tc.Remove(ctx, userID)
}

func (s *tiktokService) Connection(ctx context.Context, userID string) (*transfer.TiktokConnectionResponse, error) {
	conn, err := s.tc.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return &transfer.TiktokConnectionResponse{Connected: false}, nil
	}
	return &transfer.TiktokConnectionResponse{
		Connected:      true,
		Username:       conn.TiktokUsername,
		DisplayName:    conn.DisplayName,
		AvatarURL:      conn.AvatarURL,
		TokenExpiresAt: conn.TokenExpiresAt,
	}, nil
}

// ProcessImageForTikTok makes a compressed public copy of one of the user's
// images for TikTok to pull.
func (s *tiktokService) ProcessImageForTikTok(ctx context.Context, userID, imagePath string) (*transfer.ProcessImageResponse, error) {
	if !ownsObject(userID, imagePath) {
		return nil, ErrNotFound
	}

	data, err := s.store.Download(ctx, imagePath)
	if err != nil {
		return nil, err
	}
	fileType, err := DetectFileType(data)
	if err != nil {
		return nil, err
	}
	if mediaTypeOf(fileType) != models.MediaTypePhoto {
		return nil, validationError("only images can be processed")
	}

	data = compressOrOriginal(ctx, s.compressor, data)

	path, err := NewObjectPath(userID, "tiktok-", fileType.Extension)
	if err != nil {
		return nil, err
	}
	if err := s.store.Upload(ctx, path, data, fileType.MIME.Value); err != nil {
		return nil, err
	}

	return &transfer.ProcessImageResponse{URL: s.store.PublicURL(path), Path: path}, nil
}

// ownsObject reports whether objectPath is a clean key inside userID's folder.
func ownsObject(userID, objectPath string) bool {
	if userID == "" || path.Clean(objectPath) != objectPath {
		return false
	}
	for _, seg := range strings.Split(objectPath, "/") {
		if seg == ".." || seg == "." || seg == "" {
			return false
		}
	}
	return strings.HasPrefix(objectPath, userID+"/")
}

func (s *tiktokService) accessToken(ctx context.Context, userID string) (string, error) {
	conn, err := s.tc.GetByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	if conn == nil {
		return "", ErrNotConnected
	}
	return utils.Decrypt(conn.AccessToken, []byte(s.cfg.SecretKey))
}

func (s *tiktokService) encryptTokens(conn *models.TiktokConnection, tokens *transfer.TiktokTokenResponse) error {
	encryptedAccessToken, err := utils.Encrypt([]byte(tokens.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}
	encryptedRefreshToken, err := utils.Encrypt([]byte(tokens.RefreshToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}
	conn.AccessToken = encryptedAccessToken
	conn.RefreshToken = encryptedRefreshToken
	return nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
