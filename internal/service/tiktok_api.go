package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maheshrc27/captionflow/internal/transfer"
)

const tiktokScopes = "user.info.basic,user.info.profile,video.publish,video.upload"

// tiktokAPI talks to the TikTok v2 open API.
type tiktokAPI struct {
	baseURL      string
	clientKey    string
	clientSecret string
	redirectURI  string
	httpClient   *http.Client
}

func newTiktokAPI(baseURL, clientKey, clientSecret, redirectURI string) *tiktokAPI {
	return &tiktokAPI{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		clientKey:    clientKey,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *tiktokAPI) exchangeCodeForToken(ctx context.Context, code string) (*transfer.TiktokTokenResponse, error) {
	data := url.Values{}
	data.Add("client_key", a.clientKey)
	data.Add("client_secret", a.clientSecret)
	data.Add("code", code)
	data.Add("grant_type", "authorization_code")
	data.Add("redirect_uri", a.redirectURI)
	return a.tokenRequest(ctx, data)
}

func (a *tiktokAPI) refreshToken(ctx context.Context, refreshToken string) (*transfer.TiktokTokenResponse, error) {
	data := url.Values{}
	data.Set("client_key", a.clientKey)
	data.Set("client_secret", a.clientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	return a.tokenRequest(ctx, data)
}

func (a *tiktokAPI) tokenRequest(ctx context.Context, data url.Values) (*transfer.TiktokTokenResponse, error) {
	var tokenResponse transfer.TiktokTokenResponse
	status, err := a.postForm(ctx, "/v2/oauth/token/", data, &tokenResponse)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || tokenResponse.Error != "" || tokenResponse.AccessToken == "" {
		err := fmt.Errorf("token endpoint returned %d: %s %s", status, tokenResponse.Error, tokenResponse.ErrorDescription)
		slog.Info(err.Error())
		return nil, err
	}
	return &tokenResponse, nil
}

func (a *tiktokAPI) revoke(ctx context.Context, accessToken string) error {
	data := url.Values{}
	data.Set("client_key", a.clientKey)
	data.Set("client_secret", a.clientSecret)
	data.Set("token", accessToken)

	var result transfer.TiktokTokenResponse
	status, err := a.postForm(ctx, "/v2/oauth/revoke/", data, &result)
	if err != nil {
		return err
	}
	if status != http.StatusOK || result.Error != "" {
		return fmt.Errorf("failed to revoke token, status code %d: %s", status, result.ErrorDescription)
	}
	return nil
}

func (a *tiktokAPI) userInfo(ctx context.Context, accessToken string) (*transfer.TiktokUser, error) {
	var result transfer.TikTokResponse
	status, err := a.doJSON(ctx, http.MethodGet, "/v2/user/info/?fields=open_id,avatar_url,display_name,username", accessToken, nil, &result)
	if err != nil {
		return nil, err
	}
	if err := apiError(status, result.Error); err != nil {
		return nil, err
	}
	return &result.Data.User, nil
}

func (a *tiktokAPI) creatorInfo(ctx context.Context, accessToken string) (*transfer.TiktokCreatorInfo, error) {
	var result transfer.TiktokCreatorInfoResponse
	status, err := a.doJSON(ctx, http.MethodPost, "/v2/post/publish/creator_info/query/", accessToken, struct{}{}, &result)
	if err != nil {
		return nil, err
	}
	if err := apiError(status, result.Error); err != nil {
		return nil, err
	}
	return &result.Data, nil
}

func (a *tiktokAPI) publishVideo(ctx context.Context, accessToken string, req transfer.VideoUploadRequest) (string, error) {
	return a.publish(ctx, "/v2/post/publish/video/init/", accessToken, req)
}

func (a *tiktokAPI) publishPhoto(ctx context.Context, accessToken string, req transfer.PhotoUploadRequest) (string, error) {
	return a.publish(ctx, "/v2/post/publish/content/init/", accessToken, req)
}

func (a *tiktokAPI) publish(ctx context.Context, path, accessToken string, payload any) (string, error) {
	var result transfer.TikTokUploadResponse
	status, err := a.doJSON(ctx, http.MethodPost, path, accessToken, payload, &result)
	if err != nil {
		return "", err
	}
	if err := apiError(status, result.Error); err != nil {
		return "", err
	}
	if result.Data.PublishID == "" {
		return "", fmt.Errorf("tiktok returned no publish id")
	}
	return result.Data.PublishID, nil
}

func (a *tiktokAPI) doJSON(ctx context.Context, method, path, accessToken string, payload, out any) (int, error) {
	var body *bytes.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(jsonData)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	return a.do(req, out)
}

func (a *tiktokAPI) postForm(ctx context.Context, path string, data url.Values, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, strings.NewReader(data.Encode()))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return a.do(req, out)
}

func (a *tiktokAPI) do(req *http.Request, out any) (int, error) {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		slog.Info(err.Error())
		return resp.StatusCode, fmt.Errorf("failed to decode tiktok response (status %d): %w", resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}

func apiError(status int, e transfer.TiktokError) error {
	if status == http.StatusOK && !e.Failed() {
		return nil
	}
	err := fmt.Errorf("tiktok %s (status %d): %s", e.Code, status, e.Message)
	slog.Info(err.Error(), "log_id", e.LogID)
	return err
}
