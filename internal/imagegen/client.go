package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrNoImages = errors.New("image generator returned no images")

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	backoffs   []time.Duration
}

type VariationRequest struct {
	Image       string `json:"image"` // base64
	ContentType string `json:"content_type"`
	Prompt      string `json:"prompt,omitempty"`
	N           int    `json:"n"`
}

type VariationResponse struct {
	Images []struct {
		B64  string `json:"b64,omitempty"`
		URL  string `json:"url,omitempty"`
		Type string `json:"type,omitempty"`
	} `json:"images"`
	Error string `json:"error,omitempty"`
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		backoffs: []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
	}
}

// GenerateVariations asks for n variations of image and returns their bytes
// in the order the generator produced them.
func (c *Client) GenerateVariations(ctx context.Context, image []byte, contentType, prompt string, n int) ([][]byte, error) {
	reqBody := VariationRequest{
		Image:       base64.StdEncoding.EncodeToString(image),
		ContentType: contentType,
		Prompt:      prompt,
		N:           n,
	}

	var result *VariationResponse
	err := c.RetryWithBackoff(ctx, func() error {
		var err error
		result, err = c.requestVariations(ctx, reqBody)
		return err
	}, 3)
	if err != nil {
		return nil, err
	}

	if len(result.Images) == 0 {
		return nil, ErrNoImages
	}

	images := make([][]byte, 0, len(result.Images))
	for i, img := range result.Images {
		var data []byte
		switch {
		case img.B64 != "":
			data, err = base64.StdEncoding.DecodeString(img.B64)
		case img.URL != "":
			data, err = c.download(ctx, img.URL)
		default:
			err = errors.New("variation has neither data nor url")
		}
		if err != nil {
			return nil, fmt.Errorf("variation %d: %w", i+1, err)
		}
		images = append(images, data)
	}

	return images, nil
}

func (c *Client) requestVariations(ctx context.Context, reqBody VariationRequest) (*VariationResponse, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/variations", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image generator: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result VariationResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// RetryWithBackoff executes fn up to maxRetries times, sleeping between
// attempts. It stops early when ctx is done.
func (c *Client) RetryWithBackoff(ctx context.Context, fn func() error, maxRetries int) error {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if i == maxRetries-1 || i >= len(c.backoffs) {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoffs[i]):
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}
