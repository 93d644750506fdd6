package tinypng

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("tinypng api key is not configured")

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type ShrinkResponse struct {
	Input struct {
		Size int64  `json:"size"`
		Type string `json:"type"`
	} `json:"input"`
	Output struct {
		Size  int64   `json:"size"`
		Type  string  `json:"type"`
		Ratio float64 `json:"ratio"`
		URL   string  `json:"url"`
	} `json:"output"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Compress uploads the image to the shrink endpoint and downloads the
// compressed result.
func (c *Client) Compress(ctx context.Context, data []byte) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/shrink", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth("api", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result ShrinkResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("tinypng: status %d: %s %s", resp.StatusCode, result.Error, result.Message)
	}

	outputURL := result.Output.URL
	if outputURL == "" {
		outputURL = resp.Header.Get("Location")
	}
	if outputURL == "" {
		return nil, errors.New("tinypng: response has no output url")
	}

	return c.download(ctx, outputURL)
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth("api", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tinypng: download status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
