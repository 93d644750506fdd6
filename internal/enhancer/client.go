package enhancer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	JobQueued     = "queued"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type SubmitRequest struct {
	Image       string `json:"image"` // base64
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Upscale     bool   `json:"upscale"`
}

// Job is the enhancement job as reported by the API.
type Job struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	OutputURL string `json:"output_url,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (j *Job) Done() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Submit(ctx context.Context, image []byte, filename, contentType string) (*Job, error) {
	reqBody := SubmitRequest{
		Image:       base64.StdEncoding.EncodeToString(image),
		Filename:    filename,
		ContentType: contentType,
		Upscale:     true,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var job Job
	if err := c.do(ctx, http.MethodPost, "/v1/enhance", bytes.NewBuffer(jsonData), &job); err != nil {
		return nil, err
	}
	if job.JobID == "" {
		return nil, fmt.Errorf("enhancer: response has no job id")
	}
	return &job, nil
}

func (c *Client) Status(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	if err := c.do(ctx, http.MethodGet, "/v1/jobs/"+url.PathEscape(jobID), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Download fetches the enhanced image and its content type.
func (c *Client) Download(ctx context.Context, outputURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, outputURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	if strings.HasPrefix(outputURL, c.baseURL) {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("enhancer: download status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("enhancer: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
