package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/captionflow/internal/observability"
	gonanoid "github.com/matoous/go-nanoid/v2"
	storage "github.com/supabase-community/storage-go"
)

// ObjectStore is the public media bucket. Paths look like {userId}/{name}.{ext}.
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	Download(ctx context.Context, path string) ([]byte, error)
	Remove(ctx context.Context, paths ...string) error
	PublicURL(path string) string
}

type supabaseStore struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewSupabaseStore(supabaseURL, serviceRoleKey, bucket string) ObjectStore {
	baseURL := strings.TrimSuffix(supabaseURL, "/")
	return &supabaseStore{
		client:  storage.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil),
		bucket:  bucket,
		baseURL: baseURL,
	}
}

func (s *supabaseStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	upsert := true
	_, err := s.client.UploadFile(s.bucket, path, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("failed to upload file: %w", err)
	}
	return nil
}

func (s *supabaseStore) Download(ctx context.Context, path string) ([]byte, error) {
	data, err := s.client.DownloadFile(s.bucket, path)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	return data, nil
}

func (s *supabaseStore) Remove(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	if _, err := s.client.RemoveFile(s.bucket, paths); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("failed to remove files: %w", err)
	}
	return nil
}

func (s *supabaseStore) PublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, path)
}

var allowedMediaTypes = map[string]struct{}{
	"jpg": {}, "png": {}, "webp": {}, "mp4": {}, "mov": {},
}

// DetectFileType sniffs the bytes and returns the extension and MIME type.
func DetectFileType(data []byte) (types.Type, error) {
	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return types.Unknown, validationError("unsupported file type")
	}
	if _, ok := allowedMediaTypes[kind.Extension]; !ok {
		return types.Unknown, validationError("file type %s is not allowed", kind.Extension)
	}
	return kind, nil
}

// NewObjectPath returns {userID}/{prefix}{nanoid}.{ext}.
func NewObjectPath(userID, prefix, ext string) (string, error) {
	name, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s%s.%s", userID, prefix, name, ext), nil
}

func mediaTypeOf(kind types.Type) string {
	if kind.MIME.Type == "video" {
		return "video"
	}
	return "photo"
}

// compressOrOriginal returns the compressed bytes, or data unchanged when
// compression fails.
func compressOrOriginal(ctx context.Context, c ImageCompressor, data []byte) []byte {
	if c == nil {
		return data
	}
	compressed, err := c.Compress(ctx, data)
	if err != nil || len(compressed) == 0 {
		slog.Info("image compression failed, using original", "error", err)
		observability.CompressionFallbacks.Inc()
		return data
	}
	return compressed
}
