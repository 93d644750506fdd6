package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	cfg "github.com/maheshrc27/captionflow/configs"
)

// r2Store keeps media in a Cloudflare R2 bucket through the S3 API.
type r2Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func NewR2Store(ctx context.Context, c cfg.R2) (ObjectStore, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID))
	})

	return &r2Store{
		client:    client,
		bucket:    c.BucketName,
		publicURL: strings.TrimSuffix(c.PublicURL, "/"),
	}, nil
}

func (r *r2Store) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	if _, err := r.client.PutObject(ctx, input); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *r2Store) Download(ctx context.Context, path string) ([]byte, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

func (r *r2Store) Remove(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}

	objects := make([]s3types.ObjectIdentifier, 0, len(paths))
	for _, p := range paths {
		objects = append(objects, s3types.ObjectIdentifier{Key: aws.String(p)})
	}

	_, err := r.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(r.bucket),
		Delete: &s3types.Delete{Objects: objects, Quiet: aws.Bool(true)},
	})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *r2Store) PublicURL(path string) string {
	return r.publicURL + "/" + path
}
