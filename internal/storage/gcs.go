package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GCSStorage struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
}

func NewGCSStorage(ctx context.Context, bucket, credentialsFile string) (*GCSStorage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("GCS_BUCKET is required for gcs storage")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	slog.Info("initializing GCS storage", "bucket", bucket)

	return &GCSStorage{
		client: client,
		bucket: client.Bucket(bucket),
		name:   bucket,
	}, nil
}

func (s *GCSStorage) UploadFile(ctx context.Context, filename string, content io.Reader, contentType string) (*UploadResult, error) {
	key := generateKey(filename)

	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, content); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to upload file to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize GCS upload: %w", err)
	}

	slog.Debug("file staged in GCS", "key", key, "bucket", s.name)

	return &UploadResult{
		Key: key,
		URL: fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.name, key),
	}, nil
}

func (s *GCSStorage) GetPresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	url, err := s.bucket.SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(expiration),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign GCS URL: %w", err)
	}
	return url, nil
}

func (s *GCSStorage) DeleteFile(ctx context.Context, key string) error {
	if err := s.bucket.Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete file from GCS: %w", err)
	}

	slog.Debug("file deleted from GCS", "key", key, "bucket", s.name)
	return nil
}

func (s *GCSStorage) GetFile(ctx context.Context, key string) (io.ReadCloser, string, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get file from GCS: %w", err)
	}

	contentType := r.Attrs.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return r, contentType, nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}
