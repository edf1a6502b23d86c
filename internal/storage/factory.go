package storage

import (
	"context"

	appconfig "github.com/fedutinova/drivescribe/internal/config"
)

func NewStorage(ctx context.Context, cfg appconfig.Config) (Storage, error) {
	switch cfg.StorageMode {
	case "s3", "aws", "localstack":
		return NewS3Storage(ctx, cfg)
	case "gcs", "google":
		return NewGCSStorage(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile)
	default:
		return NewLocalStorage(cfg.LocalStorageDir, cfg.LocalStorageURL)
	}
}

func GetStorageType(cfg appconfig.Config) string {
	switch cfg.StorageMode {
	case "s3", "aws", "localstack":
		if cfg.S3Endpoint != "" {
			return "S3-compatible (" + cfg.S3Endpoint + ")"
		}
		return "AWS S3"
	case "gcs", "google":
		return "Google Cloud Storage"
	case "local", "filesystem":
		return "Local Filesystem"
	default:
		return "Local Filesystem (default)"
	}
}
