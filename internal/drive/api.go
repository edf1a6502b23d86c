package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fedutinova/drivescribe/internal/common"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// APIDownloader uses the Drive v3 API with an API key, which skips the
// interstitial pages of the public link and works for shared drives.
type APIDownloader struct {
	files    *gdrive.FilesService
	maxBytes int64
}

func NewAPIDownloader(ctx context.Context, apiKey, endpoint string, maxBytes int64) (*APIDownloader, error) {
	opts := []option.ClientOption{
		option.WithAPIKey(apiKey),
		option.WithUserAgent(userAgent),
	}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &APIDownloader{files: svc.Files, maxBytes: maxBytes}, nil
}

func (d *APIDownloader) Download(ctx context.Context, fileID string) (*Media, error) {
	resp, err := d.files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusForbidden) {
			return nil, common.SourceError{Message: fmt.Sprintf("google drive file %s not accessible (status %d)", fileID, apiErr.Code)}
		}
		return nil, common.WrapUpstream("google drive api", err)
	}
	defer resp.Body.Close()

	data, err := readLimited(resp.Body, d.maxBytes)
	if err != nil {
		return nil, err
	}

	media, err := newMedia(fileID, data)
	if err != nil {
		return nil, err
	}

	slog.Info("downloaded drive file via api",
		"file_id", fileID,
		"size_bytes", len(media.Data),
		"content_type", media.ContentType)

	return media, nil
}
