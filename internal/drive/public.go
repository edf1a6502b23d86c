package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fedutinova/drivescribe/internal/common"
)

const userAgent = "drivescribe/1.0"

// PublicDownloader fetches files shared as "anyone with the link".
type PublicDownloader struct {
	baseURL  string
	maxBytes int64
	client   *http.Client
}

func NewPublicDownloader(baseURL string, maxBytes int64, timeout time.Duration) *PublicDownloader {
	return &PublicDownloader{
		baseURL:  baseURL,
		maxBytes: maxBytes,
		client:   &http.Client{Timeout: timeout},
	}
}

func (d *PublicDownloader) Download(ctx context.Context, fileID string) (*Media, error) {
	link := DownloadURL(d.baseURL, fileID)

	data, err := d.fetch(ctx, link)
	if err != nil {
		return nil, err
	}

	// large files get a virus-scan interstitial instead of content
	if isHTML(data) {
		slog.Info("drive returned interstitial, retrying with confirmation", "file_id", fileID)
		data, err = d.fetch(ctx, link+"&confirm=t")
		if err != nil {
			return nil, err
		}
		if isHTML(data) {
			return nil, common.SourceError{Message: fmt.Sprintf("google drive returned an HTML page for %s, the file may not be shared publicly", fileID)}
		}
	}

	media, err := newMedia(fileID, data)
	if err != nil {
		return nil, err
	}

	slog.Info("downloaded drive file",
		"file_id", fileID,
		"size_bytes", len(media.Data),
		"content_type", media.ContentType)

	return media, nil
}

func (d *PublicDownloader) fetch(ctx context.Context, link string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, common.WrapUpstream("google drive", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, common.SourceError{Message: "google drive file not found"}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, common.WrapUpstream("google drive", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	return readLimited(resp.Body, d.maxBytes)
}
