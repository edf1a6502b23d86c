package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/fedutinova/drivescribe/internal/common"
	"github.com/gabriel-vasile/mimetype"
)

// Media is a downloaded file ready for transcription.
type Media struct {
	FileID      string
	Data        []byte
	ContentType string
	// Extension is the one Whisper should see in the upload filename.
	Extension string
}

func (m *Media) Filename() string {
	return m.FileID + m.Extension
}

func (m *Media) Reader() io.Reader {
	return bytes.NewReader(m.Data)
}

type Downloader interface {
	Download(ctx context.Context, fileID string) (*Media, error)
}

// containers Whisper accepts, keyed by detected MIME type
var uploadExtensions = map[string]string{
	"video/mp4":       ".mp4",
	"video/quicktime": ".mp4", // ISO-BMFF, accepted under the mp4 name
	"audio/mp4":       ".m4a",
	"audio/x-m4a":     ".m4a",
	"audio/mpeg":      ".mp3",
	"video/mpeg":      ".mpeg",
	"audio/wav":       ".wav",
	"audio/x-wav":     ".wav",
	"video/webm":      ".webm",
	"audio/webm":      ".webm",
	"audio/ogg":       ".ogg",
	"video/ogg":       ".ogg",
	"audio/flac":      ".flac",
}

func readLimited(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, common.WrapUpstream("google drive", fmt.Errorf("failed to read file data: %w", err))
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("file exceeds %d bytes: %w", max, common.ErrMediaTooLarge)
	}
	if len(data) == 0 {
		return nil, common.SourceError{Message: "google drive returned an empty file"}
	}
	return data, nil
}

func isHTML(data []byte) bool {
	return mimetype.Detect(data).Is("text/html")
}

func newMedia(fileID string, data []byte) (*Media, error) {
	mt := mimetype.Detect(data)
	for t := mt; t != nil; t = t.Parent() {
		if ext, ok := uploadExtensions[t.String()]; ok {
			return &Media{
				FileID:      fileID,
				Data:        data,
				ContentType: mt.String(),
				Extension:   ext,
			}, nil
		}
	}
	return nil, common.SourceError{Message: fmt.Sprintf("unsupported media type %s", mt.String())}
}
