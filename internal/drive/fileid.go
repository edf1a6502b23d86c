package drive

import (
	"net/url"
	"regexp"

	"github.com/fedutinova/drivescribe/internal/common"
)

// checked in order; the first match wins
var fileIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`id=([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`/open\?id=([a-zA-Z0-9_-]+)`),
}

var ErrNoFileID = common.SourceError{Message: "Could not extract file ID from Google Drive URL"}

// ExtractFileID pulls the Drive file identifier out of a share link.
func ExtractFileID(rawURL string) (string, error) {
	for _, p := range fileIDPatterns {
		if m := p.FindStringSubmatch(rawURL); m != nil {
			return m[1], nil
		}
	}
	return "", ErrNoFileID
}

// DownloadURL builds the direct-download link for a public file.
func DownloadURL(base, fileID string) string {
	q := url.Values{}
	q.Set("export", "download")
	q.Set("id", fileID)
	return base + "?" + q.Encode()
}
