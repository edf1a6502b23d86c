package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const keyPrefix = "drivescribe"

func generateKey(filename string) string {
	ext := filepath.Ext(filename)
	basename := strings.TrimSuffix(filepath.Base(filename), ext)

	safeBasename := strings.ReplaceAll(basename, " ", "_")
	safeBasename = strings.ReplaceAll(safeBasename, "/", "_")

	timestamp := time.Now().UTC().Format("2006/01/02")
	uniqueID := uuid.New().String()[:8]

	return fmt.Sprintf("%s/%s/%s_%s%s", keyPrefix, timestamp, safeBasename, uniqueID, ext)
}
