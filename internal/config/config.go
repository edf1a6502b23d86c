package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string
	QueueWorkers    int
	QueueBuf        int
	JobMaxDuration  time.Duration
	ShutdownTimeout time.Duration

	StorageMode        string
	LocalStorageDir    string
	LocalStorageURL    string
	S3Bucket           string
	S3Endpoint         string
	S3Region           string
	AWSAccessKey       string
	AWSSecretKey       string
	S3ForcePathStyle   bool
	GCSBucket          string
	GCSCredentialsFile string
	ArchiveTranscripts bool
	ArchiveURLTTL      time.Duration

	DriveDownloadURL string
	DriveAPIKey      string
	DriveAPIEndpoint string
	MediaMaxBytes    int64
	DownloadTimeout  time.Duration

	OpenAIBaseURL   string
	WhisperModel    string
	WhisperLanguage string

	WebhookTimeout         time.Duration
	WebhookMaxAttempts     int
	WebhookBackoff         time.Duration
	WebhookDeliveryTimeout time.Duration

	RedisURL         string
	JobStatusTTL     time.Duration
	JobRetention     time.Duration
	JobPruneSchedule string

	RateLimitPerMinute int
	CORSAllowedOrigins []string
	AuthJWTSecret      string
	AuthJWTIssuer      string

	LogLevel  string
	LogFormat string
}

const defaultMediaMaxBytes = 25 << 20 // Whisper upload limit

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func mustInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
		slog.Warn("bad int env, using default", "key", key, "value", v)
	}
	return def
}

func mustInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
		slog.Warn("bad int env, using default", "key", key, "value", v)
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "true" || v == "1" {
			return true
		}
		if v == "false" || v == "0" {
			return false
		}
		slog.Warn("bad bool env, using default", "key", key, "value", v)
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
		slog.Warn("bad duration env, using default", "key", key, "value", v)
	}
	return def
}

func getList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func loadEnvFiles() {
	envFiles := []string{
		".env.local",
		".env",
	}

	currentDir, err := os.Getwd()
	if err != nil {
		slog.Debug("failed to get current directory", "error", err)
		return
	}

	// look in current directory and up to 3 parent directories
	searchDirs := []string{currentDir}
	for i := 0; i < 3; i++ {
		parent := filepath.Dir(currentDir)
		if parent == currentDir {
			break
		}
		searchDirs = append(searchDirs, parent)
		currentDir = parent
	}

	loadedAny := false
	for _, dir := range searchDirs {
		for _, envFile := range envFiles {
			envPath := filepath.Join(dir, envFile)
			if _, err := os.Stat(envPath); err == nil {
				if err := godotenv.Load(envPath); err == nil {
					slog.Debug("loaded environment file", "path", envPath)
					loadedAny = true
				} else {
					slog.Debug("failed to load environment file", "path", envPath, "error", err)
				}
			}
		}
		if loadedAny {
			break
		}
	}

	if !loadedAny {
		slog.Debug("no .env files found, using system environment variables only")
	}
}

func Load() Config {
	loadEnvFiles()
	return fromEnv()
}

func fromEnv() Config {
	localDir := getenv("LOCAL_STORAGE_DIR", filepath.Join(os.TempDir(), "drivescribe"))

	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":"+getenv("PORT", "5000")),
		QueueWorkers:    mustInt("QUEUE_WORKERS", 2),
		QueueBuf:        mustInt("QUEUE_BUFFER", 100),
		JobMaxDuration:  mustDuration("JOB_MAX_DURATION", 15*time.Minute),
		ShutdownTimeout: mustDuration("SHUTDOWN_TIMEOUT", 2*time.Minute),

		StorageMode:        getenv("STORAGE_MODE", "local"),
		LocalStorageDir:    localDir,
		LocalStorageURL:    getenv("LOCAL_STORAGE_URL", "file://"+filepath.ToSlash(localDir)),
		S3Bucket:           getenv("S3_BUCKET", "drivescribe-media"),
		S3Endpoint:         getenv("S3_ENDPOINT", ""),
		S3Region:           getenv("S3_REGION", "us-east-1"),
		AWSAccessKey:       getenv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:       getenv("AWS_SECRET_ACCESS_KEY", ""),
		S3ForcePathStyle:   getBool("S3_FORCE_PATH_STYLE", false),
		GCSBucket:          getenv("GCS_BUCKET", ""),
		GCSCredentialsFile: getenv("GCS_CREDENTIALS_FILE", ""),
		ArchiveTranscripts: getBool("ARCHIVE_TRANSCRIPTS", false),
		ArchiveURLTTL:      mustDuration("ARCHIVE_URL_TTL", 7*24*time.Hour),

		DriveDownloadURL: getenv("DRIVE_DOWNLOAD_URL", "https://drive.google.com/uc"),
		DriveAPIKey:      getenv("DRIVE_API_KEY", ""),
		DriveAPIEndpoint: getenv("DRIVE_API_ENDPOINT", ""),
		MediaMaxBytes:    mustInt64("MEDIA_MAX_BYTES", defaultMediaMaxBytes),
		DownloadTimeout:  mustDuration("DOWNLOAD_TIMEOUT", 10*time.Minute),

		OpenAIBaseURL:   getenv("OPENAI_BASE_URL", ""),
		WhisperModel:    getenv("WHISPER_MODEL", "whisper-1"),
		WhisperLanguage: getenv("WHISPER_LANGUAGE", ""),

		WebhookTimeout:         mustDuration("WEBHOOK_TIMEOUT", 30*time.Second),
		WebhookMaxAttempts:     mustInt("WEBHOOK_MAX_ATTEMPTS", 3),
		WebhookBackoff:         mustDuration("WEBHOOK_BACKOFF", 2*time.Second),
		WebhookDeliveryTimeout: mustDuration("WEBHOOK_DELIVERY_TIMEOUT", 2*time.Minute),

		RedisURL:         getenv("REDIS_URL", ""),
		JobStatusTTL:     mustDuration("JOB_STATUS_TTL", 24*time.Hour),
		JobRetention:     mustDuration("JOB_RETENTION", time.Hour),
		JobPruneSchedule: getenv("JOB_PRUNE_SCHEDULE", "@every 10m"),

		RateLimitPerMinute: mustInt("RATE_LIMIT_PER_MINUTE", 60),
		CORSAllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		AuthJWTSecret:      getenv("AUTH_JWT_SECRET", ""),
		AuthJWTIssuer:      getenv("AUTH_JWT_ISSUER", "drivescribe"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),
	}
}

// SlogLevel maps LogLevel onto slog levels, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
