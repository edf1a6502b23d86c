package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fedutinova/drivescribe/internal/auth"
	appconfig "github.com/fedutinova/drivescribe/internal/config"
	"github.com/fedutinova/drivescribe/internal/drive"
	"github.com/fedutinova/drivescribe/internal/job"
	"github.com/fedutinova/drivescribe/internal/memq"
	"github.com/fedutinova/drivescribe/internal/redis"
	"github.com/fedutinova/drivescribe/internal/server"
	"github.com/fedutinova/drivescribe/internal/storage"
	httpapi "github.com/fedutinova/drivescribe/internal/transport/http"
	"github.com/fedutinova/drivescribe/internal/webhook"
	"github.com/fedutinova/drivescribe/internal/whisper"
	"github.com/fedutinova/drivescribe/internal/workers"
	"github.com/robfig/cron/v3"
)

func main() {
	issueToken := flag.String("issue-token", "", "print a bearer token for the given subject and exit")
	tokenTTL := flag.Duration("token-ttl", 0, "lifetime of the issued token (0 means no expiry)")
	flag.Parse()

	cfg := appconfig.Load()
	setupLogger(cfg)

	if *issueToken != "" {
		if cfg.AuthJWTSecret == "" {
			fmt.Fprintln(os.Stderr, "AUTH_JWT_SECRET must be set to issue tokens")
			os.Exit(1)
		}
		token, err := auth.NewToken(cfg.AuthJWTSecret, cfg.AuthJWTIssuer, *issueToken, *tokenTTL)
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to issue token:", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	slog.Info("starting drivescribe", "addr", cfg.HTTPAddr, "workers", cfg.QueueWorkers)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storageService, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize storage", "err", err)
		os.Exit(1)
	}
	if c, ok := storageService.(io.Closer); ok {
		defer c.Close()
	}
	slog.Info("storage initialized", "type", storage.GetStorageType(cfg))

	var downloader drive.Downloader
	if cfg.DriveAPIKey != "" {
		apiDownloader, err := drive.NewAPIDownloader(ctx, cfg.DriveAPIKey, cfg.DriveAPIEndpoint, cfg.MediaMaxBytes)
		if err != nil {
			slog.Error("failed to initialize drive client", "err", err)
			os.Exit(1)
		}
		downloader = apiDownloader
		slog.Info("drive downloads use the Drive API")
	} else {
		downloader = drive.NewPublicDownloader(cfg.DriveDownloadURL, cfg.MediaMaxBytes, cfg.DownloadTimeout)
	}

	var opts []memq.Option
	var redisService *redis.Service
	if cfg.RedisURL != "" {
		redisService, err = redis.New(cfg.RedisURL, cfg.JobStatusTTL)
		if err != nil {
			slog.Error("failed to connect to Redis", "err", err)
			os.Exit(1)
		}
		defer redisService.Close()
		opts = append(opts, memq.WithStatusStore(redisService))
		slog.Info("job status mirrored to redis", "ttl", cfg.JobStatusTTL)
	}

	transcriber := whisper.NewClient(whisper.Options{
		BaseURL:  cfg.OpenAIBaseURL,
		Model:    cfg.WhisperModel,
		Language: cfg.WhisperLanguage,
	})
	notifier := webhook.NewClient(cfg.WebhookTimeout, cfg.WebhookMaxAttempts, cfg.WebhookBackoff)

	q := memq.NewMemoryQueue(cfg.QueueBuf, cfg.JobMaxDuration, opts...)
	transcriptionHandler := workers.NewTranscriptionHandler(downloader, storageService, transcriber, notifier, workers.HandlerOptions{
		ArchiveTranscripts: cfg.ArchiveTranscripts,
		ArchiveURLTTL:      cfg.ArchiveURLTTL,
		DeliveryTimeout:    cfg.WebhookDeliveryTimeout,
	})

	handlers := &httpapi.Handlers{
		Q:      q,
		Redis:  redisService,
		Config: cfg,
	}
	r := server.NewRouter(handlers)

	q.StartConsumers(ctx, cfg.QueueWorkers, func(ctx context.Context, j *job.Job) error {
		switch j.Type {
		case job.TypeVideoTranscribe:
			return transcriptionHandler.HandleTranscriptionJob(ctx, j)
		default:
			return fmt.Errorf("unknown job type: %s", j.Type)
		}
	})

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.JobPruneSchedule, func() {
		if n := q.Prune(cfg.JobRetention); n > 0 {
			slog.Info("pruned finished jobs", "count", n)
		}
	}); err != nil {
		slog.Error("invalid JOB_PRUNE_SCHEDULE", "schedule", cfg.JobPruneSchedule, "err", err)
		os.Exit(1)
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
	slog.Info("shutting down")

	shCtx, shCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shCancel()
	if err := srv.Shutdown(shCtx); err != nil {
		slog.Warn("http shutdown", "err", err)
	}

	// accepted jobs still owe their callers a callback
	if err := q.Shutdown(shCtx); err != nil {
		slog.Error("queue did not drain", "err", err)
	}
	<-scheduler.Stop().Done()
	cancel()
	slog.Info("shutdown complete")
}

func setupLogger(cfg appconfig.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler).With("service", "drivescribe"))
}
