package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/fedutinova/drivescribe/internal/drive"
	"github.com/fedutinova/drivescribe/internal/job"
	"github.com/fedutinova/drivescribe/internal/models"
	"github.com/fedutinova/drivescribe/internal/storage"
	"github.com/fedutinova/drivescribe/internal/whisper"
)

type Transcriber interface {
	Transcribe(ctx context.Context, apiKey, filename string, audio io.Reader) (*whisper.Result, error)
}

type Notifier interface {
	Send(ctx context.Context, url string, payload any) error
}

type HandlerOptions struct {
	// ArchiveTranscripts keeps a copy of each transcript in storage.
	ArchiveTranscripts bool
	ArchiveURLTTL      time.Duration
	// DeliveryTimeout bounds the callback, which runs after the job deadline.
	DeliveryTimeout time.Duration
}

type TranscriptionHandler struct {
	downloader  drive.Downloader
	storage     storage.Storage
	transcriber Transcriber
	notifier    Notifier
	opts        HandlerOptions
}

func NewTranscriptionHandler(downloader drive.Downloader, storageService storage.Storage, transcriber Transcriber, notifier Notifier, opts HandlerOptions) *TranscriptionHandler {
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = 2 * time.Minute
	}
	if opts.ArchiveURLTTL <= 0 {
		opts.ArchiveURLTTL = 7 * 24 * time.Hour
	}
	return &TranscriptionHandler{
		downloader:  downloader,
		storage:     storageService,
		transcriber: transcriber,
		notifier:    notifier,
		opts:        opts,
	}
}

// HandleTranscriptionJob runs one request end to end and always reports the
// outcome to the caller's callback URL exactly once.
func (h *TranscriptionHandler) HandleTranscriptionJob(ctx context.Context, j *job.Job) error {
	// no callback URL is known before the payload decodes, so these two
	// returns only mark the job failed
	if j.Type != job.TypeVideoTranscribe {
		return fmt.Errorf("unexpected job type: %s", j.Type)
	}

	var req models.ProcessRequest
	if err := json.Unmarshal(j.Payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal job payload: %w", err)
	}

	cb, runErr := h.runSafely(ctx, j, &req)
	if runErr != nil {
		if errors.Is(runErr, context.DeadlineExceeded) {
			runErr = fmt.Errorf("video processing timed out: %w", runErr)
		}
		slog.Error("error processing video", "job_id", j.ID, "row_id", req.RowID, "error", runErr)
		cb = models.ErrorCallback(req.RowID, runErr)
	}

	if err := h.deliver(ctx, req.CallbackURL, cb); err != nil {
		slog.Error("webhook error", "job_id", j.ID, "row_id", req.RowID, "error", err)
		return errors.Join(runErr, err)
	}
	return runErr
}

func (h *TranscriptionHandler) runSafely(ctx context.Context, j *job.Job, req *models.ProcessRequest) (cb models.CallbackPayload, err error) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("panic while processing video", "job_id", j.ID, "panic", p)
			err = fmt.Errorf("internal error while processing video: %v", p)
		}
	}()
	return h.run(ctx, j, req)
}

func (h *TranscriptionHandler) run(ctx context.Context, j *job.Job, req *models.ProcessRequest) (models.CallbackPayload, error) {
	fileID, err := drive.ExtractFileID(req.GoogleDriveURL)
	if err != nil {
		return models.CallbackPayload{}, err
	}

	slog.Info("downloading file", "job_id", j.ID, "file_id", fileID, "row_id", req.RowID)
	media, err := h.downloader.Download(ctx, fileID)
	if err != nil {
		return models.CallbackPayload{}, err
	}

	staged, err := h.storage.UploadFile(ctx, media.Filename(), media.Reader(), media.ContentType)
	if err != nil {
		return models.CallbackPayload{}, fmt.Errorf("failed to stage media: %w", err)
	}
	defer h.discard(ctx, staged.Key)
	filename := media.Filename()
	media.Data = nil // the upload streams from staging

	audio, _, err := h.storage.GetFile(ctx, staged.Key)
	if err != nil {
		return models.CallbackPayload{}, fmt.Errorf("failed to read staged media: %w", err)
	}
	defer audio.Close()

	slog.Info("transcribing file", "job_id", j.ID, "file_id", fileID)
	result, err := h.transcriber.Transcribe(ctx, req.OpenAIAPIKey, filename, audio)
	if err != nil {
		return models.CallbackPayload{}, err
	}

	cb := models.SuccessCallback(req.RowID, fileID, result.Text)
	if h.opts.ArchiveTranscripts {
		url, err := h.archive(ctx, fileID, result.Text)
		if err != nil {
			slog.Warn("failed to archive transcript", "job_id", j.ID, "file_id", fileID, "error", err)
		} else {
			cb.TranscriptURL = url
		}
	}

	slog.Info("transcription finished",
		"job_id", j.ID,
		"file_id", fileID,
		"transcript_length", len(result.Text),
		"processing_time_ms", result.ProcessingTimeMs)

	return cb, nil
}

func (h *TranscriptionHandler) archive(ctx context.Context, fileID, transcript string) (string, error) {
	res, err := h.storage.UploadFile(ctx, "transcript_"+fileID+".txt", strings.NewReader(transcript), "text/plain; charset=utf-8")
	if err != nil {
		return "", err
	}
	return h.storage.GetPresignedURL(ctx, res.Key, h.opts.ArchiveURLTTL)
}

// discard removes staged media even when the job context has expired.
func (h *TranscriptionHandler) discard(ctx context.Context, key string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := h.storage.DeleteFile(cleanupCtx, key); err != nil {
		slog.Warn("failed to delete staged media", "key", key, "error", err)
	}
}

func (h *TranscriptionHandler) deliver(ctx context.Context, url string, cb models.CallbackPayload) error {
	deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.opts.DeliveryTimeout)
	defer cancel()
	return h.notifier.Send(deliverCtx, url, cb)
}
