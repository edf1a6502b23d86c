package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fedutinova/drivescribe/internal/auth"
	"github.com/fedutinova/drivescribe/internal/common"
	"github.com/fedutinova/drivescribe/internal/config"
	"github.com/fedutinova/drivescribe/internal/drive"
	"github.com/fedutinova/drivescribe/internal/job"
	"github.com/fedutinova/drivescribe/internal/memq"
	"github.com/fedutinova/drivescribe/internal/models"
	"github.com/fedutinova/drivescribe/internal/redis"
	"github.com/fedutinova/drivescribe/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
)

const maxRequestBody = 1 << 20

type Handlers struct {
	Q      memq.JobQueue
	Redis  *redis.Service // nil when no status mirror is configured
	Config config.Config
}

func (h *Handlers) Routers(r chi.Router) {
	r.Get("/", h.Health)
	r.Get("/ready", h.Ready)

	r.Group(func(r chi.Router) {
		if h.Config.AuthJWTSecret != "" {
			r.Use(auth.JWTMiddleware(h.Config.AuthJWTSecret, h.Config.AuthJWTIssuer))
		}

		submit := r
		if h.Config.RateLimitPerMinute > 0 {
			submit = r.With(httprate.LimitByIP(h.Config.RateLimitPerMinute, time.Minute))
		}
		submit.Post("/process-video", h.processVideo)

		r.Get("/jobs/{id}", h.getJob)
	})
}

func (h *Handlers) processVideo(w http.ResponseWriter, r *http.Request) {
	var req models.ProcessRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validation.ValidateProcessRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payload, err := json.Marshal(req)
	if err != nil {
		slog.Error("failed to marshal job payload", "row_id", req.RowID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	j := &job.Job{
		Type:    job.TypeVideoTranscribe,
		RowID:   req.RowID,
		Payload: payload,
	}
	// a bad link is still accepted and reported through the callback
	if fileID, err := drive.ExtractFileID(req.GoogleDriveURL); err == nil {
		j.FileID = fileID
	}

	jobID, err := h.Q.Enqueue(r.Context(), j)
	if err != nil {
		if common.IsUnavailable(err) {
			slog.Warn("job rejected", "row_id", req.RowID, "error", err)
			writeError(w, http.StatusServiceUnavailable, "service is busy, try again later")
			return
		}
		slog.Error("failed to enqueue job", "row_id", req.RowID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("video processing accepted", "job_id", jobID, "row_id", req.RowID, "file_id", j.FileID)

	w.Header().Set("X-Job-ID", jobID.String())
	writeJSON(w, http.StatusOK, models.ProcessResponse{
		Status:  models.StatusProcessing,
		Message: models.MessageProcessingStarted,
		RowID:   req.RowID,
	})
}

func (h *Handlers) getJob(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad id")
		return
	}
	j, ok := h.Q.Status(r.Context(), id)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		slog.Warn("encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
