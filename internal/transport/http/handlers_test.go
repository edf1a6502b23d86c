package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fedutinova/drivescribe/internal/auth"
	"github.com/fedutinova/drivescribe/internal/common"
	"github.com/fedutinova/drivescribe/internal/config"
	"github.com/fedutinova/drivescribe/internal/drive"
	"github.com/fedutinova/drivescribe/internal/job"
	"github.com/fedutinova/drivescribe/internal/memq"
	"github.com/fedutinova/drivescribe/internal/models"
	"github.com/fedutinova/drivescribe/internal/storage"
	"github.com/fedutinova/drivescribe/internal/webhook"
	"github.com/fedutinova/drivescribe/internal/whisper"
	"github.com/fedutinova/drivescribe/internal/workers"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validBody = `{
	"google_drive_url": "https://drive.google.com/file/d/ABC123/view",
	"callback_url": "https://example.com/hook",
	"row_id": "row-1",
	"openai_api_key": "sk-test"
}`

type fakeQueue struct {
	err  error
	jobs []*job.Job
}

func (q *fakeQueue) Enqueue(ctx context.Context, j *job.Job) (uuid.UUID, error) {
	if q.err != nil {
		return uuid.Nil, q.err
	}
	j.ID = uuid.New()
	j.Status = job.StatusQueued
	q.jobs = append(q.jobs, j)
	return j.ID, nil
}

func (q *fakeQueue) Status(ctx context.Context, id uuid.UUID) (*job.Job, bool) {
	for _, j := range q.jobs {
		if j.ID == id {
			return j.Snapshot(), true
		}
	}
	return nil, false
}

func (q *fakeQueue) StartConsumers(ctx context.Context, n int, handler memq.JobHandler) {}
func (q *fakeQueue) Prune(olderThan time.Duration) int                                 { return 0 }
func (q *fakeQueue) Len() int                                                          { return len(q.jobs) }
func (q *fakeQueue) Shutdown(ctx context.Context) error                                { return nil }

func newRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()
	h.Routers(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router := newRouter(&Handlers{Q: &fakeQueue{}})

	rec := do(t, router, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"video-transcription"}`, rec.Body.String())
}

func TestReady_QueueFull(t *testing.T) {
	q := &fakeQueue{jobs: []*job.Job{{ID: uuid.New()}, {ID: uuid.New()}}}
	router := newRouter(&Handlers{Q: q, Config: config.Config{QueueBuf: 2}})

	rec := do(t, router, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var st HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, StatusUnhealthy, st.Status)
	assert.Contains(t, st.Checks, "queue")
	assert.NotContains(t, st.Checks, "redis")
}

func TestProcessVideo_Accepted(t *testing.T) {
	q := &fakeQueue{}
	router := newRouter(&Handlers{Q: q})

	rec := do(t, router, http.MethodPost, "/process-video", validBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"status":"processing","message":"Video processing started","row_id":"row-1"}`, rec.Body.String())

	require.Len(t, q.jobs, 1)
	j := q.jobs[0]
	assert.Equal(t, j.ID.String(), rec.Header().Get("X-Job-ID"))
	assert.Equal(t, job.TypeVideoTranscribe, j.Type)
	assert.Equal(t, "row-1", j.RowID)
	assert.Equal(t, "ABC123", j.FileID)

	var req models.ProcessRequest
	require.NoError(t, json.Unmarshal(j.Payload, &req))
	assert.Equal(t, "sk-test", req.OpenAIAPIKey)
}

func TestProcessVideo_UnparseableDriveLinkStillAccepted(t *testing.T) {
	q := &fakeQueue{}
	router := newRouter(&Handlers{Q: q})

	body := strings.Replace(validBody, "https://drive.google.com/file/d/ABC123/view", "https://example.com/video", 1)
	rec := do(t, router, http.MethodPost, "/process-video", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, q.jobs, 1)
	assert.Empty(t, q.jobs[0].FileID)
}

func TestProcessVideo_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"invalid json", `{"row_id":`, "invalid request body"},
		{"missing api key", `{"google_drive_url":"https://drive.google.com/file/d/A/view","callback_url":"https://example.com/hook","row_id":"r"}`,
			"Missing required field: openai_api_key"},
		{"bad callback", strings.Replace(validBody, "https://example.com/hook", "ftp://example.com/hook", 1),
			"Invalid field: callback_url must be a valid http(s) URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQueue{}
			rec := do(t, newRouter(&Handlers{Q: q}), http.MethodPost, "/process-video", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"`+tt.wantErr+`"}`, rec.Body.String())
			assert.Empty(t, q.jobs)
		})
	}
}

func TestProcessVideo_QueueFull(t *testing.T) {
	router := newRouter(&Handlers{Q: &fakeQueue{err: common.ErrQueueFull}})

	rec := do(t, router, http.MethodPost, "/process-video", validBody)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sk-test")
}

func TestGetJob(t *testing.T) {
	q := &fakeQueue{}
	router := newRouter(&Handlers{Q: q})

	rec := do(t, router, http.MethodPost, "/process-video", validBody)
	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get("X-Job-ID")

	rec = do(t, router, http.MethodGet, "/jobs/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sk-test")

	var got job.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, id, got.ID.String())
	assert.Equal(t, job.StatusQueued, got.Status)

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/jobs/not-a-uuid", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/jobs/"+uuid.NewString(), "").Code)
}

func TestAuth_RequiredWhenSecretSet(t *testing.T) {
	cfg := config.Config{AuthJWTSecret: "s3cret", AuthJWTIssuer: "drivescribe"}
	q := &fakeQueue{}
	router := newRouter(&Handlers{Q: q, Config: cfg})

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, router, http.MethodPost, "/process-video", validBody).Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(t, router, http.MethodPost, "/process-video", validBody, "Authorization", "Bearer garbage").Code)

	token, err := auth.NewToken(cfg.AuthJWTSecret, cfg.AuthJWTIssuer, "sheets-bot", time.Hour)
	require.NoError(t, err)
	rec := do(t, router, http.MethodPost, "/process-video", validBody, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, q.jobs, 1)
}

func TestProcessVideo_RateLimited(t *testing.T) {
	router := newRouter(&Handlers{Q: &fakeQueue{}, Config: config.Config{RateLimitPerMinute: 1}})

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/process-video", validBody).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, router, http.MethodPost, "/process-video", validBody).Code)
}

// minimal ISO-BMFF header that sniffs as video/mp4
var mp4Bytes = append([]byte{
	0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p',
	'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00,
	'i', 's', 'o', 'm', 'i', 's', 'o', '2',
}, make([]byte, 64)...)

// Drives a request through the real queue, worker and clients against local
// stand-ins for Drive, OpenAI and the caller's webhook.
func TestProcessVideo_EndToEnd(t *testing.T) {
	driveSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ABC123", r.URL.Query().Get("id"))
		w.Write(mp4Bytes)
	}))
	defer driveSrv.Close()

	openaiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"hello from row one"}`))
	}))
	defer openaiSrv.Close()

	callbacks := make(chan models.CallbackPayload, 2)
	hookSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var cb models.CallbackPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&cb))
		callbacks <- cb
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hookSrv.Close()

	store, err := storage.NewLocalStorage(t.TempDir(), "http://files.local")
	require.NoError(t, err)

	handler := workers.NewTranscriptionHandler(
		drive.NewPublicDownloader(driveSrv.URL+"/uc", 1<<20, 5*time.Second),
		store,
		whisper.NewClient(whisper.Options{BaseURL: openaiSrv.URL + "/v1"}),
		webhook.NewClient(5*time.Second, 1, time.Millisecond),
		workers.HandlerOptions{},
	)

	q := memq.NewMemoryQueue(4, 10*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.StartConsumers(ctx, 1, handler.HandleTranscriptionJob)

	router := newRouter(&Handlers{Q: q})
	body := strings.Replace(validBody, "https://example.com/hook", hookSrv.URL+"/hook", 1)

	rec := do(t, router, http.MethodPost, "/process-video", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"processing","message":"Video processing started","row_id":"row-1"}`, rec.Body.String())

	select {
	case cb := <-callbacks:
		assert.Equal(t, models.CallbackPayload{
			Status:     models.StatusSuccess,
			RowID:      "row-1",
			Transcript: "hello from row one",
			FileID:     "ABC123",
		}, cb)
	case <-time.After(5 * time.Second):
		t.Fatal("callback never arrived")
	}

	shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shCancel()
	require.NoError(t, q.Shutdown(shCtx))
	assert.Empty(t, callbacks, "exactly one callback per request")

	id, err := uuid.Parse(rec.Header().Get("X-Job-ID"))
	require.NoError(t, err)
	st, ok := q.Status(context.Background(), id)
	require.True(t, ok)
	assert.Equal(t, job.StatusSucceeded, st.Status)
}

func BenchmarkProcessVideo(b *testing.B) {
	router := newRouter(&Handlers{Q: &fakeQueue{}})
	payload := []byte(validBody)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodPost, "/process-video", bytes.NewReader(payload))
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
}
