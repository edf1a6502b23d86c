package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fedutinova/drivescribe/internal/config"
	"github.com/fedutinova/drivescribe/internal/memq"
	httpapi "github.com/fedutinova/drivescribe/internal/transport/http"
	"github.com/stretchr/testify/assert"
)

func TestNewRouter_CORSPreflight(t *testing.T) {
	q := memq.NewMemoryQueue(1, time.Second)
	defer q.Shutdown(context.Background())

	h := NewRouter(&httpapi.Handlers{Q: q, Config: config.Config{CORSAllowedOrigins: []string{"https://sheets.example"}}})

	req := httptest.NewRequest(http.MethodOptions, "/process-video", nil)
	req.Header.Set("Origin", "https://sheets.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://sheets.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRouter_Health(t *testing.T) {
	q := memq.NewMemoryQueue(1, time.Second)
	defer q.Shutdown(context.Background())

	h := NewRouter(&httpapi.Handlers{Q: q, Config: config.Config{CORSAllowedOrigins: []string{"*"}}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}
