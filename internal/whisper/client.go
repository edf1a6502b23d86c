package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fedutinova/drivescribe/internal/common"
	"github.com/sashabaranov/go-openai"
)

type Options struct {
	BaseURL    string
	Model      string
	Language   string
	HTTPClient *http.Client
}

// Client transcribes audio with the caller's own OpenAI key. Keys differ per
// request, so an openai.Client is built per call from a shared template.
type Client struct {
	baseURL    string
	model      string
	language   string
	httpClient *http.Client
}

type Result struct {
	Text             string
	Language         string
	Duration         float64
	Model            string
	ProcessingTimeMs int
}

func NewClient(opts Options) *Client {
	model := opts.Model
	if model == "" {
		model = openai.Whisper1
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    opts.BaseURL,
		model:      model,
		language:   opts.Language,
		httpClient: httpClient,
	}
}

func (c *Client) openAI(apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if c.baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(c.baseURL, "/")
	}
	cfg.HTTPClient = c.httpClient
	return openai.NewClientWithConfig(cfg)
}

// Transcribe uploads audio under filename; Whisper infers the container from
// the extension.
func (c *Client) Transcribe(ctx context.Context, apiKey, filename string, audio io.Reader) (*Result, error) {
	start := time.Now()

	slog.Info("sending audio to OpenAI", "model", c.model, "filename", filename)

	resp, err := c.openAI(apiKey).CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.model,
		FilePath: filename,
		Reader:   audio,
		Format:   openai.AudioResponseFormatJSON,
		Language: c.language,
	})
	if err != nil {
		slog.Error("OpenAI transcription error", "error", err, "model", c.model)
		return nil, common.WrapUpstream("openai", describeError(err))
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return nil, common.WrapUpstream("openai", errors.New("transcription returned no text"))
	}

	processingTime := time.Since(start)
	slog.Info("received transcription from OpenAI",
		"model", c.model,
		"transcript_length", len(text),
		"processing_time_ms", processingTime.Milliseconds())

	return &Result{
		Text:             text,
		Language:         resp.Language,
		Duration:         resp.Duration,
		Model:            c.model,
		ProcessingTimeMs: int(processingTime.Milliseconds()),
	}, nil
}

func describeError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("status %d: %w", reqErr.HTTPStatusCode, reqErr.Err)
	}
	return err
}
