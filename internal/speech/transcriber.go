package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/intervox-ai/intervox/internal/api"
	"github.com/intervox-ai/intervox/internal/config"
	"github.com/intervox-ai/intervox/internal/metrics"
)

var audioExtensions = []string{".wav", ".mp3", ".m4a", ".webm", ".ogg"}

// ValidUpload reports whether the upload looks like audio, either by content
// type or by a known extension behind an octet-stream type.
func ValidUpload(contentType, filename string) bool {
	ct := strings.ToLower(contentType)
	if strings.HasPrefix(ct, "audio/") {
		return true
	}
	if ct == "application/octet-stream" {
		name := strings.ToLower(filename)
		for _, ext := range audioExtensions {
			if strings.HasSuffix(name, ext) {
				return true
			}
		}
	}
	return false
}

// Transcriber converts candidate audio answers to text through an
// OpenAI-compatible transcriptions API.
type Transcriber struct {
	cfg        config.OpenAIConfig
	httpClient *http.Client
	maxBytes   int64
}

func NewTranscriber(cfg config.OpenAIConfig, maxBytes int64) *Transcriber {
	return &Transcriber{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxBytes:   maxBytes,
	}
}

// Transcribe uploads the audio and returns its transcript. Uploads larger
// than the configured cap fail with a ValidationError before any API call.
func (t *Transcriber) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(audio, t.maxBytes+1))
	if err != nil {
		return "", api.NewGenerationError(fmt.Errorf("reading audio upload: %w", err))
	}
	if int64(len(data)) > t.maxBytes {
		return "", api.NewValidationError(fmt.Sprintf("audio upload exceeds %d bytes", t.maxBytes))
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", api.NewGenerationError(fmt.Errorf("building multipart body: %w", err))
	}
	if _, err := part.Write(data); err != nil {
		return "", api.NewGenerationError(fmt.Errorf("writing multipart body: %w", err))
	}
	if err := mw.WriteField("model", t.cfg.TranscribeModel); err != nil {
		return "", api.NewGenerationError(fmt.Errorf("writing model field: %w", err))
	}
	if err := mw.Close(); err != nil {
		return "", api.NewGenerationError(fmt.Errorf("closing multipart body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(t.cfg.BaseURL, "/")+"/audio/transcriptions", &body)
	if err != nil {
		return "", api.NewGenerationError(fmt.Errorf("building transcription request: %w", err))
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		metrics.TranscriptionsTotal.WithLabelValues("error").Inc()
		return "", api.NewGenerationError(fmt.Errorf("calling transcriptions: %w", err))
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.TranscriptionsTotal.WithLabelValues("error").Inc()
		return "", api.NewGenerationError(fmt.Errorf("reading transcription response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		metrics.TranscriptionsTotal.WithLabelValues("error").Inc()
		return "", api.NewGenerationError(fmt.Errorf("transcriptions status %d: %s", resp.StatusCode, string(respData)))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respData, &parsed); err != nil {
		metrics.TranscriptionsTotal.WithLabelValues("error").Inc()
		return "", api.NewGenerationError(fmt.Errorf("decoding transcription response: %w", err))
	}

	metrics.TranscriptionsTotal.WithLabelValues("ok").Inc()
	return strings.TrimSpace(parsed.Text), nil
}
