package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hireview/api/internal/config"
	"github.com/hireview/api/internal/pipeline"
)

// TranscriptionClient sends extracted audio to a Groq/OpenAI-compatible
// speech-to-text endpoint. Every call is a fresh remote request; transcripts
// are never cached locally.
type TranscriptionClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	language   string
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// NewTranscriptionClient creates a new transcription client.
func NewTranscriptionClient(cfg *config.GroqConfig, language string) *TranscriptionClient {
	return &TranscriptionClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		},
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		model:    cfg.WhisperModel,
		language: language,
	}
}

// Transcribe uploads the audio artifact and returns the raw transcript text.
func (c *TranscriptionClient) Transcribe(ctx context.Context, audioPath string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", &pipeline.TranscriptionError{Reason: "open audio artifact", Err: err}
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", &pipeline.TranscriptionError{Reason: "build request", Err: err}
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", &pipeline.TranscriptionError{Reason: "read audio artifact", Err: err}
	}
	_ = writer.WriteField("model", c.model)
	_ = writer.WriteField("language", c.language)
	_ = writer.WriteField("response_format", "json")
	if err := writer.Close(); err != nil {
		return "", &pipeline.TranscriptionError{Reason: "build request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", &pipeline.TranscriptionError{Reason: "build request", Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &pipeline.TranscriptionError{Reason: "send request", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &pipeline.TranscriptionError{Reason: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &pipeline.TranscriptionError{
			Reason: fmt.Sprintf("upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
		}
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &pipeline.TranscriptionError{Reason: "malformed response", Err: err}
	}

	text := strings.TrimSpace(parsed.Text)
	if text == "" {
		return "", &pipeline.TranscriptionError{Reason: "empty transcript"}
	}

	return text, nil
}

// IsConfigured returns true if the client has valid configuration.
func (c *TranscriptionClient) IsConfigured() bool {
	return c.apiKey != ""
}
