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
	"github.com/hireview/api/internal/model"
	"github.com/hireview/api/internal/pipeline"
)

// AnalyzerClient talks to the face and voice analyzer microservices. Both
// accept a multipart artifact upload and reply with a small JSON object.
// A failed analysis is reported as an error; the client never substitutes
// default scores.
type AnalyzerClient struct {
	httpClient *http.Client
	faceURL    string
	voiceURL   string
}

// NewAnalyzerClient creates a client for both analyzer services.
func NewAnalyzerClient(cfg *config.AnalyzerConfig) *AnalyzerClient {
	return &AnalyzerClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		faceURL:  cfg.FaceServiceURL,
		voiceURL: cfg.VoiceServiceURL,
	}
}

// AnalyzeFace uploads the video artifact to the face analyzer.
func (c *AnalyzerClient) AnalyzeFace(ctx context.Context, videoPath string) (*model.FaceAnalysis, error) {
	var result model.FaceAnalysis
	if err := c.postArtifact(ctx, c.faceURL+"/analyze/face", videoPath, &result); err != nil {
		return nil, &pipeline.AnalysisError{Kind: pipeline.AnalysisFace, Err: err}
	}
	return &result, nil
}

// AnalyzeVoice uploads the audio artifact to the voice analyzer.
func (c *AnalyzerClient) AnalyzeVoice(ctx context.Context, audioPath string) (*model.VoiceAnalysis, error) {
	var result model.VoiceAnalysis
	if err := c.postArtifact(ctx, c.voiceURL+"/analyze/voice", audioPath, &result); err != nil {
		return nil, &pipeline.AnalysisError{Kind: pipeline.AnalysisVoice, Err: err}
	}
	return &result, nil
}

// HealthCheck checks both analyzer services.
func (c *AnalyzerClient) HealthCheck(ctx context.Context) error {
	for _, base := range []string{c.faceURL, c.voiceURL} {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health", nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("analyzer service %s unhealthy: status %d", base, resp.StatusCode)
		}
	}
	return nil
}

// postArtifact uploads a local artifact as multipart form data and parses
// the JSON response.
func (c *AnalyzerClient) postArtifact(ctx context.Context, url, path string, result interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("artifact unreadable: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("artifact unreadable: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("analyzer error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// IsConfigured returns true if both analyzer URLs are set.
func (c *AnalyzerClient) IsConfigured() bool {
	return c.faceURL != "" && c.voiceURL != ""
}
