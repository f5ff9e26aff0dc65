package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hireview/api/internal/pipeline"
)

// VideoFetcher streams recorded answers from object storage to local scratch
// files. It never retries; retry policy belongs to the queue.
type VideoFetcher struct {
	httpClient *http.Client
}

// NewVideoFetcher creates a fetcher with a download-sized timeout.
func NewVideoFetcher(timeout time.Duration) *VideoFetcher {
	return &VideoFetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch downloads url into dest. The destination is created fresh; a partial
// file from an interrupted stream is removed before returning the error.
func (f *VideoFetcher) Fetch(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &pipeline.FetchError{URL: url, Err: err}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return &pipeline.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &pipeline.FetchError{URL: url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	out, err := os.Create(dest)
	if err != nil {
		return &pipeline.FetchError{URL: url, Err: err}
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dest)
		return &pipeline.FetchError{URL: url, Err: fmt.Errorf("stream interrupted: %w", err)}
	}

	if err := out.Close(); err != nil {
		os.Remove(dest)
		return &pipeline.FetchError{URL: url, Err: err}
	}

	return nil
}
