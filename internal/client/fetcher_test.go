package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hireview/api/internal/pipeline"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mp4-bytes"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "answer.mp4")
	if err := NewVideoFetcher(time.Minute).Fetch(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(data) != "mp4-bytes" {
		t.Errorf("downloaded %q", data)
	}
}

func TestFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "answer.mp4")
	err := NewVideoFetcher(time.Minute).Fetch(context.Background(), srv.URL+"/gone.mp4", dest)
	if err == nil {
		t.Fatal("Fetch succeeded for missing object")
	}
	var ferr *pipeline.FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("error = %T, want FetchError", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("destination file created for failed fetch")
	}
}

func TestFetchInterruptedStreamLeavesNoPartialFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1048576")
		w.Write([]byte("short"))
		// Closing the connection mid-body makes the client's io.Copy fail.
		if hj, ok := w.(http.Hijacker); ok {
			conn, _, _ := hj.Hijack()
			conn.Close()
		}
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "answer.mp4")
	err := NewVideoFetcher(time.Minute).Fetch(context.Background(), srv.URL, dest)
	if err == nil {
		t.Fatal("Fetch succeeded despite interrupted stream")
	}
	var ferr *pipeline.FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("error = %T, want FetchError", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("partial file left behind")
	}
}
