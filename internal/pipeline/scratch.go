package pipeline

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Workspace is the scratch area for one pipeline run. It is namespaced by
// job ID so concurrent runs never collide, and torn down unconditionally
// when the run returns.
type Workspace struct {
	dir string
}

// NewWorkspace creates the scratch directory for a run.
func NewWorkspace(scratchRoot, jobID string) (*Workspace, error) {
	dir := filepath.Join(scratchRoot, "job-"+jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// VideoPath is where the fetched recording lands.
func (w *Workspace) VideoPath() string {
	return filepath.Join(w.dir, "answer.mp4")
}

// AudioPath is where the extracted audio lands.
func (w *Workspace) AudioPath() string {
	return filepath.Join(w.dir, "answer.wav")
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// Cleanup removes the scratch directory. Failures are logged, never
// escalated: cleanup must not mask the run's primary outcome.
func (w *Workspace) Cleanup() {
	if err := os.RemoveAll(w.dir); err != nil {
		log.Printf("Warning: failed to remove scratch dir %s: %v", w.dir, err)
	}
}
