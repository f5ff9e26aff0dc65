package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/hireview/api/internal/pipeline"
)

// TestHelperProcess is re-executed as the fake ffmpeg binary. It is not a
// real test.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if os.Getenv("HELPER_PROCESS_FAIL") == "1" {
		fmt.Fprintln(os.Stderr, "Stream map '0:a:0' matches no streams.")
		os.Exit(1)
	}
	os.Exit(0)
}

func stubCommand(t *testing.T, fail bool, gotArgs *[]string) {
	t.Helper()
	orig := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		*gotArgs = append([]string{name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess", "--")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
		if fail {
			cmd.Env = append(cmd.Env, "HELPER_PROCESS_FAIL=1")
		}
		return cmd
	}
	t.Cleanup(func() { commandContext = orig })
}

func TestExtractAudioCommandContract(t *testing.T) {
	var gotArgs []string
	stubCommand(t, false, &gotArgs)

	e := NewExtractor("ffmpeg")
	if err := e.ExtractAudio(context.Background(), "/scratch/job-1/answer.mp4", "/scratch/job-1/answer.wav"); err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}

	if len(gotArgs) == 0 || gotArgs[0] != "ffmpeg" {
		t.Fatalf("binary = %v", gotArgs)
	}
	joined := strings.Join(gotArgs[1:], " ")
	for _, fragment := range []string{
		"-i /scratch/job-1/answer.mp4",
		"-map 0:a:0",
		"-ac 1",
		"-ar 16000",
		"-c:a pcm_s16le",
	} {
		if !strings.Contains(joined, fragment) {
			t.Errorf("args missing %q: %s", fragment, joined)
		}
	}
	if gotArgs[len(gotArgs)-1] != "/scratch/job-1/answer.wav" {
		t.Errorf("last arg = %q, want audio destination", gotArgs[len(gotArgs)-1])
	}
}

func TestExtractAudioFailureCarriesStderr(t *testing.T) {
	var gotArgs []string
	stubCommand(t, true, &gotArgs)

	e := NewExtractor("ffmpeg")
	err := e.ExtractAudio(context.Background(), "/scratch/job-1/silent.mp4", "/scratch/job-1/answer.wav")
	if err == nil {
		t.Fatal("ExtractAudio succeeded, want failure")
	}
	var xerr *pipeline.ExtractionError
	if !errors.As(err, &xerr) {
		t.Fatalf("error = %T, want ExtractionError", err)
	}
	if xerr.Source != "/scratch/job-1/silent.mp4" {
		t.Errorf("source = %q", xerr.Source)
	}
	if !strings.Contains(err.Error(), "matches no streams") {
		t.Errorf("error does not carry ffmpeg stderr: %v", err)
	}
}
