package media

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/hireview/api/internal/pipeline"
)

var commandContext = exec.CommandContext

// Extractor demuxes the audio track of a recorded answer with ffmpeg.
// Output is a mono 16kHz PCM WAV, the layout the transcription and voice
// analysis services expect, so the transform is deterministic for a given
// input.
type Extractor struct {
	ffmpegBinary string
}

// NewExtractor creates an extractor using the given ffmpeg binary.
func NewExtractor(ffmpegBinary string) *Extractor {
	return &Extractor{ffmpegBinary: ffmpegBinary}
}

// ExtractAudio writes the audio track of videoPath to audioPath. A video
// without an audio track makes ffmpeg fail, which surfaces as an
// ExtractionError carrying ffmpeg's stderr.
func (e *Extractor) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-map", "0:a:0",
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		audioPath,
	}
	cmd := commandContext(ctx, e.ffmpegBinary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return &pipeline.ExtractionError{
			Source: videoPath,
			Err:    fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(output))),
		}
	}
	return nil
}
