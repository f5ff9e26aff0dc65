package pipeline

import "fmt"

// Stage identifies where in the run a failure occurred.
type Stage string

const (
	StageFetch      Stage = "fetch"
	StageExtract    Stage = "extract_audio"
	StageTranscribe Stage = "transcribe"
	StageScore      Stage = "content_score"
	StageFace       Stage = "face_analysis"
	StageVoice      Stage = "voice_analysis"
	StagePersist    Stage = "persist"
	StageMarkStatus Stage = "mark_status"
)

// PipelineError wraps a stage failure with the stage it occurred at.
type PipelineError struct {
	Stage Stage
	Cause error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Cause)
}

func (e *PipelineError) Unwrap() error { return e.Cause }

// FetchError means the source recording could not be retrieved.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractionError means the audio track could not be demuxed from the video.
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract audio from %s: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// TranscriptionError means the speech-to-text service failed or rejected the audio.
type TranscriptionError struct {
	Reason string
	Err    error
}

func (e *TranscriptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcription: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("transcription: %s", e.Reason)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// ScoringError means the content scorer returned a malformed or unusable reply.
type ScoringError struct {
	Reason string
	Err    error
}

func (e *ScoringError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("content scoring: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("content scoring: %s", e.Reason)
}

func (e *ScoringError) Unwrap() error { return e.Err }

// AnalysisKind distinguishes the two secondary analyzers.
type AnalysisKind string

const (
	AnalysisFace  AnalysisKind = "face"
	AnalysisVoice AnalysisKind = "voice"
)

// AnalysisError means a face or voice analyzer failed. These stages are
// best-effort: the orchestrator logs the error and leaves the fields null.
type AnalysisError struct {
	Kind AnalysisKind
	Err  error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s analysis: %v", e.Kind, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// PersistenceError means the analysis result or response status could not be written.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
