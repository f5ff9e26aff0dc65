package pipeline

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hireview/api/internal/model"
)

// Fetcher retrieves a remote recording into a local scratch file.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

// AudioExtractor demuxes the audio track from a video artifact.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error
}

// Transcriber turns an audio artifact into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Scorer evaluates a transcript against the question context.
type Scorer interface {
	Score(ctx context.Context, payload *model.AnalysisJobPayload, transcript string) (*model.ContentEvaluation, error)
}

// FaceAnalyzer derives engagement and emotion signals from the video artifact.
type FaceAnalyzer interface {
	AnalyzeFace(ctx context.Context, videoPath string) (*model.FaceAnalysis, error)
}

// VoiceAnalyzer derives prosody signals from the audio artifact.
type VoiceAnalyzer interface {
	AnalyzeVoice(ctx context.Context, audioPath string) (*model.VoiceAnalysis, error)
}

// Store persists analysis results and updates the owning response record.
type Store interface {
	SaveResult(ctx context.Context, result *model.AnalysisResult) (string, error)
	MarkProcessed(ctx context.Context, responseID, resultID string) error
}

// Runner sequences one job through the full analysis pipeline.
type Runner struct {
	fetcher     Fetcher
	extractor   AudioExtractor
	transcriber Transcriber
	scorer      Scorer
	face        FaceAnalyzer
	voice       VoiceAnalyzer
	store       Store
	scratchRoot string
}

func NewRunner(
	fetcher Fetcher,
	extractor AudioExtractor,
	transcriber Transcriber,
	scorer Scorer,
	face FaceAnalyzer,
	voice VoiceAnalyzer,
	store Store,
	scratchRoot string,
) *Runner {
	return &Runner{
		fetcher:     fetcher,
		extractor:   extractor,
		transcriber: transcriber,
		scorer:      scorer,
		face:        face,
		voice:       voice,
		store:       store,
		scratchRoot: scratchRoot,
	}
}

// contentResult carries the transcribe-then-score chain out of its goroutine
// with the stage the chain failed at, so attribution survives concurrency.
type contentResult struct {
	transcript string
	eval       *model.ContentEvaluation
	stage      Stage
	err        error
}

// Run executes the fixed stage order for one job:
// fetch -> extract audio -> {transcribe+score, face, voice} -> fuse ->
// persist -> mark processed. Scratch artifacts are removed on every exit
// path. Face and voice analysis are best-effort; every other stage failure
// aborts the run with a PipelineError.
func (r *Runner) Run(ctx context.Context, jobID string, payload *model.AnalysisJobPayload) (*model.AnalysisResult, error) {
	ws, err := NewWorkspace(r.scratchRoot, jobID)
	if err != nil {
		return nil, &PipelineError{Stage: StageFetch, Cause: err}
	}
	defer ws.Cleanup()

	if err := r.fetcher.Fetch(ctx, payload.VideoURL, ws.VideoPath()); err != nil {
		return nil, &PipelineError{Stage: StageFetch, Cause: err}
	}

	if err := r.extractor.ExtractAudio(ctx, ws.VideoPath(), ws.AudioPath()); err != nil {
		return nil, &PipelineError{Stage: StageExtract, Cause: err}
	}

	// Both artifacts exist now. The content chain and the two analyzers have
	// no data dependency on each other, so they run concurrently.
	var (
		wg       sync.WaitGroup
		content  contentResult
		faceRes  *model.FaceAnalysis
		voiceRes *model.VoiceAnalysis
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		content = r.runContentChain(ctx, payload, ws.AudioPath())
	}()
	go func() {
		defer wg.Done()
		res, err := r.face.AnalyzeFace(ctx, ws.VideoPath())
		if err != nil {
			log.Printf("Job %s: stage %s failed, continuing without it: %v", jobID, StageFace, err)
			return
		}
		faceRes = res
	}()
	go func() {
		defer wg.Done()
		res, err := r.voice.AnalyzeVoice(ctx, ws.AudioPath())
		if err != nil {
			log.Printf("Job %s: stage %s failed, continuing without it: %v", jobID, StageVoice, err)
			return
		}
		voiceRes = res
	}()
	wg.Wait()

	if content.err != nil {
		return nil, &PipelineError{Stage: content.stage, Cause: content.err}
	}

	result := buildResult(payload, content.transcript, content.eval, faceRes, voiceRes)

	resultID, err := r.store.SaveResult(ctx, result)
	if err != nil {
		return nil, &PipelineError{Stage: StagePersist, Cause: &PersistenceError{Op: "save result", Err: err}}
	}
	if id, parseErr := uuid.Parse(resultID); parseErr == nil {
		result.ID = id
	}

	if err := r.store.MarkProcessed(ctx, payload.ResponseID, resultID); err != nil {
		// The analysis result exists; only the response status is stale.
		// Re-running from stage 1 would duplicate the content scorer call,
		// so this is a partial success that needs operator reconciliation.
		perr := &PipelineError{Stage: StageMarkStatus, Cause: &PersistenceError{Op: "mark response processed", Err: err}}
		log.Printf("Job %s: result %s persisted but response %s status update failed, reconciliation needed: %v",
			jobID, resultID, payload.ResponseID, perr)
	}

	return result, nil
}

func (r *Runner) runContentChain(ctx context.Context, payload *model.AnalysisJobPayload, audioPath string) contentResult {
	transcript, err := r.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return contentResult{stage: StageTranscribe, err: err}
	}

	eval, err := r.scorer.Score(ctx, payload, transcript)
	if err != nil {
		return contentResult{transcript: transcript, stage: StageScore, err: err}
	}

	return contentResult{transcript: transcript, eval: eval}
}

func buildResult(
	payload *model.AnalysisJobPayload,
	transcript string,
	eval *model.ContentEvaluation,
	face *model.FaceAnalysis,
	voice *model.VoiceAnalysis,
) *model.AnalysisResult {
	result := &model.AnalysisResult{
		ResponseID:    payload.ResponseID,
		ApplicationID: payload.ApplicationID,
		Transcription: transcript,

		TechnicalScore:      eval.TechnicalScore,
		ProblemSolvingScore: eval.ProblemSolvingScore,
		PersonalityScore:    eval.PersonalityScore,
		KeywordMatches:      eval.KeywordMatches,
		Strengths:           eval.Strengths,
		ImprovementAreas:    eval.ImprovementAreas,
		Recommendation:      eval.Recommendation,

		AnalyzedAt: time.Now(),
	}

	var faceConfidence, voiceConfidence, speechFluency *float64
	if face != nil {
		emotion := string(face.Emotion)
		result.EngagementScore = &face.Engagement
		result.FaceConfidence = &face.Confidence
		result.FaceEmotion = &emotion
		faceConfidence = &face.Confidence
	}
	if voice != nil {
		emotion := string(voice.Emotion)
		result.VoiceConfidence = &voice.Confidence
		result.SpeechFluency = &voice.Fluency
		result.VoiceEmotion = &emotion
		voiceConfidence = &voice.Confidence
		speechFluency = &voice.Fluency
	}

	fused := Fuse(&eval.OverallScore, faceConfidence, voiceConfidence, speechFluency)
	result.CommunicationScore = fused.Communication
	result.OverallScore = fused.Overall

	return result
}

// StageOf reports the stage a pipeline failure occurred at, if err carries one.
func StageOf(err error) (Stage, bool) {
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr.Stage, true
	}
	return "", false
}
