package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/hireview/api/internal/model"
	"github.com/hireview/api/internal/repository"
)

// PipelineRunner is the orchestrator as the worker sees it.
type PipelineRunner interface {
	Run(ctx context.Context, jobID string, payload *model.AnalysisJobPayload) (*model.AnalysisResult, error)
}

// JobTracker records job lifecycle transitions. *service.AnalysisService is
// the production implementation.
type JobTracker interface {
	MarkRunning(ctx context.Context, jobID string, attempt int) error
	CompleteJob(ctx context.Context, jobID, resultID string) error
	FailAttempt(ctx context.Context, jobID, errMsg string, terminal bool) error
}

// retryInfo reads the attempt counters asynq attaches to the task context.
var retryInfo = func(ctx context.Context) (retryCount, maxRetry int) {
	retryCount, _ = asynq.GetRetryCount(ctx)
	maxRetry, _ = asynq.GetMaxRetry(ctx)
	return retryCount, maxRetry
}

// AnalysisWorker processes queued analysis jobs. asynq provides the bounded
// worker pool, the per-task lease that keeps a second worker off an
// in-flight job, and the retry schedule; this type maps one task to one
// pipeline run and keeps the job record and event sinks in step.
type AnalysisWorker struct {
	jobs      JobTracker
	runner    PipelineRunner
	responses repository.ResponseRepository
	events    Events
}

// NewAnalysisWorker creates a new analysis worker.
func NewAnalysisWorker(
	jobs JobTracker,
	runner PipelineRunner,
	responses repository.ResponseRepository,
	events Events,
) *AnalysisWorker {
	return &AnalysisWorker{
		jobs:      jobs,
		runner:    runner,
		responses: responses,
		events:    events,
	}
}

// ProcessTask handles one analysis task attempt.
func (w *AnalysisWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		JobID   string          `json:"jobId"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	jobID := taskPayload.JobID

	var payload model.AnalysisJobPayload
	if err := json.Unmarshal(taskPayload.Payload, &payload); err != nil {
		// A malformed payload can never succeed; don't burn retries on it.
		w.failJob(ctx, jobID, payload.ResponseID, fmt.Errorf("invalid payload: %w", err), true)
		return fmt.Errorf("failed to unmarshal analysis payload: %w: %w", err, asynq.SkipRetry)
	}

	retryCount, maxRetry := retryInfo(ctx)
	attempt := retryCount + 1

	log.Printf("Starting analysis job %s (response %s, attempt %d/%d)", jobID, payload.ResponseID, attempt, maxRetry+1)

	if err := w.jobs.MarkRunning(ctx, jobID, attempt); err != nil {
		log.Printf("Failed to mark job %s running: %v", jobID, err)
	}

	result, err := w.runner.Run(ctx, jobID, &payload)
	if err != nil {
		terminal := retryCount >= maxRetry
		w.failJob(ctx, jobID, payload.ResponseID, err, terminal)
		return err
	}

	resultID := result.ID.String()
	if err := w.jobs.CompleteJob(ctx, jobID, resultID); err != nil {
		log.Printf("Failed to mark job %s succeeded: %v", jobID, err)
	}

	w.events.JobCompleted(jobID, resultID)
	log.Printf("Analysis job %s completed", jobID)
	return nil
}

// failJob records a failed attempt. Only on the final attempt does the
// response record flip to failed and the failed event fire; earlier
// attempts are the queue's business.
func (w *AnalysisWorker) failJob(ctx context.Context, jobID, responseID string, cause error, terminal bool) {
	if err := w.jobs.FailAttempt(ctx, jobID, cause.Error(), terminal); err != nil {
		log.Printf("Failed to record failed attempt for job %s: %v", jobID, err)
	}

	if !terminal {
		log.Printf("Analysis job %s attempt failed, will retry: %v", jobID, cause)
		return
	}

	if responseID != "" {
		if err := w.responses.MarkFailed(ctx, responseID, cause.Error()); err != nil {
			log.Printf("Failed to mark response %s failed: %v", responseID, err)
		}
	}
	w.events.JobFailed(jobID, cause)
}

// RetryDelay returns the queue's backoff schedule: the base delay doubled on
// every retry (5s, 10s, 20s with the defaults).
func RetryDelay(base time.Duration) asynq.RetryDelayFunc {
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		if n < 0 {
			n = 0
		}
		return base << uint(n)
	}
}
