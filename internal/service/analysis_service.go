package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/hireview/api/internal/config"
	"github.com/hireview/api/internal/model"
)

const (
	TaskTypeAnalysis = "analysis:process"
	QueueAnalysis    = "analysis"

	jobRetention = 24 * time.Hour
)

// ErrJobNotFound is returned when no job record exists for an ID.
var ErrJobNotFound = errors.New("job not found")

// TaskEnqueuer is the queue write surface; *asynq.Client satisfies it.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// JobStore is the subset of redis commands the job mirror uses;
// *redis.Client satisfies it.
type JobStore interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AnalysisService accepts analysis jobs and records their queue-side state.
// Enqueue is fire-and-forget: it durably records the job and returns; the
// pipeline itself always runs on the worker pool.
type AnalysisService struct {
	redis       JobStore
	asynqClient TaskEnqueuer
	cfg         config.PipelineConfig
}

func NewAnalysisService(redisClient JobStore, asynqClient TaskEnqueuer, cfg config.PipelineConfig) *AnalysisService {
	return &AnalysisService{
		redis:       redisClient,
		asynqClient: asynqClient,
		cfg:         cfg,
	}
}

// Enqueue validates and queues one analysis job. The task ID is derived from
// the response ID, so while a job for a response is pending or running a
// second enqueue is answered with the already-queued job instead of racing
// it — one in-flight job per response, never two.
func (s *AnalysisService) Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.EnqueueResponse, error) {
	jobID := uuid.New().String()
	now := time.Now()

	payload := &model.AnalysisJobPayload{
		VideoURL:       req.VideoURL,
		ApplicationID:  req.ApplicationID,
		ResponseID:     req.ResponseID,
		Question:       req.Question,
		ExpectedAnswer: req.ExpectedAnswer,
		Keywords:       req.Keywords,
		InterviewTitle: req.InterviewTitle,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	job := &model.Job{
		ID:         jobID,
		ResponseID: req.ResponseID,
		Status:     model.JobStatusQueued,
		Payload:    payloadBytes,
		CreatedAt:  now,
	}

	task, err := newAnalysisTask(jobID, payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	// The job record must exist before the task does: a worker can pick the
	// task up immediately, and MarkRunning reads the record. The response
	// index is written only after the queue accepts the task, so a duplicate
	// enqueue keeps resolving to the job that is actually in flight.
	if err := s.saveJobRecord(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	_, err = s.asynqClient.EnqueueContext(ctx, task,
		asynq.Queue(QueueAnalysis),
		asynq.TaskID(taskID(req.ResponseID)),
		asynq.MaxRetry(s.cfg.MaxRetries),
		asynq.Timeout(s.cfg.LockDuration),
		asynq.Retention(jobRetention),
	)
	if err != nil {
		s.redis.Del(ctx, jobKey(jobID))
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return s.existingEnqueueAck(ctx, req.ResponseID)
		}
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	if err := s.redis.Set(ctx, responseKey(req.ResponseID), jobID, jobRetention).Err(); err != nil {
		// The job is recorded and queued; only duplicate detection for this
		// response is degraded until the worker's first SaveJob rewrites it.
		log.Printf("Failed to index job %s by response %s: %v", jobID, req.ResponseID, err)
	}

	return &model.EnqueueResponse{
		JobID:      jobID,
		ResponseID: req.ResponseID,
		Status:     model.JobStatusQueued,
		CreatedAt:  now,
	}, nil
}

// GetStatus returns the queue-side state of a job.
func (s *AnalysisService) GetStatus(ctx context.Context, jobID string) (*model.JobStatusResponse, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &model.JobStatusResponse{
		JobID:       job.ID,
		ResponseID:  job.ResponseID,
		Status:      job.Status,
		Attempt:     job.Attempt,
		Error:       job.Error,
		ResultID:    job.ResultID,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}, nil
}

// MarkRunning records a started attempt (called by the worker).
func (s *AnalysisService) MarkRunning(ctx context.Context, jobID string, attempt int) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusRunning
	job.Attempt = attempt
	if job.StartedAt == nil {
		now := time.Now()
		job.StartedAt = &now
	}

	return s.SaveJob(ctx, job)
}

// CompleteJob marks the job succeeded with its result reference (called by
// the worker).
func (s *AnalysisService) CompleteJob(ctx context.Context, jobID, resultID string) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusSucceeded
	job.ResultID = &resultID
	job.Error = nil
	now := time.Now()
	job.CompletedAt = &now

	return s.SaveJob(ctx, job)
}

// FailAttempt records a failed attempt. A non-terminal failure goes back to
// queued (the queue will retry it with backoff); a terminal failure is
// retained with its error detail so operators can inspect it.
func (s *AnalysisService) FailAttempt(ctx context.Context, jobID, errMsg string, terminal bool) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Error = &errMsg
	if terminal {
		job.Status = model.JobStatusFailed
		now := time.Now()
		job.CompletedAt = &now
	} else {
		job.Status = model.JobStatusQueued
	}

	return s.SaveJob(ctx, job)
}

// SaveJob writes the job record and its response-ID index.
func (s *AnalysisService) SaveJob(ctx context.Context, job *model.Job) error {
	if err := s.saveJobRecord(ctx, job); err != nil {
		return err
	}
	return s.redis.Set(ctx, responseKey(job.ResponseID), job.ID, jobRetention).Err()
}

// saveJobRecord writes the job record without touching the response index.
func (s *AnalysisService) saveJobRecord(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, jobKey(job.ID), data, jobRetention).Err()
}

// GetJob loads a job record.
func (s *AnalysisService) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}

	return &job, nil
}

// existingEnqueueAck answers a duplicate enqueue with the in-flight job.
func (s *AnalysisService) existingEnqueueAck(ctx context.Context, responseID string) (*model.EnqueueResponse, error) {
	jobID, err := s.redis.Get(ctx, responseKey(responseID)).Result()
	if err != nil {
		return nil, fmt.Errorf("job already queued for response %s", responseID)
	}

	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("job already queued for response %s", responseID)
	}

	return &model.EnqueueResponse{
		JobID:      job.ID,
		ResponseID: job.ResponseID,
		Status:     job.Status,
		CreatedAt:  job.CreatedAt,
	}, nil
}

func jobKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

func responseKey(responseID string) string {
	return fmt.Sprintf("job:response:%s", responseID)
}

func taskID(responseID string) string {
	return fmt.Sprintf("analysis:%s", responseID)
}

func newAnalysisTask(jobID string, payload []byte) (*asynq.Task, error) {
	taskPayload := map[string]interface{}{
		"jobId":   jobID,
		"payload": json.RawMessage(payload),
	}
	data, err := json.Marshal(taskPayload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAnalysis, data), nil
}
