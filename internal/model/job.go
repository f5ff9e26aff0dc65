package model

import "time"

// Job represents one queued analysis request and its lifecycle state.
// The record is mirrored in Redis so the intake API can report progress
// without touching the queue internals.
type Job struct {
	ID          string     `json:"id"`
	ResponseID  string     `json:"responseId"`
	Status      JobStatus  `json:"status"`
	Attempt     int        `json:"attempt"`
	Error       *string    `json:"error,omitempty"`
	ResultID    *string    `json:"resultId,omitempty"`
	Payload     []byte     `json:"-"` // Stored as JSON
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// AnalysisJobPayload contains everything one pipeline run needs.
type AnalysisJobPayload struct {
	VideoURL       string   `json:"videoUrl"`
	ApplicationID  string   `json:"applicationId"`
	ResponseID     string   `json:"responseId"`
	Question       string   `json:"question"`
	ExpectedAnswer string   `json:"expectedAnswer,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
	InterviewTitle string   `json:"interviewTitle,omitempty"`
}

// EnqueueRequest is the intake payload from the submission service.
type EnqueueRequest struct {
	VideoURL       string   `json:"videoUrl" validate:"required,url"`
	ApplicationID  string   `json:"applicationId" validate:"required"`
	ResponseID     string   `json:"responseId" validate:"required"`
	Question       string   `json:"question" validate:"required"`
	ExpectedAnswer string   `json:"expectedAnswer"`
	Keywords       []string `json:"keywords"`
	InterviewTitle string   `json:"interviewTitle"`
}

// EnqueueResponse acknowledges queue acceptance; the final result is
// observed via the response record, never returned here.
type EnqueueResponse struct {
	JobID      string    `json:"jobId"`
	ResponseID string    `json:"responseId"`
	Status     JobStatus `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// JobStatusResponse reports queue-side progress for one job.
type JobStatusResponse struct {
	JobID       string     `json:"jobId"`
	ResponseID  string     `json:"responseId"`
	Status      JobStatus  `json:"status"`
	Attempt     int        `json:"attempt"`
	Error       *string    `json:"error,omitempty"`
	ResultID    *string    `json:"resultId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
