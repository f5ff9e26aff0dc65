package model

// Job status
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Response status as stored on the interview response record. The pipeline
// only ever moves a response forward: pending -> processed, or pending -> failed.
type ResponseStatus string

const (
	ResponseStatusPending   ResponseStatus = "pending"
	ResponseStatusProcessed ResponseStatus = "processed"
	ResponseStatusFailed    ResponseStatus = "failed"
)

// Emotion labels returned by the face and voice analyzers.
type Emotion string

const (
	EmotionNeutral   Emotion = "neutral"
	EmotionHappy     Emotion = "happy"
	EmotionSad       Emotion = "sad"
	EmotionAngry     Emotion = "angry"
	EmotionFearful   Emotion = "fearful"
	EmotionSurprised Emotion = "surprised"
	EmotionConfident Emotion = "confident"
)
