package worker

import "log"

// Events receives terminal job outcomes for external logging and alerting
// collaborators. JobFailed fires exactly once per job, on its final attempt.
type Events interface {
	JobCompleted(jobID, resultID string)
	JobFailed(jobID string, err error)
}

// LogEvents is the default Events sink.
type LogEvents struct{}

func (LogEvents) JobCompleted(jobID, resultID string) {
	log.Printf("Analysis job %s completed, result %s", jobID, resultID)
}

func (LogEvents) JobFailed(jobID string, err error) {
	log.Printf("Analysis job %s terminally failed: %v", jobID, err)
}
