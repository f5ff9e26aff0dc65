package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/hireview/api/internal/model"
	"github.com/hireview/api/internal/service"
)

type fakeTracker struct {
	running   []int
	completed []string
	failed    []struct {
		msg      string
		terminal bool
	}
}

func (f *fakeTracker) MarkRunning(_ context.Context, _ string, attempt int) error {
	f.running = append(f.running, attempt)
	return nil
}

func (f *fakeTracker) CompleteJob(_ context.Context, _ string, resultID string) error {
	f.completed = append(f.completed, resultID)
	return nil
}

func (f *fakeTracker) FailAttempt(_ context.Context, _, errMsg string, terminal bool) error {
	f.failed = append(f.failed, struct {
		msg      string
		terminal bool
	}{errMsg, terminal})
	return nil
}

type fakeRunner struct {
	result *model.AnalysisResult
	err    error
	runs   int
}

func (f *fakeRunner) Run(_ context.Context, _ string, _ *model.AnalysisJobPayload) (*model.AnalysisResult, error) {
	f.runs++
	return f.result, f.err
}

type fakeResponses struct {
	processed []string
	failed    []string
}

func (f *fakeResponses) MarkProcessed(_ context.Context, responseID, _ string) error {
	f.processed = append(f.processed, responseID)
	return nil
}

func (f *fakeResponses) MarkFailed(_ context.Context, responseID, _ string) error {
	f.failed = append(f.failed, responseID)
	return nil
}

type recordingEvents struct {
	completed []string
	failed    []string
}

func (e *recordingEvents) JobCompleted(jobID, _ string) { e.completed = append(e.completed, jobID) }
func (e *recordingEvents) JobFailed(jobID string, _ error) { e.failed = append(e.failed, jobID) }

func stubRetryInfo(t *testing.T, retryCount, maxRetry int) {
	t.Helper()
	orig := retryInfo
	retryInfo = func(context.Context) (int, int) { return retryCount, maxRetry }
	t.Cleanup(func() { retryInfo = orig })
}

func analysisTask(t *testing.T, jobID string) *asynq.Task {
	t.Helper()
	payload := model.AnalysisJobPayload{
		VideoURL:   "https://storage.example.com/a.mp4",
		ResponseID: "resp-1",
		Question:   "q",
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	body, err := json.Marshal(map[string]json.RawMessage{
		"jobId":   json.RawMessage(`"` + jobID + `"`),
		"payload": raw,
	})
	if err != nil {
		t.Fatal(err)
	}
	return asynq.NewTask(service.TaskTypeAnalysis, body)
}

func TestProcessTaskSuccess(t *testing.T) {
	stubRetryInfo(t, 0, 3)
	tracker := &fakeTracker{}
	responses := &fakeResponses{}
	events := &recordingEvents{}
	resultID := uuid.New()
	runner := &fakeRunner{result: &model.AnalysisResult{ID: resultID, ResponseID: "resp-1"}}

	w := NewAnalysisWorker(tracker, runner, responses, events)
	if err := w.ProcessTask(context.Background(), analysisTask(t, "job-1")); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}

	if len(tracker.running) != 1 || tracker.running[0] != 1 {
		t.Errorf("MarkRunning attempts = %v, want [1]", tracker.running)
	}
	if len(tracker.completed) != 1 || tracker.completed[0] != resultID.String() {
		t.Errorf("CompleteJob with %v, want %s", tracker.completed, resultID)
	}
	if len(events.completed) != 1 || events.completed[0] != "job-1" {
		t.Errorf("completed events = %v", events.completed)
	}
	if len(tracker.failed) != 0 || len(events.failed) != 0 {
		t.Error("failure paths touched on success")
	}
}

func TestProcessTaskRetryableFailure(t *testing.T) {
	stubRetryInfo(t, 1, 3)
	tracker := &fakeTracker{}
	responses := &fakeResponses{}
	events := &recordingEvents{}
	runner := &fakeRunner{err: errors.New("upstream down")}

	w := NewAnalysisWorker(tracker, runner, responses, events)
	err := w.ProcessTask(context.Background(), analysisTask(t, "job-1"))
	if err == nil {
		t.Fatal("ProcessTask swallowed the error, queue would never retry")
	}

	if len(tracker.failed) != 1 || tracker.failed[0].terminal {
		t.Errorf("FailAttempt = %+v, want one non-terminal failure", tracker.failed)
	}
	if len(responses.failed) != 0 {
		t.Error("response marked failed before retries were exhausted")
	}
	if len(events.failed) != 0 {
		t.Error("failure event fired before retries were exhausted")
	}
}

func TestProcessTaskTerminalFailure(t *testing.T) {
	stubRetryInfo(t, 3, 3)
	tracker := &fakeTracker{}
	responses := &fakeResponses{}
	events := &recordingEvents{}
	runner := &fakeRunner{err: errors.New("upstream down")}

	w := NewAnalysisWorker(tracker, runner, responses, events)
	if err := w.ProcessTask(context.Background(), analysisTask(t, "job-1")); err == nil {
		t.Fatal("ProcessTask did not return the terminal error")
	}

	if len(tracker.failed) != 1 || !tracker.failed[0].terminal {
		t.Errorf("FailAttempt = %+v, want one terminal failure", tracker.failed)
	}
	if len(responses.failed) != 1 || responses.failed[0] != "resp-1" {
		t.Errorf("responses marked failed = %v, want [resp-1]", responses.failed)
	}
	if len(events.failed) != 1 || events.failed[0] != "job-1" {
		t.Errorf("failed events = %v, want [job-1]", events.failed)
	}
}

func TestProcessTaskMalformedPayloadSkipsRetry(t *testing.T) {
	stubRetryInfo(t, 0, 3)
	tracker := &fakeTracker{}
	responses := &fakeResponses{}
	events := &recordingEvents{}
	runner := &fakeRunner{}

	w := NewAnalysisWorker(tracker, runner, responses, events)
	task := asynq.NewTask(service.TaskTypeAnalysis, []byte(`{"jobId": "job-1", "payload": "not-an-object"}`))
	err := w.ProcessTask(context.Background(), task)
	if err == nil {
		t.Fatal("ProcessTask accepted malformed payload")
	}
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("error does not carry SkipRetry: %v", err)
	}
	if runner.runs != 0 {
		t.Error("pipeline ran on malformed payload")
	}
	if len(tracker.failed) != 1 || !tracker.failed[0].terminal {
		t.Errorf("FailAttempt = %+v, want one terminal failure", tracker.failed)
	}
}

func TestRetryDelayDoubles(t *testing.T) {
	delay := RetryDelay(5 * time.Second)
	want := []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}
	for n, expected := range want {
		if got := delay(n, errors.New("x"), nil); got != expected {
			t.Errorf("delay(%d) = %v, want %v", n, got, expected)
		}
	}
	if got := delay(-1, errors.New("x"), nil); got != 5*time.Second {
		t.Errorf("delay(-1) = %v, want base delay", got)
	}
}
