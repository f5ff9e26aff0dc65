package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hireview/api/internal/config"
	"github.com/hireview/api/internal/model"
	"github.com/hireview/api/internal/pipeline"
)

func TestParseEvaluation(t *testing.T) {
	eval, err := parseEvaluation(`{
		"overallRelevance": 82,
		"technicalScore": 75,
		"keywordMatches": ["mutex"],
		"strengths": ["specific example"],
		"improvementAreas": [{"area": "pacing", "recommendation": "slow down"}],
		"recommendation": "Hire."
	}`)
	if err != nil {
		t.Fatalf("parseEvaluation: %v", err)
	}
	if eval.OverallScore != 82 {
		t.Errorf("overall = %v, want 82", eval.OverallScore)
	}
	if eval.TechnicalScore == nil || *eval.TechnicalScore != 75 {
		t.Errorf("technical = %v, want 75", eval.TechnicalScore)
	}
	if eval.ProblemSolvingScore != nil || eval.PersonalityScore != nil {
		t.Error("omitted scores should stay nil, not become zero")
	}
	if len(eval.ImprovementAreas) != 1 || eval.ImprovementAreas[0].Area != "pacing" {
		t.Errorf("improvementAreas = %v", eval.ImprovementAreas)
	}
	if eval.Recommendation == nil || *eval.Recommendation != "Hire." {
		t.Errorf("recommendation = %v", eval.Recommendation)
	}
}

func TestParseEvaluationFencedReply(t *testing.T) {
	eval, err := parseEvaluation("Here is the evaluation:\n```json\n{\"overallRelevance\": 55}\n```\n")
	if err != nil {
		t.Fatalf("parseEvaluation: %v", err)
	}
	if eval.OverallScore != 55 {
		t.Errorf("overall = %v, want 55", eval.OverallScore)
	}
}

func TestParseEvaluationRejectsBadReplies(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"free text", "The answer was quite good overall."},
		{"missing relevance", `{"technicalScore": 70}`},
		{"relevance out of range", `{"overallRelevance": 140}`},
		{"negative relevance", `{"overallRelevance": -5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseEvaluation(tt.content)
			if err == nil {
				t.Fatal("parseEvaluation accepted unusable reply")
			}
			var serr *pipeline.ScoringError
			if !errors.As(err, &serr) {
				t.Errorf("error = %T, want ScoringError", err)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prefix {\"a\":1} suffix", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := extractJSON(tt.in); got != tt.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScoreRoundTrip(t *testing.T) {
	var gotReq ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"{\"overallRelevance\": 64, \"strengths\": [\"concise\"]}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	scorer := NewContentScorer(&config.GroqConfig{
		APIKey:         "test-key",
		BaseURL:        srv.URL,
		ChatModel:      "llama-3.3-70b-versatile",
		RequestTimeout: 5,
	})

	payload := &model.AnalysisJobPayload{
		ResponseID: "resp-1",
		Question:   "What is a goroutine?",
		Keywords:   []string{"scheduler"},
	}
	eval, err := scorer.Score(context.Background(), payload, "A goroutine is a lightweight thread.")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if eval.OverallScore != 64 {
		t.Errorf("overall = %v, want 64", eval.OverallScore)
	}

	if gotReq.Model != "llama-3.3-70b-versatile" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", gotReq.Messages)
	}
	user := gotReq.Messages[1].Content
	for _, fragment := range []string{"What is a goroutine?", "scheduler", "A goroutine is a lightweight thread."} {
		if !strings.Contains(user, fragment) {
			t.Errorf("prompt missing %q", fragment)
		}
	}
}

func TestScoreUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	scorer := NewContentScorer(&config.GroqConfig{APIKey: "k", BaseURL: srv.URL, ChatModel: "m", RequestTimeout: 5})
	_, err := scorer.Score(context.Background(), &model.AnalysisJobPayload{Question: "q"}, "t")
	if err == nil {
		t.Fatal("Score succeeded against failing upstream")
	}
	var serr *pipeline.ScoringError
	if !errors.As(err, &serr) {
		t.Errorf("error = %T, want ScoringError", err)
	}
}
