package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hireview/api/internal/config"
	"github.com/hireview/api/internal/model"
	"github.com/hireview/api/internal/pipeline"
)

// ContentScorer evaluates a transcript against the question context via a
// Groq chat completion. The upstream reply is treated as untrusted: it must
// be a single well-formed JSON object with the relevance score present, and
// absent optional fields stay absent rather than being coerced to zero.
type ContentScorer struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// ChatMessage represents a message in the chat completion request
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest represents the request body for chat completion
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatCompletionResponse represents the response from chat completion
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// evaluationReply is the wire shape the evaluator prompt demands. Pointers
// keep "field absent" distinguishable from "field returned as zero".
type evaluationReply struct {
	OverallRelevance    *float64                  `json:"overallRelevance"`
	TechnicalScore      *float64                  `json:"technicalScore"`
	ProblemSolvingScore *float64                  `json:"problemSolvingScore"`
	PersonalityScore    *float64                  `json:"personalityScore"`
	KeywordMatches      []string                  `json:"keywordMatches"`
	Strengths           []string                  `json:"strengths"`
	ImprovementAreas    []model.ImprovementArea   `json:"improvementAreas"`
	Recommendation      *string                   `json:"recommendation"`
}

const scorerSystemPrompt = `You are an interview answer evaluator. You reply with a single JSON object and nothing else: no prose, no markdown fences, no commentary.`

// NewContentScorer creates a new content scoring client.
func NewContentScorer(cfg *config.GroqConfig) *ContentScorer {
	return &ContentScorer{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.ChatModel,
	}
}

// Score sends the evaluator prompt and parses the structured reply.
func (c *ContentScorer) Score(ctx context.Context, payload *model.AnalysisJobPayload, transcript string) (*model.ContentEvaluation, error) {
	prompt := buildEvaluatorPrompt(payload, transcript)

	content, err := c.chatCompletion(ctx, scorerSystemPrompt, prompt)
	if err != nil {
		return nil, &pipeline.ScoringError{Reason: "upstream call failed", Err: err}
	}

	return parseEvaluation(content)
}

func buildEvaluatorPrompt(payload *model.AnalysisJobPayload, transcript string) string {
	var b strings.Builder

	b.WriteString("Evaluate the candidate's spoken answer below.\n\n")
	if payload.InterviewTitle != "" {
		fmt.Fprintf(&b, "Interview: %s\n", payload.InterviewTitle)
	}
	fmt.Fprintf(&b, "Question: %s\n", payload.Question)
	if payload.ExpectedAnswer != "" {
		fmt.Fprintf(&b, "Expected answer: %s\n", payload.ExpectedAnswer)
	}
	if len(payload.Keywords) > 0 {
		fmt.Fprintf(&b, "Expected keywords: %s\n", strings.Join(payload.Keywords, ", "))
	}
	fmt.Fprintf(&b, "\nCandidate's answer (transcribed):\n%s\n\n", transcript)

	b.WriteString(`Reply with exactly this JSON object:
{
  "overallRelevance": <0-100, required: how well the answer addresses the question>,
  "technicalScore": <0-100, omit if the question is not technical>,
  "problemSolvingScore": <0-100, omit if not assessable>,
  "personalityScore": <0-100, omit if not assessable>,
  "keywordMatches": [<expected keywords actually used in the answer>],
  "strengths": [<short strength statements>],
  "improvementAreas": [{"area": <topic>, "recommendation": <concrete advice>}],
  "recommendation": <one-paragraph summary recommendation>
}
Omit any field you cannot assess. Never invent a score of 0 for something you did not evaluate.`)

	return b.String()
}

// parseEvaluation validates the reply shape. Anything that is not a JSON
// object with overallRelevance set is a ScoringError; there is no fallback
// to heuristic parsing of free text.
func parseEvaluation(content string) (*model.ContentEvaluation, error) {
	jsonStr := extractJSON(content)

	var reply evaluationReply
	decoder := json.NewDecoder(strings.NewReader(jsonStr))
	if err := decoder.Decode(&reply); err != nil {
		return nil, &pipeline.ScoringError{Reason: "reply is not a JSON object", Err: err}
	}

	if reply.OverallRelevance == nil {
		return nil, &pipeline.ScoringError{Reason: "reply missing overallRelevance"}
	}
	if *reply.OverallRelevance < 0 || *reply.OverallRelevance > 100 {
		return nil, &pipeline.ScoringError{Reason: fmt.Sprintf("overallRelevance %v out of range", *reply.OverallRelevance)}
	}

	return &model.ContentEvaluation{
		OverallScore:        *reply.OverallRelevance,
		TechnicalScore:      reply.TechnicalScore,
		ProblemSolvingScore: reply.ProblemSolvingScore,
		PersonalityScore:    reply.PersonalityScore,
		KeywordMatches:      reply.KeywordMatches,
		Strengths:           reply.Strengths,
		ImprovementAreas:    reply.ImprovementAreas,
		Recommendation:      reply.Recommendation,
	}, nil
}

// extractJSON strips markdown fences some models wrap around their reply and
// returns the outermost JSON object.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end != -1 && end > start {
		return text[start : end+1]
	}
	return text
}

func (c *ContentScorer) chatCompletion(ctx context.Context, system, user string) (string, error) {
	reqBody := ChatCompletionRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.2,
		MaxTokens:   1024,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("scoring API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// IsConfigured returns true if the client has valid configuration.
func (c *ContentScorer) IsConfigured() bool {
	return c.apiKey != ""
}
