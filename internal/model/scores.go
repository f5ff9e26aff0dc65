package model

// ContentEvaluation is the parsed reply from the content scorer. Only the
// overall relevance score is mandatory; everything else is kept exactly as
// absent when the service omits it.
type ContentEvaluation struct {
	OverallScore        float64
	TechnicalScore      *float64
	ProblemSolvingScore *float64
	PersonalityScore    *float64
	KeywordMatches      []string
	Strengths           []string
	ImprovementAreas    []ImprovementArea
	Recommendation      *string
}

// FaceAnalysis is the output of the face/gesture analyzer.
type FaceAnalysis struct {
	Engagement float64 `json:"engagement"`
	Confidence float64 `json:"confidence"`
	Emotion    Emotion `json:"emotion"`
}

// VoiceAnalysis is the output of the voice prosody analyzer.
type VoiceAnalysis struct {
	Fluency    float64 `json:"fluency"`
	Confidence float64 `json:"confidence"`
	Emotion    Emotion `json:"emotion"`
}
