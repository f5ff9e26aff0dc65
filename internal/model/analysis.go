package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StringList stores a []string as a JSONB column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	case nil:
		*l = nil
		return nil
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
}

// ImprovementArea is one concrete suggestion from the content scorer.
type ImprovementArea struct {
	Area           string `json:"area"`
	Recommendation string `json:"recommendation"`
}

// ImprovementAreaList stores []ImprovementArea as a JSONB column.
type ImprovementAreaList []ImprovementArea

func (l ImprovementAreaList) Value() (driver.Value, error) {
	if l == nil {
		l = ImprovementAreaList{}
	}
	return json.Marshal(l)
}

func (l *ImprovementAreaList) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	case nil:
		*l = nil
		return nil
	default:
		return fmt.Errorf("cannot scan %T into ImprovementAreaList", src)
	}
}

// AnalysisResult is the durable output of one completed pipeline run.
// Sub-scores are pointers: the scorer and the secondary analyzers may not
// return them, and an absent score must stay distinguishable from zero.
type AnalysisResult struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ResponseID    string    `gorm:"uniqueIndex;not null" json:"responseId"`
	ApplicationID string    `gorm:"index;not null" json:"applicationId"`

	Transcription string `gorm:"type:text" json:"transcription"`

	// OverallScore and CommunicationScore come out of the fusion formula and
	// are always present; the remaining sub-scores are populated only when
	// the content scorer returns them.
	OverallScore       int `gorm:"not null" json:"overallScore"`
	CommunicationScore int `gorm:"not null" json:"communicationScore"`

	TechnicalScore      *float64 `json:"technicalScore,omitempty"`
	ProblemSolvingScore *float64 `json:"problemSolvingScore,omitempty"`
	PersonalityScore    *float64 `json:"personalityScore,omitempty"`

	KeywordMatches   StringList          `gorm:"type:jsonb" json:"keywordMatches"`
	Strengths        StringList          `gorm:"type:jsonb" json:"strengths"`
	ImprovementAreas ImprovementAreaList `gorm:"type:jsonb" json:"improvementAreas"`
	Recommendation   *string             `gorm:"type:text" json:"recommendation,omitempty"`

	EngagementScore    *float64 `json:"engagementScore,omitempty"`
	FaceConfidence     *float64 `json:"faceConfidence,omitempty"`
	FaceEmotion        *string  `json:"faceEmotion,omitempty"`
	VoiceConfidence    *float64 `json:"voiceConfidence,omitempty"`
	SpeechFluency      *float64 `json:"speechFluency,omitempty"`
	VoiceEmotion       *string  `json:"voiceEmotion,omitempty"`

	AnalyzedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"analyzedAt"`
}

func (AnalysisResult) TableName() string {
	return "analysis_results"
}
