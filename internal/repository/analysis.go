package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hireview/api/internal/model"
)

// ErrResultNotFound is returned when no analysis result exists for a response.
var ErrResultNotFound = errors.New("analysis result not found")

type AnalysisRepository interface {
	Upsert(ctx context.Context, result *model.AnalysisResult) (string, error)
	FindByResponseID(ctx context.Context, responseID string) (*model.AnalysisResult, error)
}

type analysisRepository struct {
	db *gorm.DB
}

func NewAnalysisRepository(db *gorm.DB) AnalysisRepository {
	return &analysisRepository{db: db}
}

// Upsert writes the analysis result keyed by its response ID. A retried
// persistence stage for the same response replaces the row instead of
// inserting a second one, which keeps persistence idempotent per job.
func (r *analysisRepository) Upsert(ctx context.Context, result *model.AnalysisResult) (string, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "response_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"transcription",
				"overall_score",
				"communication_score",
				"technical_score",
				"problem_solving_score",
				"personality_score",
				"keyword_matches",
				"strengths",
				"improvement_areas",
				"recommendation",
				"engagement_score",
				"face_confidence",
				"face_emotion",
				"voice_confidence",
				"speech_fluency",
				"voice_emotion",
				"analyzed_at",
			}),
		}).
		Create(result).Error
	if err != nil {
		return "", fmt.Errorf("failed to upsert analysis result: %w", err)
	}

	// The conflict path keeps the existing primary key; read it back so the
	// caller always references the row that actually owns the response.
	var stored model.AnalysisResult
	if err := r.db.WithContext(ctx).
		Select("id").
		Where("response_id = ?", result.ResponseID).
		First(&stored).Error; err != nil {
		return "", fmt.Errorf("failed to read back analysis result: %w", err)
	}

	return stored.ID.String(), nil
}

func (r *analysisRepository) FindByResponseID(ctx context.Context, responseID string) (*model.AnalysisResult, error) {
	var result model.AnalysisResult
	if err := r.db.WithContext(ctx).
		Where("response_id = ?", responseID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to find analysis result: %w", err)
	}
	return &result, nil
}
