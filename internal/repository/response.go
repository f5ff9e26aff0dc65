package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hireview/api/internal/model"
)

// ResponseRepository updates the interview response records owned by the
// submission service. Only status transitions are performed here, each as a
// single atomic row update; this package never reads-modifies-writes them.
type ResponseRepository interface {
	MarkProcessed(ctx context.Context, responseID, resultID string) error
	MarkFailed(ctx context.Context, responseID, reason string) error
}

const responsesTable = "interview_responses"

type responseRepository struct {
	db *gorm.DB
}

func NewResponseRepository(db *gorm.DB) ResponseRepository {
	return &responseRepository{db: db}
}

func (r *responseRepository) MarkProcessed(ctx context.Context, responseID, resultID string) error {
	return r.setStatus(ctx, responseID, map[string]interface{}{
		"status":             model.ResponseStatusProcessed,
		"analysis_result_id": resultID,
		"updated_at":         time.Now(),
	})
}

func (r *responseRepository) MarkFailed(ctx context.Context, responseID, reason string) error {
	return r.setStatus(ctx, responseID, map[string]interface{}{
		"status":         model.ResponseStatusFailed,
		"failure_reason": reason,
		"updated_at":     time.Now(),
	})
}

func (r *responseRepository) setStatus(ctx context.Context, responseID string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Table(responsesTable).
		Where("id = ?", responseID).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update response status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("response not found")
	}
	return nil
}

// Store bundles the two repositories into the persistence interface the
// pipeline consumes.
type Store struct {
	analyses  AnalysisRepository
	responses ResponseRepository
}

func NewStore(analyses AnalysisRepository, responses ResponseRepository) *Store {
	return &Store{analyses: analyses, responses: responses}
}

func (s *Store) SaveResult(ctx context.Context, result *model.AnalysisResult) (string, error) {
	return s.analyses.Upsert(ctx, result)
}

func (s *Store) MarkProcessed(ctx context.Context, responseID, resultID string) error {
	return s.responses.MarkProcessed(ctx, responseID, resultID)
}
