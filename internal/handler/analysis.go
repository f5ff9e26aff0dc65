package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/hireview/api/internal/model"
	"github.com/hireview/api/internal/repository"
	"github.com/hireview/api/internal/service"
	"github.com/hireview/api/pkg/response"
)

// AnalysisQueue is the queue-facing service the intake delegates to.
type AnalysisQueue interface {
	Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.EnqueueResponse, error)
	GetStatus(ctx context.Context, jobID string) (*model.JobStatusResponse, error)
}

// ResultReader looks up stored analysis results.
// repository.AnalysisRepository satisfies it.
type ResultReader interface {
	FindByResponseID(ctx context.Context, responseID string) (*model.AnalysisResult, error)
}

type AnalysisHandler struct {
	service   AnalysisQueue
	results   ResultReader
	validator *validator.Validate
}

func NewAnalysisHandler(svc AnalysisQueue, results ResultReader, v *validator.Validate) *AnalysisHandler {
	return &AnalysisHandler{
		service:   svc,
		results:   results,
		validator: v,
	}
}

// Enqueue handles POST /api/analysis/enqueue. It acknowledges queue
// acceptance only; the caller observes the outcome via the response record.
func (h *AnalysisHandler) Enqueue(c *fiber.Ctx) error {
	var req model.EnqueueRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Enqueue(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/analysis/status/:jobId
func (h *AnalysisHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetStatus(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Result handles GET /api/analysis/result/:responseId. It serves the stored
// analysis result for a processed response.
func (h *AnalysisHandler) Result(c *fiber.Ctx) error {
	responseID := c.Params("responseId")
	if responseID == "" {
		return response.ValidationError(c, "Response ID is required", nil)
	}

	result, err := h.results.FindByResponseID(c.Context(), responseID)
	if err != nil {
		if errors.Is(err, repository.ErrResultNotFound) {
			return response.NotFound(c, "Analysis result not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
