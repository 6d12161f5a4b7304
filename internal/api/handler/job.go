package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/mealplan/internal/domain"
	"github.com/timmy/mealplan/internal/logger"
	"github.com/timmy/mealplan/internal/repository"
)

// JobReader loads a single job.
type JobReader interface {
	GetByID(ctx context.Context, id string) (*domain.MealPlanJob, error)
}

// JobHandler handles job status endpoints.
type JobHandler struct {
	jobs JobReader
}

// NewJobHandler creates a new job handler.
func NewJobHandler(jobs JobReader) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// JobStatusResponse is the public view of a job's progress.
type JobStatusResponse struct {
	ID              string           `json:"id"`
	Status          domain.JobStatus `json:"status"`
	CurrentPhase    domain.Phase     `json:"current_phase"`
	ProgressMessage string           `json:"progress_message"`
	RecipeCount     int              `json:"recipe_count"`
	AccumulatedSize int              `json:"accumulated_recipes"`
	DocumentURL     string           `json:"document_url,omitempty"`
	ErrorMessage    string           `json:"error_message,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
}

// GetJob handles GET /api/v1/jobs/:id.
func (h *JobHandler) GetJob(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	job, err := h.jobs.GetByID(ctx, id)
	if errors.Is(err, repository.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	if err != nil {
		logger.CtxError(ctx, "Failed to load job: id=%s, error=%v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load job: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, JobStatusResponse{
		ID:              job.ID,
		Status:          job.Status,
		CurrentPhase:    job.CurrentPhase,
		ProgressMessage: job.ProgressMessage,
		RecipeCount:     job.RecipeCount,
		AccumulatedSize: len(job.Accumulated),
		DocumentURL:     job.DocumentURL,
		ErrorMessage:    job.ErrorMessage,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
		CompletedAt:     job.CompletedAt,
	})
}
