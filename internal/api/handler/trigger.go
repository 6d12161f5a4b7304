package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/mealplan/internal/logger"
	"github.com/timmy/mealplan/internal/orchestrator"
)

// BatchProcessor runs one orchestrator batch.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context) (*orchestrator.BatchResult, error)
}

// TriggerHandler handles the scheduler's process-jobs call.
type TriggerHandler struct {
	processor BatchProcessor
}

// NewTriggerHandler creates a new trigger handler.
func NewTriggerHandler(processor BatchProcessor) *TriggerHandler {
	return &TriggerHandler{processor: processor}
}

// TriggerResponse is the batch summary returned to the scheduler.
type TriggerResponse struct {
	Success   bool     `json:"success"`
	Processed int      `json:"processed"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
	Duration  string   `json:"duration"`
	Message   string   `json:"message,omitempty"`
}

// ProcessJobs handles GET|POST /api/cron/process-jobs.
func (h *TriggerHandler) ProcessJobs(c *gin.Context) {
	ctx := logger.SetComponent(c.Request.Context(), "orchestrator")
	start := time.Now()

	result, err := h.processor.ProcessBatch(ctx)
	duration := formatDuration(time.Since(start))
	if err != nil {
		logger.With(logger.Fields{
			logger.FieldDurationMs: time.Since(start).Milliseconds(),
		}).Error(ctx, "Batch processing failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":  false,
			"error":    err.Error(),
			"duration": duration,
		})
		return
	}

	resp := TriggerResponse{
		Success:   true,
		Processed: result.Processed,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Errors:    result.Errors,
		Duration:  duration,
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	if result.Processed == 0 {
		resp.Message = "No jobs to process"
	}

	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldCount:      result.Processed,
	}).Info(ctx, "Batch processed: succeeded=%d, failed=%d", result.Succeeded, result.Failed)

	c.JSON(http.StatusOK, resp)
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}
