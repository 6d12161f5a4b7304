package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/mealplan/internal/logger"
	"github.com/timmy/mealplan/internal/service"
	"github.com/timmy/mealplan/internal/source"
)

// Importer loads library recipes from a source.
type Importer interface {
	Import(ctx context.Context, src source.Source, opts *service.ImportOptions) (*service.ImportStats, error)
}

// ImportHandler handles library import operations.
type ImportHandler struct {
	importer Importer
	sources  map[string]source.Source

	mu            sync.RWMutex
	isRunning     bool
	lastStats     *service.ImportStats
	lastRunTime   time.Time
	lastRunStatus string
}

// NewImportHandler creates a new import handler.
// Parameters:
//   - importer: library import service.
//   - sources: configured sources keyed by name.
//
// Returns:
//   - *ImportHandler: initialized handler.
func NewImportHandler(importer Importer, sources map[string]source.Source) *ImportHandler {
	return &ImportHandler{importer: importer, sources: sources}
}

// ImportRequest is the body of POST /api/v1/admin/import.
type ImportRequest struct {
	Source string `json:"source" binding:"required"`
	Limit  int    `json:"limit" binding:"min=0,max=100000"`
	Force  bool   `json:"force"`
}

// ImportResponse reports a finished import.
type ImportResponse struct {
	Message string               `json:"message"`
	Stats   *service.ImportStats `json:"stats,omitempty"`
}

// ImportStatusResponse reports the last import run.
type ImportStatusResponse struct {
	IsRunning     bool                 `json:"is_running"`
	LastRunTime   string               `json:"last_run_time,omitempty"`
	LastRunStatus string               `json:"last_run_status,omitempty"`
	LastStats     *service.ImportStats `json:"last_stats,omitempty"`
}

// TriggerImport runs an import synchronously. Only one import runs at a time.
func (h *ImportHandler) TriggerImport(c *gin.Context) {
	ctx := c.Request.Context()

	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.CtxWarn(ctx, "Invalid import request: client_ip=%s, error=%v", c.ClientIP(), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src, ok := h.sources[req.Source]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown source: " + req.Source})
		return
	}

	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "Import is already running"})
		return
	}
	h.isRunning = true
	h.mu.Unlock()

	// Detached so a dropped client does not abort a half-written import.
	importCtx := context.WithoutCancel(ctx)
	start := time.Now()
	stats, err := h.importer.Import(importCtx, src, &service.ImportOptions{Force: req.Force, Limit: req.Limit})

	h.mu.Lock()
	h.isRunning = false
	h.lastStats = stats
	h.lastRunTime = time.Now()
	if err != nil {
		h.lastRunStatus = "failed: " + err.Error()
	} else {
		h.lastRunStatus = "success"
	}
	h.mu.Unlock()

	if err != nil {
		logger.With(logger.Fields{
			logger.FieldDurationMs: time.Since(start).Milliseconds(),
		}).Error(ctx, "Import failed: source=%s, error=%v", req.Source, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, ImportResponse{Message: "Import completed", Stats: stats})
}

// GetImportStatus returns the state of the last import.
func (h *ImportHandler) GetImportStatus(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	resp := ImportStatusResponse{
		IsRunning:     h.isRunning,
		LastRunStatus: h.lastRunStatus,
		LastStats:     h.lastStats,
	}
	if !h.lastRunTime.IsZero() {
		resp.LastRunTime = h.lastRunTime.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}
