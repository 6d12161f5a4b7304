package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/mealplan/internal/api/handler"
	"github.com/timmy/mealplan/internal/api/middleware"
	"github.com/timmy/mealplan/internal/source"
)

// RouterDeps are the services behind the HTTP surface.
type RouterDeps struct {
	Processor handler.BatchProcessor
	Jobs      handler.JobReader
	Importer  handler.Importer
	Sources   map[string]source.Source
	DBPing    handler.Pinger
}

// RouterConfig holds HTTP-level settings.
type RouterConfig struct {
	Mode          string
	TriggerSecret string
	CORSOrigins   []string
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps RouterDeps, cfg RouterConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware())

	auth := middleware.BearerAuth(cfg.TriggerSecret)

	r.GET("/health", handler.NewHealthHandler(deps.DBPing).Health)

	// Scheduler trigger
	trigger := handler.NewTriggerHandler(deps.Processor)
	cron := r.Group("/api/cron", auth)
	{
		cron.GET("/process-jobs", trigger.ProcessJobs)
		cron.POST("/process-jobs", trigger.ProcessJobs)
	}

	v1 := r.Group("/api/v1", middleware.CORS(cfg.CORSOrigins))
	{
		v1.OPTIONS("/*path", func(c *gin.Context) { c.Status(204) })

		jobs := handler.NewJobHandler(deps.Jobs)
		v1.GET("/jobs/:id", auth, jobs.GetJob)

		if deps.Importer != nil {
			imports := handler.NewImportHandler(deps.Importer, deps.Sources)
			admin := v1.Group("/admin", auth)
			admin.POST("/import", imports.TriggerImport)
			admin.GET("/import/status", imports.GetImportStatus)
		}
	}

	return r
}
