// Package app wires configuration into the services shared by the binaries.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/timmy/mealplan/internal/api"
	"github.com/timmy/mealplan/internal/config"
	"github.com/timmy/mealplan/internal/logger"
	"github.com/timmy/mealplan/internal/orchestrator"
	"github.com/timmy/mealplan/internal/render"
	"github.com/timmy/mealplan/internal/repository"
	"github.com/timmy/mealplan/internal/selection"
	"github.com/timmy/mealplan/internal/service"
	"github.com/timmy/mealplan/internal/source"
	"github.com/timmy/mealplan/internal/source/jsonl"
	"github.com/timmy/mealplan/internal/storage"
	"gorm.io/gorm"
)

// App holds every long-lived dependency.
type App struct {
	Config       *config.Config
	DB           *gorm.DB
	Jobs         *repository.JobRepository
	Library      *repository.LibraryRepository
	Deliveries   *repository.DeliveryRepository
	Storage      storage.ObjectStorage
	Orchestrator *orchestrator.Orchestrator
	Importer     *service.LibraryImportService
	Sources      map[string]source.Source

	closers []func() error
}

type bucketEnsurer interface {
	EnsureBucket(ctx context.Context) error
}

// New connects to the database, storage and optional Redis and builds the
// orchestrator and import service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.DB = db
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	a.Jobs = repository.NewJobRepository(db)
	a.Library = repository.NewLibraryRepository(db)
	a.Deliveries = repository.NewDeliveryRepository(db)

	objectStorage, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if e, ok := objectStorage.(bucketEnsurer); ok {
		if err := e.EnsureBucket(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to ensure storage bucket: %w", err)
		}
	}
	a.Storage = objectStorage

	generator, err := service.NewRecipeGenerator(&service.RecipeGeneratorConfig{
		Model:   cfg.Generation.Model,
		APIKey:  cfg.Generation.APIKey,
		BaseURL: cfg.Generation.BaseURL,
		Timeout: cfg.Generation.Timeout,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	engine := selection.NewEngine(
		a.Library,
		service.NewPersistingGenerator(generator, a.Library),
		&selection.EngineConfig{Difficulty: cfg.Generation.Difficulty},
	)

	var images orchestrator.ImageGenerator = service.NewImageService(cfg.Image.Providers, objectStorage, cfg.Image.Timeout)
	if cfg.Redis.Enabled() {
		cache, err := service.NewRedisURLCache(ctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Redis.ImageTTL)
		if err != nil {
			// The cache is an optimization; run without it.
			logger.Warn("[App] Image cache disabled: %v", err)
		} else {
			a.closers = append(a.closers, cache.Close)
			images = service.NewCachedImageGenerator(images, cache)
		}
	}

	oc := cfg.Orchestrator
	a.Orchestrator = orchestrator.New(orchestrator.Deps{
		Jobs:      a.Jobs,
		Selector:  engine,
		Annotator: orchestrator.NewAnnotator(images, oc.ImageWorkers),
		Renderer:  render.NewRenderer(objectStorage),
		Mailer: service.NewEmailService(&service.EmailConfig{
			BaseURL: cfg.Email.BaseURL,
			APIKey:  cfg.Email.APIKey,
			From:    cfg.Email.From,
		}),
		Tracker: a.Deliveries,
	}, orchestrator.Config{
		BatchSize:            oc.BatchSize,
		NewRecipesPercentage: oc.NewRecipesPercentage,
		Lease:                oc.Lease,
		BonusBreakfasts:      oc.BonusBreakfasts,
		BonusDesserts:        oc.BonusDesserts,
	})

	a.Importer = service.NewLibraryImportService(a.Library, objectStorage, &service.LibraryImportConfig{
		Workers:   cfg.Library.ImportWorkers,
		BatchSize: cfg.Library.ImportBatchSize,
	})
	a.Sources = make(map[string]source.Source, len(cfg.Library.Sources))
	for name, dir := range cfg.Library.Sources {
		a.Sources[name] = jsonl.NewAdapter(dir)
	}

	return a, nil
}

// Router builds the HTTP surface over the app's services.
func (a *App) Router() *gin.Engine {
	return api.SetupRouter(api.RouterDeps{
		Processor: a.Orchestrator,
		Jobs:      a.Jobs,
		Importer:  a.Importer,
		Sources:   a.Sources,
		DBPing: func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}, api.RouterConfig{
		Mode:          a.Config.Server.Mode,
		TriggerSecret: a.Config.Server.TriggerSecret,
		CORSOrigins:   a.Config.Server.CORSOrigins,
	})
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("[App] Close failed: %v", err)
		}
	}
	a.closers = nil
}
