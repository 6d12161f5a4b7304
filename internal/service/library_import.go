package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/timmy/mealplan/internal/domain"
	"github.com/timmy/mealplan/internal/logger"
	"github.com/timmy/mealplan/internal/source"
	"github.com/timmy/mealplan/internal/storage"
)

// LibraryStore is the part of the library repository the importer needs.
type LibraryStore interface {
	ExistsByID(ctx context.Context, id string) (bool, error)
	UpsertRow(ctx context.Context, row *domain.LibraryRecipe) error
}

// LibraryImportService loads recipes from a source into the library.
type LibraryImportService struct {
	library   LibraryStore
	storage   storage.ObjectStorage
	workers   int
	batchSize int
}

// LibraryImportConfig holds configuration for the import service.
type LibraryImportConfig struct {
	Workers   int
	BatchSize int
}

// NewLibraryImportService creates a new import service. objectStorage may be
// nil, in which case bundled images are ignored.
func NewLibraryImportService(library LibraryStore, objectStorage storage.ObjectStorage, cfg *LibraryImportConfig) *LibraryImportService {
	workers, batchSize := cfg.Workers, cfg.BatchSize
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &LibraryImportService{
		library:   library,
		storage:   objectStorage,
		workers:   workers,
		batchSize: batchSize,
	}
}

// ImportStats holds statistics for an import run.
type ImportStats struct {
	TotalItems    int64
	ImportedItems int64
	SkippedItems  int64
	FailedItems   int64
	StartTime     time.Time
	EndTime       time.Time
}

// ImportOptions holds options for an import run.
type ImportOptions struct {
	Force bool // Overwrite recipes that already exist
	Limit int  // Zero means no limit
}

type importResult struct {
	sourceID string
	skipped  bool
	err      error
}

// Import reads every recipe from src and upserts it into the library.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - src: recipe source.
//   - opts: import options, may be nil.
//
// Returns:
//   - *ImportStats: counters for the run.
//   - error: non-nil only if the source cannot be read at all.
func (s *LibraryImportService) Import(ctx context.Context, src source.Source, opts *ImportOptions) (*ImportStats, error) {
	if opts == nil {
		opts = &ImportOptions{}
	}
	stats := &ImportStats{StartTime: time.Now()}
	ctx = logger.SetComponent(ctx, "library_import")

	logger.FromContext(ctx).WithFields(logger.Fields{
		"source": src.GetSourceID(),
		"limit":  opts.Limit,
		"force":  opts.Force,
	}).Info("Starting library import")

	itemsChan := make(chan source.RecipeItem, s.workers*2)
	resultsChan := make(chan importResult, s.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, src.GetSourceID(), itemsChan, resultsChan, opts)
		}()
	}

	done := make(chan struct{})
	go func() {
		for result := range resultsChan {
			switch {
			case result.skipped:
				atomic.AddInt64(&stats.SkippedItems, 1)
			case result.err != nil:
				atomic.AddInt64(&stats.FailedItems, 1)
				logger.FromContext(ctx).
					WithField(logger.FieldRecipeID, result.sourceID).
					WithError(result.err).
					Error("Failed to import recipe")
			default:
				atomic.AddInt64(&stats.ImportedItems, 1)
			}
		}
		close(done)
	}()

	var fetchErr error
	cursor := ""
	fetched := 0
feed:
	for ctx.Err() == nil {
		batchLimit := s.batchSize
		if opts.Limit > 0 {
			remaining := opts.Limit - fetched
			if remaining <= 0 {
				break
			}
			if batchLimit > remaining {
				batchLimit = remaining
			}
		}

		items, next, err := src.FetchBatch(ctx, cursor, batchLimit)
		if err != nil {
			fetchErr = err
			break
		}
		if len(items) == 0 {
			break
		}
		atomic.AddInt64(&stats.TotalItems, int64(len(items)))
		fetched += len(items)

		for _, item := range items {
			select {
			case itemsChan <- item:
			case <-ctx.Done():
				break feed
			}
		}
		if next == "" {
			break
		}
		cursor = next
	}

	close(itemsChan)
	wg.Wait()
	close(resultsChan)
	<-done

	stats.EndTime = time.Now()
	logger.With(logger.Fields{
		"total":    stats.TotalItems,
		"imported": stats.ImportedItems,
		"skipped":  stats.SkippedItems,
		"failed":   stats.FailedItems,
	}).WithDuration(stats.EndTime.Sub(stats.StartTime).Milliseconds()).Info(ctx, "Library import completed")

	if fetchErr != nil {
		return stats, fmt.Errorf("failed to fetch recipes: %w", fetchErr)
	}
	return stats, nil
}

func (s *LibraryImportService) worker(ctx context.Context, sourceID string, items <-chan source.RecipeItem, results chan<- importResult, opts *ImportOptions) {
	for item := range items {
		if ctx.Err() != nil {
			return
		}
		result := importResult{sourceID: item.SourceID}

		if !opts.Force {
			exists, err := s.library.ExistsByID(ctx, item.Recipe.ID)
			if err != nil {
				result.err = fmt.Errorf("failed to check existence: %w", err)
				results <- result
				continue
			}
			if exists {
				result.skipped = true
				results <- result
				continue
			}
		}

		result.err = s.importItem(ctx, sourceID, item)
		results <- result
	}
}

func (s *LibraryImportService) importItem(ctx context.Context, sourceID string, item source.RecipeItem) error {
	recipe := item.Recipe
	if item.ImagePath != "" && s.storage != nil {
		url, err := s.uploadImage(ctx, recipe.ID, item.ImagePath)
		if err != nil {
			logger.FromContext(ctx).
				WithField(logger.FieldRecipeID, recipe.ID).
				WithError(err).
				Warn("Failed to upload bundled image, importing without it")
		} else {
			recipe.ImageURL = url
		}
	}

	row, err := domain.LibraryRecipeFrom(recipe, sourceID)
	if err != nil {
		return fmt.Errorf("failed to encode recipe: %w", err)
	}
	row.DietTypes = make(domain.StringArray, 0, len(item.DietTypes))
	for _, d := range item.DietTypes {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			row.DietTypes = append(row.DietTypes, d)
		}
	}

	if err := s.library.UpsertRow(ctx, row); err != nil {
		return fmt.Errorf("failed to save recipe: %w", err)
	}
	return nil
}

func (s *LibraryImportService) uploadImage(ctx context.Context, recipeID, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	format, err := detectImageFormat(data)
	if err != nil {
		return "", err
	}

	key := storage.RecipeImageKey(recipeID, format)
	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to check storage existence: %w", err)
	}
	if !exists {
		if err := s.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentTypeFor(format)); err != nil {
			return "", fmt.Errorf("failed to upload image: %w", err)
		}
	}
	return s.storage.GetURL(key), nil
}
