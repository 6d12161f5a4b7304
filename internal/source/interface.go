package source

import (
	"context"

	"github.com/timmy/mealplan/internal/domain"
)

// RecipeItem is one library recipe read from a source.
type RecipeItem struct {
	SourceID  string // Unique ID within the source
	Recipe    domain.Recipe
	DietTypes []string
	ImagePath string // Local image file, if the source ships one
}

// Source defines the interface for library recipe sources.
type Source interface {
	// GetSourceID returns the unique identifier for this source.
	GetSourceID() string

	// FetchBatch fetches a batch of recipes starting from the given cursor.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - cursor: pagination cursor or empty for first page.
	//   - limit: maximum number of items to fetch.
	// Returns:
	//   - items: batch of recipe items.
	//   - nextCursor: cursor for the next batch or empty if done.
	//   - err: non-nil if fetching fails.
	FetchBatch(ctx context.Context, cursor string, limit int) (items []RecipeItem, nextCursor string, err error)
}
