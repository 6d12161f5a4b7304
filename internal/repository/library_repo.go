package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/timmy/mealplan/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LibraryRepository handles the reusable recipe library.
type LibraryRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewLibraryRepository creates a new LibraryRepository.
func NewLibraryRepository(db *gorm.DB) *LibraryRepository {
	return &LibraryRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Sample returns up to q.Limit random recipes matching the meal types and diet.
// Recipes with no diet tags match every diet. When q.CustomerEmail is set,
// recipes delivered to that customer this month or last month are skipped.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - q: sample filters and size.
//
// Returns:
//   - []domain.Recipe: sampled recipes in random order.
//   - error: non-nil if the query fails.
func (r *LibraryRepository) Sample(ctx context.Context, q domain.LibraryQuery) ([]domain.Recipe, error) {
	if q.Limit <= 0 {
		return nil, nil
	}

	tx := r.db.WithContext(ctx).Model(&domain.LibraryRecipe{})
	if len(q.MealTypes) > 0 {
		tx = tx.Where("meal_type IN ?", q.MealTypes)
	}
	if diet := strings.ToLower(strings.TrimSpace(q.DietType)); diet != "" {
		tx = tx.Where(`diet_types LIKE ? ESCAPE '\' OR diet_types = ? OR diet_types IS NULL`, `%"`+escapeLike(diet)+`"%`, "[]")
	}
	if q.CustomerEmail != "" {
		now := r.now()
		recent := []string{domain.YearMonth(now), domain.YearMonth(now.AddDate(0, -1, 0))}
		delivered := r.db.WithContext(ctx).Model(&domain.DeliveredRecipe{}).
			Select("recipe_id").
			Where("customer_email = ? AND year_month IN ?", q.CustomerEmail, recent)
		tx = tx.Where("id NOT IN (?)", delivered)
	}

	var rows []domain.LibraryRecipe
	if err := tx.Order("RANDOM()").Limit(q.Limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sample library: %w", err)
	}

	out := make([]domain.Recipe, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToRecipe())
	}
	return out, nil
}

// Save upserts a recipe into the library keyed by ID.
func (r *LibraryRepository) Save(ctx context.Context, recipe domain.Recipe, source string) error {
	row, err := domain.LibraryRecipeFrom(recipe, source)
	if err != nil {
		return fmt.Errorf("encode library recipe: %w", err)
	}
	for i, d := range row.DietTypes {
		row.DietTypes[i] = strings.ToLower(d)
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(row).Error
}

// UpsertRow stores an already-built library row.
func (r *LibraryRepository) UpsertRow(ctx context.Context, row *domain.LibraryRecipe) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(row).Error
}

// ExistsByID checks if a library recipe with the given ID exists.
func (r *LibraryRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.LibraryRecipe{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count returns the number of library recipes of a meal type, or all when empty.
func (r *LibraryRepository) Count(ctx context.Context, mealType domain.MealType) (int64, error) {
	var count int64
	tx := r.db.WithContext(ctx).Model(&domain.LibraryRecipe{})
	if mealType != "" {
		tx = tx.Where("meal_type = ?", mealType)
	}
	err := tx.Count(&count).Error
	return count, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike escapes LIKE wildcards so s matches literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
