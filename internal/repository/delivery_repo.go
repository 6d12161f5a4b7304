package repository

import (
	"context"

	"github.com/timmy/mealplan/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeliveryRepository tracks which recipes each customer has received.
type DeliveryRepository struct {
	db *gorm.DB
}

// NewDeliveryRepository creates a new DeliveryRepository.
func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// RecordDelivered stores (customer, recipe, month) rows. Re-recording the same
// rows is a no-op.
func (r *DeliveryRepository) RecordDelivered(ctx context.Context, customerEmail string, recipeIDs []string, yearMonth string) error {
	rows := make([]domain.DeliveredRecipe, 0, len(recipeIDs))
	for _, id := range recipeIDs {
		if id == "" {
			continue
		}
		rows = append(rows, domain.DeliveredRecipe{
			CustomerEmail: customerEmail,
			RecipeID:      id,
			YearMonth:     yearMonth,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, 100).Error
}
