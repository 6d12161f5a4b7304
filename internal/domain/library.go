package domain

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// LibraryRecipe is a stored recipe that can be reused across customers.
type LibraryRecipe struct {
	ID          string         `gorm:"type:text;primaryKey" json:"id"`
	Name        string         `gorm:"type:text;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	MealType    MealType       `gorm:"type:text;not null;index:idx_library_recipes_meal_type" json:"meal_type"`
	DietTypes   StringArray    `gorm:"type:text" json:"diet_types"`
	Ingredients datatypes.JSON `json:"ingredients"`
	Nutrition   datatypes.JSON `json:"nutrition"`
	Servings    int            `gorm:"default:4" json:"servings"`
	ImageURL    string         `gorm:"type:text" json:"image_url,omitempty"`
	Source      string         `gorm:"type:text;index" json:"source"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName returns the database table name for LibraryRecipe.
func (LibraryRecipe) TableName() string {
	return "library_recipes"
}

// ToRecipe converts the stored row into an accumulator record.
// Malformed JSON columns are treated as empty.
func (l LibraryRecipe) ToRecipe() Recipe {
	r := Recipe{
		ID:          l.ID,
		Name:        l.Name,
		Description: l.Description,
		MealType:    l.MealType,
		Servings:    l.Servings,
		ImageURL:    l.ImageURL,
	}
	if len(l.Ingredients) > 0 {
		_ = json.Unmarshal(l.Ingredients, &r.Ingredients)
	}
	if len(l.Nutrition) > 0 && string(l.Nutrition) != "null" {
		var n Nutrition
		if err := json.Unmarshal(l.Nutrition, &n); err == nil {
			r.Nutrition = &n
		}
	}
	if len(l.DietTypes) > 0 {
		r.DietType = l.DietTypes[0]
	}
	return r
}

// LibraryRecipeFrom builds a storable row from a record.
func LibraryRecipeFrom(r Recipe, source string) (*LibraryRecipe, error) {
	ingredients, err := json.Marshal(r.Ingredients)
	if err != nil {
		return nil, err
	}
	nutrition, err := json.Marshal(r.Nutrition)
	if err != nil {
		return nil, err
	}
	row := &LibraryRecipe{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		MealType:    r.ResolvedMealType(),
		Ingredients: datatypes.JSON(ingredients),
		Nutrition:   datatypes.JSON(nutrition),
		Servings:    r.Servings,
		ImageURL:    r.ImageURL,
		Source:      source,
	}
	if r.DietType != "" {
		row.DietTypes = StringArray{r.DietType}
	}
	return row, nil
}

// DeliveredRecipe records that a recipe was sent to a customer in a month.
type DeliveredRecipe struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CustomerEmail string    `gorm:"type:text;not null;uniqueIndex:idx_delivered_unique" json:"customer_email"`
	RecipeID      string    `gorm:"type:text;not null;uniqueIndex:idx_delivered_unique" json:"recipe_id"`
	YearMonth     string    `gorm:"type:text;not null;uniqueIndex:idx_delivered_unique" json:"year_month"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName returns the database table name for DeliveredRecipe.
func (DeliveredRecipe) TableName() string {
	return "delivered_recipes"
}

// YearMonth formats t as the "2006-01" bucket delivery tracking uses.
func YearMonth(t time.Time) string {
	return t.Format("2006-01")
}
