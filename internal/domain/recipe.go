package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// MealType classifies a recipe slot in the plan.
type MealType string

const (
	MealTypeDinner    MealType = "dinner"
	MealTypeBreakfast MealType = "breakfast"
	MealTypeDessert   MealType = "dessert"
)

// ParseMealType maps free-form meal type labels onto the canonical values.
func ParseMealType(s string) (MealType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dinner", "dinners", "supper", "main", "entree":
		return MealTypeDinner, true
	case "breakfast", "breakfasts", "brunch":
		return MealTypeBreakfast, true
	case "dessert", "desserts", "sweet":
		return MealTypeDessert, true
	default:
		return "", false
	}
}

// Ingredient is one line of a recipe's ingredient list. Records coming from
// older sources carry plain strings; those land in Item with no quantity.
type Ingredient struct {
	Item     string  `json:"item"`
	Quantity float64 `json:"quantity,omitempty"`
	Unit     string  `json:"unit,omitempty"`
	Note     string  `json:"note,omitempty"`
}

// UnmarshalJSON accepts either a bare string or a structured object.
func (i *Ingredient) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*i = Ingredient{Item: s}
		return nil
	}
	type plain Ingredient
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*i = Ingredient(p)
	return nil
}

// Text renders the ingredient as a single human-readable line.
func (i Ingredient) Text() string {
	var parts []string
	if i.Quantity > 0 {
		parts = append(parts, strconv.FormatFloat(i.Quantity, 'f', -1, 64))
	}
	if i.Unit != "" {
		parts = append(parts, i.Unit)
	}
	if i.Item != "" {
		parts = append(parts, i.Item)
	}
	line := strings.Join(parts, " ")
	if i.Note != "" {
		line += " (" + i.Note + ")"
	}
	return line
}

// Nutrition holds per-serving nutrition facts.
type Nutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein_g"`
	Carbs    float64 `json:"carbs_g"`
	Fat      float64 `json:"fat_g"`
	Fiber    float64 `json:"fiber_g,omitempty"`
}

// Recipe is a recipe record as carried in a job accumulator.
type Recipe struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	MealType       MealType     `json:"meal_type,omitempty"`
	LegacyMealType string       `json:"mealType,omitempty"`
	DietType       string       `json:"diet_type,omitempty"`
	Ingredients    []Ingredient `json:"ingredients"`
	Instructions   []string     `json:"instructions,omitempty"`
	Nutrition      *Nutrition   `json:"nutrition,omitempty"`
	Servings       int          `json:"servings,omitempty"`
	PrepMinutes    int          `json:"prep_minutes,omitempty"`
	ImageURL       string       `json:"image_url,omitempty"`
	IsNew          bool         `json:"is_new"`
}

// IngredientTexts returns every ingredient rendered as text.
func (r Recipe) IngredientTexts() []string {
	out := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		out = append(out, ing.Text())
	}
	return out
}

// ResolvedMealType returns the canonical meal type, reading the legacy
// camelCase field when the snake_case one is empty.
func (r Recipe) ResolvedMealType() MealType {
	for _, raw := range []string{string(r.MealType), r.LegacyMealType} {
		if mt, ok := ParseMealType(raw); ok {
			return mt
		}
	}
	return r.MealType
}

// NormalizeMealType folds both meal type field variants into MealType.
func (r *Recipe) NormalizeMealType() {
	r.MealType = r.ResolvedMealType()
	r.LegacyMealType = ""
}
