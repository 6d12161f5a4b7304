// Package filter applies classified customer preferences to candidate recipes.
package filter

import (
	"github.com/timmy/mealplan/internal/domain"
)

// ReducePercent is the share of the original batch that may contain a reduce token.
const ReducePercent = 10

// Apply runs the dietary-needs, hard-avoid and soft-reduce passes in order.
// The reduce cap is computed from the size of the list passed in.
func Apply(recipes []domain.Recipe, prefs domain.Preferences, dietaryNeeds []string) []domain.Recipe {
	if prefs.IsEmpty() && len(dietaryNeeds) == 0 {
		return recipes
	}
	originalCount := len(recipes)

	out := recipes
	if len(dietaryNeeds) > 0 {
		out = make([]domain.Recipe, 0, len(recipes))
		for _, r := range recipes {
			if !violatesDietaryNeeds(r.Name, dietaryNeeds) {
				out = append(out, r)
			}
		}
	}

	out = ExcludeAvoided(out, prefs.Avoid)
	return capReduced(out, prefs.Reduce, originalCount)
}

// capReduced keeps every recipe without a reduce token, followed by the first
// ceil(originalCount*ReducePercent/100) recipes that have one.
func capReduced(recipes []domain.Recipe, reduce []string, originalCount int) []domain.Recipe {
	if len(reduce) == 0 {
		return recipes
	}

	var withReduce, withoutReduce []domain.Recipe
	for _, r := range recipes {
		if ContainsReduce(r, reduce) {
			withReduce = append(withReduce, r)
		} else {
			withoutReduce = append(withoutReduce, r)
		}
	}

	target := (originalCount*ReducePercent + 99) / 100
	if target > len(withReduce) {
		target = len(withReduce)
	}
	out := make([]domain.Recipe, 0, len(withoutReduce)+target)
	out = append(out, withoutReduce...)
	return append(out, withReduce[:target]...)
}
