package filter

import (
	"strings"

	"github.com/timmy/mealplan/internal/domain"
)

// searchableFields returns the lowercased name, description and ingredient
// lines a token is matched against.
func searchableFields(r domain.Recipe) []string {
	fields := make([]string, 0, len(r.Ingredients)+2)
	fields = append(fields, strings.ToLower(r.Name), strings.ToLower(r.Description))
	for _, line := range r.IngredientTexts() {
		fields = append(fields, strings.ToLower(line))
	}
	return fields
}

func isPepperToken(t string) bool {
	return t == "pepper" || t == "peppers"
}

// matchesAvoid is substring matching with one exception: pepper tokens match
// "pepper" anywhere except inside "peppercorn".
func matchesAvoid(field, token string) bool {
	if isPepperToken(token) {
		return strings.Contains(strings.ReplaceAll(field, "peppercorn", ""), "pepper")
	}
	return strings.Contains(field, token)
}

// ContainsAvoid reports whether any avoid token appears in the recipe's name,
// description or ingredients.
func ContainsAvoid(r domain.Recipe, tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	fields := searchableFields(r)
	for _, t := range tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		for _, f := range fields {
			if matchesAvoid(f, t) {
				return true
			}
		}
	}
	return false
}

// ContainsReduce reports whether any reduce token appears as a plain substring.
func ContainsReduce(r domain.Recipe, tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	fields := searchableFields(r)
	for _, t := range tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		for _, f := range fields {
			if strings.Contains(f, t) {
				return true
			}
		}
	}
	return false
}

// ExcludeAvoided drops every recipe matching an avoid token, keeping order.
func ExcludeAvoided(recipes []domain.Recipe, avoid []string) []domain.Recipe {
	out := make([]domain.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if !ContainsAvoid(r, avoid) {
			out = append(out, r)
		}
	}
	return out
}
