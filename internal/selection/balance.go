package selection

import "github.com/timmy/mealplan/internal/domain"

// Balance takes up to ceil(len/types) recipes of each requested meal type, in
// request order, then appends whatever was left in its original order.
func Balance(recipes []domain.Recipe, mealTypes []domain.MealType) []domain.Recipe {
	if len(recipes) == 0 || len(mealTypes) == 0 {
		return recipes
	}

	targetPerType := (len(recipes) + len(mealTypes) - 1) / len(mealTypes)
	used := make([]bool, len(recipes))
	out := make([]domain.Recipe, 0, len(recipes))

	for _, mt := range mealTypes {
		taken := 0
		for i, r := range recipes {
			if taken >= targetPerType {
				break
			}
			if used[i] || r.ResolvedMealType() != mt {
				continue
			}
			used[i] = true
			out = append(out, r)
			taken++
		}
	}

	for i, r := range recipes {
		if !used[i] {
			out = append(out, r)
		}
	}
	return out
}
