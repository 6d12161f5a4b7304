package orchestrator

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/timmy/mealplan/internal/domain"
	"github.com/timmy/mealplan/internal/filter"
	"github.com/timmy/mealplan/internal/logger"
	"github.com/timmy/mealplan/internal/render"
	"github.com/timmy/mealplan/internal/selection"
	"github.com/timmy/mealplan/internal/service"
)

// RunPhase executes the unit of work for in.Phase. It never touches the job
// store; the caller persists the returned output.
func (o *Orchestrator) RunPhase(ctx context.Context, in domain.PhaseInput) (domain.PhaseOutput, error) {
	if !in.Phase.Valid() {
		return domain.PhaseOutput{}, fmt.Errorf("%w: %d", ErrUnknownPhase, in.Phase)
	}
	first, second := DinnerSplit(in.DaysInMonth)

	switch in.Phase {
	case domain.PhaseDinnersFirst:
		return o.selectionPhase(ctx, in, domain.MealTypeDinner, first, domain.PhaseDinnersSecond,
			"Dinners part 1")
	case domain.PhaseDinnersSecond:
		return o.selectionPhase(ctx, in, domain.MealTypeDinner, second, domain.PhaseBreakfasts,
			"Dinners part 2")
	case domain.PhaseBreakfasts:
		return o.selectionPhase(ctx, in, domain.MealTypeBreakfast, o.cfg.BonusBreakfasts, domain.PhaseDesserts,
			"Bonus breakfasts")
	case domain.PhaseDesserts:
		return o.selectionPhase(ctx, in, domain.MealTypeDessert, o.cfg.BonusDesserts, domain.PhaseFinalize,
			"Bonus desserts")
	case domain.PhaseFinalize:
		return o.finalize(ctx, in)
	default:
		return domain.PhaseOutput{}, fmt.Errorf("%w: %d", ErrUnknownPhase, in.Phase)
	}
}

// selectionPhase oversamples candidates, filters them, drops anything already
// in the plan, keeps the first target in engine order and annotates them.
func (o *Orchestrator) selectionPhase(ctx context.Context, in domain.PhaseInput, mealType domain.MealType, target int, next domain.Phase, label string) (domain.PhaseOutput, error) {
	if target <= 0 {
		return domain.PhaseOutput{NextPhase: next, Message: fmt.Sprintf("%s: nothing to select", label)}, nil
	}

	candidates, err := o.selector.Select(ctx, selection.Request{
		DietType:             in.DietType,
		TotalRecipes:         target * o.cfg.Oversample,
		NewRecipesPercentage: o.cfg.NewRecipesPercentage,
		MealTypes:            []domain.MealType{mealType},
		Customer: selection.Customer{
			Email:       in.CustomerEmail,
			FamilySize:  in.FamilySize,
			Preferences: in.Preferences,
		},
	})
	if err != nil {
		return domain.PhaseOutput{}, fmt.Errorf("select %s recipes: %w", mealType, err)
	}

	picked := filter.Apply(candidates, in.Preferences, in.DietaryNeeds)
	picked = selection.ExcludeKnown(picked, in.Accumulated)
	if len(picked) > target {
		picked = picked[:target]
	}
	if len(picked) < target {
		logger.With(logger.Fields{
			logger.FieldMealType: mealType,
			"target":             target,
			"candidates":         len(candidates),
		}).WithCount(len(picked)).Warn(ctx, "Phase selected fewer recipes than targeted")
	}

	recipes := o.annotator.Annotate(ctx, picked, in.DietType)
	return domain.PhaseOutput{
		Recipes:   recipes,
		NextPhase: next,
		Message:   fmt.Sprintf("%s: %d of %d %s recipes ready", label, len(recipes), target, mealType),
	}, nil
}

// finalize normalizes and scales the accumulated plan, records the delivery,
// renders the document and emails it.
func (o *Orchestrator) finalize(ctx context.Context, in domain.PhaseInput) (domain.PhaseOutput, error) {
	recipes := make([]domain.Recipe, len(in.Accumulated))
	copy(recipes, in.Accumulated)
	for i := range recipes {
		recipes[i].NormalizeMealType()
	}

	ids := make([]string, 0, len(recipes))
	for _, r := range recipes {
		if r.ID != "" {
			ids = append(ids, r.ID)
		}
	}
	if err := o.tracker.RecordDelivered(ctx, in.CustomerEmail, ids, domain.YearMonth(in.Now)); err != nil {
		return domain.PhaseOutput{}, fmt.Errorf("record delivered recipes: %w", err)
	}

	recipes = ScaleForFamily(recipes, in.FamilySize)

	url, err := o.renderer.Render(ctx, render.RenderRequest{
		CustomerEmail: in.CustomerEmail,
		ProductName:   productName(in.ProductType),
		PaymentRef:    in.PaymentRef,
		DietPlanID:    in.DietPlanID,
		DietType:      in.DietType,
		FamilySize:    in.FamilySize,
		Recipes:       recipes,
	})
	if err != nil {
		return domain.PhaseOutput{}, fmt.Errorf("render plan: %w", err)
	}

	msg, err := service.RenderPlanEmail(in.CustomerEmail, service.PlanEmailData{
		Month:       in.Now.Format("January 2006"),
		RecipeCount: len(recipes),
		DietType:    in.DietType,
		FamilySize:  in.FamilySize,
		DocumentURL: url,
		Highlights:  highlights(recipes, 3),
	})
	if err != nil {
		return domain.PhaseOutput{}, err
	}
	if err := o.mailer.Send(ctx, msg); err != nil {
		return domain.PhaseOutput{}, fmt.Errorf("send plan email: %w", err)
	}

	return domain.PhaseOutput{
		Message: fmt.Sprintf("Plan delivered with %d recipes", len(recipes)),
		Completion: &domain.Completion{
			DocumentURL: url,
			RecipeCount: len(recipes),
			Recipes:     recipes,
		},
	}, nil
}

// ScaleForFamily sets every recipe's servings to familySize and scales
// structured ingredient quantities to match. Nutrition stays per serving.
// The input slice is not modified.
func ScaleForFamily(recipes []domain.Recipe, familySize int) []domain.Recipe {
	out := make([]domain.Recipe, len(recipes))
	copy(out, recipes)
	if familySize <= 0 {
		return out
	}
	for i := range out {
		base := out[i].Servings
		if base > 0 && base != familySize {
			factor := float64(familySize) / float64(base)
			ingredients := make([]domain.Ingredient, len(out[i].Ingredients))
			for j, ing := range out[i].Ingredients {
				if ing.Quantity > 0 {
					ing.Quantity = math.Round(ing.Quantity*factor*100) / 100
				}
				ingredients[j] = ing
			}
			out[i].Ingredients = ingredients
		}
		out[i].Servings = familySize
	}
	return out
}

func productName(productType string) string {
	words := strings.FieldsFunc(productType, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	if len(words) == 0 {
		return "Meal Plan"
	}
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func highlights(recipes []domain.Recipe, n int) []string {
	var out []string
	for _, r := range recipes {
		if len(out) == n {
			break
		}
		if r.MealType == domain.MealTypeDinner && r.Name != "" {
			out = append(out, r.Name)
		}
	}
	return out
}
