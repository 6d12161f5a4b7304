// Package selection blends library and freshly generated recipes into a
// deduplicated, meal-type balanced batch.
package selection

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/timmy/mealplan/internal/domain"
	"github.com/timmy/mealplan/internal/filter"
	"github.com/timmy/mealplan/internal/logger"
)

// LibraryOversample is how many library rows are fetched per wanted recipe,
// leaving room for the avoid filter.
const LibraryOversample = 3

// Library draws stored recipes.
type Library interface {
	Sample(ctx context.Context, q domain.LibraryQuery) ([]domain.Recipe, error)
}

// Generator produces a new recipe, or an error when it cannot.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (*domain.Recipe, error)
}

// Customer is the per-job context the engine needs.
type Customer struct {
	Email       string
	FamilySize  int
	Preferences domain.Preferences
}

// Request is one selection call.
type Request struct {
	DietType             string
	TotalRecipes         int
	NewRecipesPercentage int
	MealTypes            []domain.MealType
	Customer             Customer
}

// EngineConfig holds optional engine settings.
type EngineConfig struct {
	Difficulty string
	// Rand overrides the shuffle source; tests pass a seeded one.
	Rand *rand.Rand
}

// Engine is the recipe selection engine.
type Engine struct {
	library    Library
	generator  Generator
	difficulty string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine creates a selection engine.
func NewEngine(library Library, generator Generator, cfg *EngineConfig) *Engine {
	if cfg == nil {
		cfg = &EngineConfig{}
	}
	rng := cfg.Rand
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>1))
	}
	difficulty := cfg.Difficulty
	if difficulty == "" {
		difficulty = "easy"
	}
	return &Engine{
		library:    library,
		generator:  generator,
		difficulty: difficulty,
		rng:        rng,
	}
}

// SplitCounts returns how many recipes should be newly generated and how many
// drawn from the library.
func SplitCounts(total, newPercentage int) (newCount, libraryCount int) {
	if total <= 0 {
		return 0, 0
	}
	if newPercentage < 0 {
		newPercentage = 0
	}
	if newPercentage > 100 {
		newPercentage = 100
	}
	newCount = (total*newPercentage + 99) / 100
	return newCount, total - newCount
}

// Select draws from the library, fills the shortfall with generated recipes,
// then deduplicates and balances the result. Only library errors are returned;
// generation failures shrink the batch.
func (e *Engine) Select(ctx context.Context, req Request) ([]domain.Recipe, error) {
	newCount, libraryCount := SplitCounts(req.TotalRecipes, req.NewRecipesPercentage)

	logger.With(logger.Fields{
		"total":         req.TotalRecipes,
		"new_count":     newCount,
		"library_count": libraryCount,
	}).Debug(ctx, "Selecting recipes")

	var selected []domain.Recipe
	if libraryCount > 0 {
		drawn, err := e.drawLibrary(ctx, req, libraryCount)
		if err != nil {
			return nil, err
		}
		selected = append(selected, drawn...)
	}

	need := req.TotalRecipes - len(selected)
	selected = append(selected, e.fill(ctx, req, need)...)

	return Balance(Dedup(selected), req.MealTypes), nil
}

func (e *Engine) drawLibrary(ctx context.Context, req Request, want int) ([]domain.Recipe, error) {
	pool, err := e.library.Sample(ctx, domain.LibraryQuery{
		DietType:      req.DietType,
		MealTypes:     req.MealTypes,
		Limit:         want * LibraryOversample,
		CustomerEmail: req.Customer.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("library draw: %w", err)
	}

	pool = filter.ExcludeAvoided(pool, req.Customer.Preferences.Avoid)
	e.shuffle(pool)
	if len(pool) > want {
		pool = pool[:want]
	}
	for i := range pool {
		pool[i].IsNew = false
	}
	return pool, nil
}

func (e *Engine) shuffle(recipes []domain.Recipe) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rng.Shuffle(len(recipes), func(i, j int) {
		recipes[i], recipes[j] = recipes[j], recipes[i]
	})
}

// fill spreads need across the meal types, ceil(need/types) each, never
// issuing more than need generation calls in total.
func (e *Engine) fill(ctx context.Context, req Request, need int) []domain.Recipe {
	if need <= 0 || len(req.MealTypes) == 0 {
		return nil
	}

	perType := (need + len(req.MealTypes) - 1) / len(req.MealTypes)
	prefs := req.Customer.Preferences

	var out []domain.Recipe
	issued := 0
	for _, mt := range req.MealTypes {
		for i := 0; i < perType && issued < need; i++ {
			issued++
			r, err := e.generator.Generate(ctx, domain.GenerationRequest{
				DietType:             req.DietType,
				MealType:             mt,
				Difficulty:           e.difficulty,
				Servings:             req.Customer.FamilySize,
				AvoidIngredients:     prefs.Avoid,
				ReduceIngredients:    prefs.Reduce,
				PreferredIngredients: prefs.Prefer,
			})
			if err != nil || r == nil {
				entry := logger.FromContext(ctx).WithField(logger.FieldMealType, mt)
				if err != nil {
					entry = entry.WithError(err)
				}
				entry.Warn("Recipe generation failed, skipping slot")
				continue
			}
			r.IsNew = true
			if r.ResolvedMealType() == "" {
				r.MealType = mt
			}
			out = append(out, *r)
		}
	}
	return out
}
