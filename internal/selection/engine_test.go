package selection

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/mealplan/internal/domain"
)

type fakeLibrary struct {
	recipes []domain.Recipe
	queries []domain.LibraryQuery
	err     error
}

func (f *fakeLibrary) Sample(_ context.Context, q domain.LibraryQuery) ([]domain.Recipe, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	n := q.Limit
	if n > len(f.recipes) {
		n = len(f.recipes)
	}
	out := make([]domain.Recipe, n)
	copy(out, f.recipes[:n])
	return out, nil
}

type fakeGenerator struct {
	mu       sync.Mutex
	requests []domain.GenerationRequest
	failOn   map[int]bool
}

func (f *fakeGenerator) Generate(_ context.Context, req domain.GenerationRequest) (*domain.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := len(f.requests)
	f.requests = append(f.requests, req)
	if f.failOn[call] {
		return nil, errors.New("model overloaded")
	}
	return &domain.Recipe{
		ID:   fmt.Sprintf("gen-%d", call),
		Name: fmt.Sprintf("Generated %s number %d", req.MealType, call),
	}, nil
}

func libraryOf(n int, mealType domain.MealType) []domain.Recipe {
	out := make([]domain.Recipe, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Recipe{
			ID:       fmt.Sprintf("lib-%s-%d", mealType, i),
			Name:     fmt.Sprintf("Library %s %d", mealType, i),
			MealType: mealType,
		})
	}
	return out
}

func seeded() *EngineConfig {
	return &EngineConfig{Rand: rand.New(rand.NewPCG(1, 2))}
}

func TestSplitCounts(t *testing.T) {
	tests := []struct {
		total, pct       int
		wantNew, wantLib int
	}{
		{10, 30, 3, 7},
		{10, 0, 0, 10},
		{10, 100, 10, 0},
		{7, 30, 3, 4},
		{42, 25, 11, 31},
		{0, 30, 0, 0},
		{10, 150, 10, 0},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d@%d%%", tc.total, tc.pct), func(t *testing.T) {
			n, l := SplitCounts(tc.total, tc.pct)
			assert.Equal(t, tc.wantNew, n)
			assert.Equal(t, tc.wantLib, l)
		})
	}
}

func TestSelectBlendsLibraryAndGenerated(t *testing.T) {
	lib := &fakeLibrary{recipes: libraryOf(30, domain.MealTypeDinner)}
	gen := &fakeGenerator{}
	engine := NewEngine(lib, gen, seeded())

	got, err := engine.Select(context.Background(), Request{
		DietType:             "balanced",
		TotalRecipes:         10,
		NewRecipesPercentage: 30,
		MealTypes:            []domain.MealType{domain.MealTypeDinner},
		Customer:             Customer{Email: "a@example.com", FamilySize: 4},
	})
	require.NoError(t, err)

	require.Len(t, lib.queries, 1)
	assert.Equal(t, 21, lib.queries[0].Limit, "library is oversampled 3x")
	assert.Equal(t, "a@example.com", lib.queries[0].CustomerEmail)
	assert.Len(t, gen.requests, 3)
	assert.Equal(t, 4, gen.requests[0].Servings)

	assert.Len(t, got, 10)
	fresh := 0
	for _, r := range got {
		if r.IsNew {
			fresh++
		}
	}
	assert.Equal(t, 3, fresh)
}

func TestSelectAppliesAvoidToLibraryDraw(t *testing.T) {
	recipes := libraryOf(6, domain.MealTypeDinner)
	recipes[0].Name = "Shrimp Scampi"
	recipes[1].Ingredients = []domain.Ingredient{{Item: "raw shrimp"}}
	lib := &fakeLibrary{recipes: recipes}
	engine := NewEngine(lib, &fakeGenerator{}, seeded())

	got, err := engine.Select(context.Background(), Request{
		TotalRecipes: 2,
		MealTypes:    []domain.MealType{domain.MealTypeDinner},
		Customer:     Customer{Preferences: domain.Preferences{Avoid: []string{"shrimp"}}},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, r := range got {
		assert.NotContains(t, strings.ToLower(r.Name), "shrimp")
		assert.NotEqual(t, recipes[1].ID, r.ID)
	}
}

func TestSelectFillsLibraryShortfallWithGeneration(t *testing.T) {
	lib := &fakeLibrary{recipes: libraryOf(2, domain.MealTypeDinner)}
	gen := &fakeGenerator{}
	engine := NewEngine(lib, gen, seeded())

	got, err := engine.Select(context.Background(), Request{
		TotalRecipes:         6,
		NewRecipesPercentage: 0,
		MealTypes:            []domain.MealType{domain.MealTypeDinner},
	})
	require.NoError(t, err)
	assert.Len(t, gen.requests, 4)
	assert.Len(t, got, 6)
}

func TestSelectSkipsFailedGenerationSilently(t *testing.T) {
	gen := &fakeGenerator{failOn: map[int]bool{1: true, 3: true}}
	engine := NewEngine(&fakeLibrary{}, gen, seeded())

	got, err := engine.Select(context.Background(), Request{
		TotalRecipes:         5,
		NewRecipesPercentage: 100,
		MealTypes:            []domain.MealType{domain.MealTypeBreakfast},
	})
	require.NoError(t, err)
	assert.Len(t, gen.requests, 5, "failed slots are not retried")
	assert.Len(t, got, 3)
	for _, r := range got {
		assert.True(t, r.IsNew)
		assert.Equal(t, domain.MealTypeBreakfast, r.MealType)
	}
}

func TestSelectDistributesGenerationAcrossMealTypes(t *testing.T) {
	gen := &fakeGenerator{}
	engine := NewEngine(&fakeLibrary{}, gen, seeded())

	_, err := engine.Select(context.Background(), Request{
		TotalRecipes:         5,
		NewRecipesPercentage: 100,
		MealTypes:            []domain.MealType{domain.MealTypeBreakfast, domain.MealTypeDessert},
	})
	require.NoError(t, err)
	require.Len(t, gen.requests, 5, "running total never exceeds the request")

	counts := map[domain.MealType]int{}
	for _, r := range gen.requests {
		counts[r.MealType]++
	}
	assert.Equal(t, 3, counts[domain.MealTypeBreakfast])
	assert.Equal(t, 2, counts[domain.MealTypeDessert])
}

func TestSelectReturnsLibraryError(t *testing.T) {
	engine := NewEngine(&fakeLibrary{err: errors.New("connection refused")}, &fakeGenerator{}, seeded())

	_, err := engine.Select(context.Background(), Request{
		TotalRecipes: 4,
		MealTypes:    []domain.MealType{domain.MealTypeDinner},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "library draw")
}
