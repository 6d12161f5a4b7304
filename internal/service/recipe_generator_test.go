package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/mealplan/internal/domain"
)

func chatServer(t *testing.T, status int, content string, seen *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status >= 400 {
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
			return
		}
		body, _ := json.Marshal(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		})
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestGenerator(t *testing.T, baseURL string) *RecipeGenerator {
	t.Helper()
	g, err := NewRecipeGenerator(&RecipeGeneratorConfig{Model: "test-model", APIKey: "test-key", BaseURL: baseURL})
	require.NoError(t, err)
	return g
}

const validRecipeReply = "Here you go:\n```json\n" + `{
  "name": " Lemon Herb Chicken ",
  "description": "Bright and quick.",
  "mealType": "breakfast",
  "ingredients": ["2 lemons", {"item": "chicken thigh", "quantity": 1.5, "unit": "lb"}],
  "instructions": ["Season.", "Roast."],
  "nutrition": {"calories": 420, "protein_g": 38, "carbs_g": 6, "fat_g": 24},
  "prep_minutes": 25
}` + "\n```"

func TestRecipeGenerator_Generate(t *testing.T) {
	var seen chatRequest
	srv := chatServer(t, http.StatusOK, validRecipeReply, &seen)
	g := newTestGenerator(t, srv.URL)

	recipe, err := g.Generate(context.Background(), domain.GenerationRequest{
		DietType:          "keto",
		MealType:          domain.MealTypeDinner,
		Servings:          4,
		AvoidIngredients:  []string{"peanut"},
		ReduceIngredients: []string{"onion"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, recipe.ID)
	assert.True(t, recipe.IsNew)
	assert.Equal(t, "Lemon Herb Chicken", recipe.Name)
	assert.Equal(t, domain.MealTypeDinner, recipe.MealType)
	assert.Empty(t, recipe.LegacyMealType)
	assert.Equal(t, "keto", recipe.DietType)
	assert.Equal(t, 4, recipe.Servings)
	require.Len(t, recipe.Ingredients, 2)
	assert.Equal(t, "2 lemons", recipe.Ingredients[0].Item)
	assert.Equal(t, 1.5, recipe.Ingredients[1].Quantity)
	require.NotNil(t, recipe.Nutrition)
	assert.Equal(t, 38.0, recipe.Nutrition.Protein)

	assert.Equal(t, "test-model", seen.Model)
	require.Len(t, seen.Messages, 2)
	assert.Contains(t, seen.Messages[1].Content, "MUST NOT contain: peanut")
	assert.Contains(t, seen.Messages[1].Content, "Minimize: onion")
}

func TestRecipeGenerator_InvalidReplies(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no json", "Sorry, I cannot help with that."},
		{"missing ingredients", `{"name": "Toast", "instructions": ["Toast it."]}`},
		{"empty name", `{"name": "", "ingredients": ["bread"], "instructions": []}`},
		{"broken json", `{"name": "Toast", "ingredients": [}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := chatServer(t, http.StatusOK, tt.content, nil)
			_, err := newTestGenerator(t, srv.URL).Generate(context.Background(), domain.GenerationRequest{MealType: domain.MealTypeDinner})
			assert.ErrorIs(t, err, ErrInvalidRecipe)
		})
	}
}

func TestRecipeGenerator_HTTPError(t *testing.T) {
	srv := chatServer(t, http.StatusTooManyRequests, "", nil)
	_, err := newTestGenerator(t, srv.URL).Generate(context.Background(), domain.GenerationRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

type stubSource struct {
	recipe *domain.Recipe
	err    error
}

func (s stubSource) Generate(context.Context, domain.GenerationRequest) (*domain.Recipe, error) {
	return s.recipe, s.err
}

type recordingSaver struct {
	saved []domain.Recipe
	err   error
}

func (s *recordingSaver) Save(_ context.Context, r domain.Recipe, source string) error {
	s.saved = append(s.saved, r)
	return s.err
}

func TestPersistingGenerator(t *testing.T) {
	ctx := context.Background()
	recipe := &domain.Recipe{ID: "g1", Name: "Soup"}

	saver := &recordingSaver{}
	got, err := NewPersistingGenerator(stubSource{recipe: recipe}, saver).Generate(ctx, domain.GenerationRequest{})
	require.NoError(t, err)
	assert.Equal(t, recipe, got)
	require.Len(t, saver.saved, 1)
	assert.Equal(t, "g1", saver.saved[0].ID)

	// A failing save does not fail generation.
	saver = &recordingSaver{err: errors.New("db down")}
	got, err = NewPersistingGenerator(stubSource{recipe: recipe}, saver).Generate(ctx, domain.GenerationRequest{})
	require.NoError(t, err)
	assert.Equal(t, recipe, got)

	// Generation errors are passed through and nothing is saved.
	saver = &recordingSaver{}
	_, err = NewPersistingGenerator(stubSource{err: ErrInvalidRecipe}, saver).Generate(ctx, domain.GenerationRequest{})
	assert.ErrorIs(t, err, ErrInvalidRecipe)
	assert.Empty(t, saver.saved)
}
