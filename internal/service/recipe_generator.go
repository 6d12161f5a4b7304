package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/timmy/mealplan/internal/domain"
	"github.com/timmy/mealplan/internal/logger"
	"github.com/timmy/mealplan/internal/prompts"
)

// ErrInvalidRecipe is returned when the model's reply is not a usable recipe.
var ErrInvalidRecipe = errors.New("invalid recipe from generation service")

const recipeSchema = `{
  "type": "object",
  "required": ["name", "ingredients", "instructions"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "ingredients": {
      "type": "array",
      "minItems": 1,
      "items": {
        "anyOf": [
          {"type": "string", "minLength": 1},
          {"type": "object", "required": ["item"], "properties": {"item": {"type": "string", "minLength": 1}}}
        ]
      }
    },
    "instructions": {"type": "array", "items": {"type": "string"}},
    "nutrition": {"type": "object"},
    "servings": {"type": "number"},
    "prep_minutes": {"type": "number"}
  }
}`

// RecipeGeneratorConfig holds configuration for the recipe generation client.
type RecipeGeneratorConfig struct {
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// RecipeGenerator produces new recipes through an OpenAI-compatible chat API.
type RecipeGenerator struct {
	client   *resty.Client
	model    string
	endpoint string
	schema   *jsonschema.Schema
}

// NewRecipeGenerator creates a new recipe generation client.
// Parameters:
//   - cfg: model, API key, base URL and timeout.
//
// Returns:
//   - *RecipeGenerator: initialized client.
//   - error: non-nil if the response schema fails to compile.
func NewRecipeGenerator(cfg *RecipeGeneratorConfig) (*RecipeGenerator, error) {
	schema, err := jsonschema.CompileString("recipe.json", recipeSchema)
	if err != nil {
		return nil, fmt.Errorf("compile recipe schema: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	client := resty.New().
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &RecipeGenerator{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
		schema:   schema,
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Generate asks the model for one recipe matching req.
// The returned recipe has a fresh ID, IsNew set and the requested meal type.
func (g *RecipeGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.Recipe, error) {
	start := time.Now()

	body := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompts.RecipeSystemPrompt},
			{Role: "user", Content: prompts.BuildRecipePrompt(req)},
		},
		Temperature: 0.8,
	}

	var resp chatResponse
	httpResp, err := g.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&resp).
		SetError(&resp).
		Post(g.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call recipe API: %w", err)
	}
	if httpResp.IsError() {
		return nil, fmt.Errorf("recipe API returned error: %s", describeHTTPError(httpResp, resp.Error))
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("recipe API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrInvalidRecipe)
	}

	recipe, err := g.parseRecipe(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	recipe.ID = uuid.New().String()
	recipe.IsNew = true
	recipe.MealType = req.MealType
	recipe.LegacyMealType = ""
	recipe.DietType = req.DietType
	if recipe.Servings <= 0 {
		recipe.Servings = req.Servings
	}

	logger.With(logger.Fields{
		logger.FieldRecipeID: recipe.ID,
		logger.FieldMealType: req.MealType,
	}).WithDuration(time.Since(start).Milliseconds()).Debug(ctx, "Recipe generated")

	return recipe, nil
}

// parseRecipe pulls the outermost JSON object out of the model's reply and
// validates it before decoding.
func (g *RecipeGenerator) parseRecipe(content string) (*domain.Recipe, error) {
	raw := extractJSONObject(content)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrInvalidRecipe)
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
	}
	if err := g.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
	}

	var recipe domain.Recipe
	if err := json.Unmarshal([]byte(raw), &recipe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
	}
	recipe.Name = strings.TrimSpace(recipe.Name)
	return &recipe, nil
}

func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func describeHTTPError(resp *resty.Response, apiErr *apiError) string {
	if apiErr != nil && apiErr.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), apiErr.Message)
	}
	body := string(resp.Body())
	if len(body) > 512 {
		body = body[:512]
	}
	return fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), body)
}

// LibrarySaver stores recipes for reuse.
type LibrarySaver interface {
	Save(ctx context.Context, recipe domain.Recipe, source string) error
}

// RecipeSource is the generator interface the persisting decorator wraps.
type RecipeSource interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (*domain.Recipe, error)
}

// PersistingGenerator saves every generated recipe into the library so later
// customers can draw it. Save failures are logged and ignored.
type PersistingGenerator struct {
	next  RecipeSource
	saver LibrarySaver
}

// NewPersistingGenerator wraps next so its output is written to saver.
func NewPersistingGenerator(next RecipeSource, saver LibrarySaver) *PersistingGenerator {
	return &PersistingGenerator{next: next, saver: saver}
}

// Generate delegates to the wrapped generator and stores the result.
func (p *PersistingGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.Recipe, error) {
	recipe, err := p.next.Generate(ctx, req)
	if err != nil || recipe == nil {
		return recipe, err
	}
	if err := p.saver.Save(ctx, *recipe, "generated"); err != nil {
		logger.FromContext(ctx).
			WithField(logger.FieldRecipeID, recipe.ID).
			WithError(err).
			Warn("Failed to save generated recipe to library")
	}
	return recipe, nil
}
