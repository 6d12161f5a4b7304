package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/timmy/mealplan/internal/domain"
	"github.com/timmy/mealplan/internal/logger"
	"github.com/timmy/mealplan/internal/source"
)

// ManifestFileName is the JSON Lines file a recipe directory must contain.
const ManifestFileName = "recipes.jsonl"

// manifestLine is one recipe in recipes.jsonl.
type manifestLine struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	MealType     string              `json:"meal_type"`
	DietTypes    []string            `json:"diet_types"`
	Ingredients  []domain.Ingredient `json:"ingredients"`
	Instructions []string            `json:"instructions"`
	Nutrition    *domain.Nutrition   `json:"nutrition"`
	Servings     int                 `json:"servings"`
	PrepMinutes  int                 `json:"prep_minutes"`
	Image        string              `json:"image"`
}

// Adapter reads library recipes from <dir>/recipes.jsonl.
type Adapter struct {
	dir    string
	items  []source.RecipeItem
	loaded bool
}

// NewAdapter creates an adapter for the given directory.
func NewAdapter(dir string) *Adapter {
	return &Adapter{dir: dir}
}

// GetSourceID returns the source identifier used as the library provenance.
func (a *Adapter) GetSourceID() string {
	return "jsonl:" + filepath.Base(filepath.Clean(a.dir))
}

// FetchBatch returns up to limit recipes after cursor, an index into the file.
func (a *Adapter) FetchBatch(ctx context.Context, cursor string, limit int) ([]source.RecipeItem, string, error) {
	if !a.loaded {
		if err := a.load(ctx); err != nil {
			return nil, "", fmt.Errorf("failed to load recipes: %w", err)
		}
		a.loaded = true
	}

	start := 0
	if cursor != "" {
		var err error
		if start, err = strconv.Atoi(cursor); err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", err)
		}
	}
	if start >= len(a.items) {
		return []source.RecipeItem{}, "", nil
	}

	end := start + limit
	if limit <= 0 || end > len(a.items) {
		end = len(a.items)
	}
	next := ""
	if end < len(a.items) {
		next = strconv.Itoa(end)
	}
	return a.items[start:end], next, nil
}

// Count returns how many valid recipes the manifest holds.
func (a *Adapter) Count(ctx context.Context) (int, error) {
	if !a.loaded {
		if err := a.load(ctx); err != nil {
			return 0, err
		}
		a.loaded = true
	}
	return len(a.items), nil
}

func (a *Adapter) load(ctx context.Context) error {
	path := filepath.Join(a.dir, ManifestFileName)
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open manifest %s: %w", path, err)
	}
	defer file.Close()

	a.items = []source.RecipeItem{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		item, err := a.parseLine(line)
		if err != nil {
			logger.FromContext(ctx).WithFields(logger.Fields{
				"path": path,
				"line": lineNo,
			}).WithError(err).Warn("Skipping malformed recipe line")
			continue
		}
		a.items = append(a.items, item)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	return nil
}

func (a *Adapter) parseLine(line string) (source.RecipeItem, error) {
	var m manifestLine
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		return source.RecipeItem{}, err
	}
	if m.ID == "" || strings.TrimSpace(m.Name) == "" {
		return source.RecipeItem{}, fmt.Errorf("id and name are required")
	}
	mealType, ok := domain.ParseMealType(m.MealType)
	if !ok {
		return source.RecipeItem{}, fmt.Errorf("unknown meal type %q", m.MealType)
	}

	item := source.RecipeItem{
		SourceID: m.ID,
		Recipe: domain.Recipe{
			ID:           m.ID,
			Name:         strings.TrimSpace(m.Name),
			Description:  m.Description,
			MealType:     mealType,
			Ingredients:  m.Ingredients,
			Instructions: m.Instructions,
			Nutrition:    m.Nutrition,
			Servings:     m.Servings,
			PrepMinutes:  m.PrepMinutes,
		},
		DietTypes: m.DietTypes,
	}
	if m.Image != "" {
		imagePath := filepath.Join(a.dir, filepath.Clean("/"+m.Image))
		if _, err := os.Stat(imagePath); err == nil {
			item.ImagePath = imagePath
		}
	}
	return item, nil
}
