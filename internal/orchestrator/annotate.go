package orchestrator

import (
	"context"
	"fmt"

	"github.com/timmy/mealplan/internal/domain"
	"github.com/timmy/mealplan/internal/logger"
	"golang.org/x/sync/errgroup"
)

// ImageGenerator produces an image reference for one recipe.
type ImageGenerator interface {
	Generate(ctx context.Context, req domain.ImageRequest) (domain.ImageResult, error)
}

// Annotator attaches generated images and the normalized meal type to a batch.
type Annotator struct {
	images  ImageGenerator
	workers int
}

// NewAnnotator creates an Annotator running at most workers image calls at
// once. images may be nil, in which case only meal types are normalized.
func NewAnnotator(images ImageGenerator, workers int) *Annotator {
	if workers <= 0 {
		workers = 1
	}
	return &Annotator{images: images, workers: workers}
}

// Annotate returns a copy of recipes in the same order, each with its meal type
// normalized and, when generation succeeded, an image URL. Image failures are
// logged and never returned.
func (a *Annotator) Annotate(ctx context.Context, recipes []domain.Recipe, dietType string) []domain.Recipe {
	out := make([]domain.Recipe, len(recipes))
	copy(out, recipes)
	for i := range out {
		out[i].NormalizeMealType()
	}
	if a.images == nil || len(out) == 0 {
		return out
	}

	var g errgroup.Group
	g.SetLimit(a.workers)
	for i := range out {
		g.Go(func() error {
			a.annotateOne(ctx, &out[i], dietType)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (a *Annotator) annotateOne(ctx context.Context, r *domain.Recipe, dietType string) {
	log := logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldRecipeID: r.ID,
		logger.FieldMealType: r.MealType,
	})

	res, err := a.safeGenerate(ctx, domain.ImageRequest{
		RecipeID:    r.ID,
		Name:        r.Name,
		Description: r.Description,
		MealType:    r.MealType,
		DietType:    dietType,
	})
	if err != nil {
		log.WithError(err).Warn("Image generation failed, keeping recipe without image")
		return
	}
	if !res.Success || res.ImageURL == "" {
		log.Warn("Image generation returned no image")
		return
	}
	r.ImageURL = res.ImageURL
}

func (a *Annotator) safeGenerate(ctx context.Context, req domain.ImageRequest) (res domain.ImageResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("image generator panicked: %v", p)
		}
	}()
	return a.images.Generate(ctx, req)
}
