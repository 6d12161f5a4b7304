package domain

// LibraryQuery asks the recipe library for a random sample.
type LibraryQuery struct {
	DietType  string
	MealTypes []MealType
	Limit     int
	// CustomerEmail, when set, excludes recipes recently delivered to them.
	CustomerEmail string
}

// GenerationRequest describes one recipe the generation service should produce.
type GenerationRequest struct {
	DietType             string
	MealType             MealType
	Difficulty           string
	Servings             int
	AvoidIngredients     []string
	ReduceIngredients    []string
	PreferredIngredients []string
}

// ImageRequest describes the recipe an image is generated for.
type ImageRequest struct {
	RecipeID    string
	Name        string
	Description string
	MealType    MealType
	DietType    string
}

// ImageResult is the outcome of one image generation call.
type ImageResult struct {
	Success  bool
	ImageURL string
}
