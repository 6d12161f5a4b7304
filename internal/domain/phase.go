package domain

import "time"

// PhaseInput is everything a single phase reads. It is built once per
// invocation from the claimed job.
type PhaseInput struct {
	JobID         string
	Phase         Phase
	CustomerEmail string
	FamilySize    int
	DietType      string
	DietaryNeeds  []string
	ProductType   string
	PaymentRef    string
	DietPlanID    string
	Preferences   Preferences
	DaysInMonth   int
	Now           time.Time
	// Accumulated is read-only; phases return new records in PhaseOutput.
	Accumulated []Recipe
}

// PhaseOutput is what a phase hands back for persistence. Exactly one of
// NextPhase or Completion is meaningful.
type PhaseOutput struct {
	Recipes    []Recipe
	NextPhase  Phase
	Message    string
	Completion *Completion
}

// Completion carries the terminal fields written when phase 5 finishes.
type Completion struct {
	DocumentURL string
	RecipeCount int
	Recipes     []Recipe
}
