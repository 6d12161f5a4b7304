package prompts

import (
	"fmt"
	"strings"

	"github.com/timmy/mealplan/internal/domain"
)

// ============================================================================
// Recipe Generation Prompts (LLM)
// ============================================================================

// RecipeSystemPrompt defines the role and output contract for recipe generation.
const RecipeSystemPrompt = `You are a professional recipe developer writing recipes for a monthly family meal plan.

Rules:
- Every recipe must be cookable at home with supermarket ingredients.
- Never use an ingredient the customer must avoid, including as a garnish, sauce base or stock.
- Use ingredients the customer wants to reduce sparingly or not at all.
- Quantities are for the requested number of servings.
- Nutrition values are per serving.

Output a single JSON object and nothing else. No markdown fences, no commentary.`

// RecipeOutputFormat is appended to every user prompt.
const RecipeOutputFormat = `JSON format:
{
  "name": "string",
  "description": "one or two sentences",
  "ingredients": [{"item": "string", "quantity": number, "unit": "string", "note": "string"}],
  "instructions": ["step 1", "step 2"],
  "nutrition": {"calories": number, "protein_g": number, "carbs_g": number, "fat_g": number, "fiber_g": number},
  "servings": number,
  "prep_minutes": number
}`

// BuildRecipePrompt renders the user prompt for one generation request.
func BuildRecipePrompt(req domain.GenerationRequest) string {
	var b strings.Builder

	servings := req.Servings
	if servings <= 0 {
		servings = 4
	}
	fmt.Fprintf(&b, "Create one %s %s recipe", difficultyOrDefault(req.Difficulty), mealTypeOrDefault(req.MealType))
	if req.DietType != "" {
		fmt.Fprintf(&b, " that fits a %s diet", req.DietType)
	}
	fmt.Fprintf(&b, ", serving %d.\n", servings)

	if len(req.AvoidIngredients) > 0 {
		fmt.Fprintf(&b, "\nMUST NOT contain: %s.\n", strings.Join(req.AvoidIngredients, ", "))
	}
	if len(req.ReduceIngredients) > 0 {
		fmt.Fprintf(&b, "Minimize: %s.\n", strings.Join(req.ReduceIngredients, ", "))
	}
	if len(req.PreferredIngredients) > 0 {
		fmt.Fprintf(&b, "The customer enjoys: %s. Feature one of them if it fits naturally.\n", strings.Join(req.PreferredIngredients, ", "))
	}

	b.WriteString("\n")
	b.WriteString(RecipeOutputFormat)
	return b.String()
}

func difficultyOrDefault(d string) string {
	if d == "" {
		return "easy"
	}
	return d
}

func mealTypeOrDefault(mt domain.MealType) string {
	if mt == "" {
		return string(domain.MealTypeDinner)
	}
	return string(mt)
}

// ============================================================================
// Image Prompts
// ============================================================================

// BuildImagePrompt describes the food photo for a recipe.
func BuildImagePrompt(req domain.ImageRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Overhead food photograph of %s", strings.TrimSpace(req.Name))
	if req.MealType != "" {
		fmt.Fprintf(&b, ", served as %s", req.MealType)
	}
	b.WriteString(". ")
	if desc := strings.TrimSpace(req.Description); desc != "" {
		b.WriteString(desc)
		if !strings.HasSuffix(desc, ".") {
			b.WriteString(".")
		}
		b.WriteString(" ")
	}
	b.WriteString("Natural light, rustic table, shallow depth of field. No text, no people, no hands.")
	return b.String()
}

// ============================================================================
// Email
// ============================================================================

// PlanEmailSubject is the subject line of the delivery email.
const PlanEmailSubject = "Your meal plan is ready"

// PlanEmailTemplate is the html/template body of the delivery email.
const PlanEmailTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Helvetica, Arial, sans-serif; color: #222;">
  <h2>Your {{.Month}} meal plan is ready</h2>
  <p>We put together {{.RecipeCount}} recipes{{if .DietType}} for your {{.DietType}} plan{{end}}{{if gt .FamilySize 1}}, sized for {{.FamilySize}} people{{end}}.</p>
  <p><a href="{{.DocumentURL}}">Download your plan</a></p>
  {{- if .Highlights}}
  <h3>A few highlights</h3>
  <ul>
    {{- range .Highlights}}
    <li>{{.}}</li>
    {{- end}}
  </ul>
  {{- end}}
  <p>Enjoy your meals!</p>
</body>
</html>`
