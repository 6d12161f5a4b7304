package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SafeKeyPart replaces anything outside [a-zA-Z0-9._-] so caller-supplied
// identifiers cannot introduce path segments.
func SafeKeyPart(s string) string {
	s = unsafeKeyChars.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Trim(s, "._")
	if s == "" {
		return "unnamed"
	}
	return s
}

// RecipeImageKey is the object key for a recipe's generated image.
func RecipeImageKey(recipeID, ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = "png"
	}
	return path.Join("recipes", SafeKeyPart(recipeID)+"."+ext)
}

// PlanDocumentKey is the object key for a rendered plan, bucketed by month.
func PlanDocumentKey(paymentRef string, at time.Time) string {
	return path.Join("plans", at.UTC().Format("2006-01"), fmt.Sprintf("%s.xlsx", SafeKeyPart(paymentRef)))
}
