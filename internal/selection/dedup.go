package selection

import (
	"strings"
	"unicode"

	"github.com/timmy/mealplan/internal/domain"
)

// SimilarityThreshold is the Jaccard word similarity above which two names
// count as the same recipe. Equal to the threshold is not a duplicate.
const SimilarityThreshold = 0.85

// NormalizeName lowercases, strips non-alphanumerics and collapses whitespace.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func wordSet(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(normalized) {
		set[w] = struct{}{}
	}
	return set
}

// Jaccard returns |A∩B| / |A∪B| over the word sets of two names.
func Jaccard(a, b string) float64 {
	return jaccardSets(wordSet(NormalizeName(a)), wordSet(NormalizeName(b)))
}

func jaccardSets(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Dedup keeps the first of any group of recipes whose normalized names are
// identical or more than SimilarityThreshold similar. Order is preserved.
func Dedup(recipes []domain.Recipe) []domain.Recipe {
	type kept struct {
		name  string
		words map[string]struct{}
	}

	out := make([]domain.Recipe, 0, len(recipes))
	var seen []kept
	for _, r := range recipes {
		name := NormalizeName(r.Name)
		words := wordSet(name)

		duplicate := false
		for _, k := range seen {
			if k.name == name || jaccardSets(k.words, words) > SimilarityThreshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		seen = append(seen, kept{name: name, words: words})
		out = append(out, r)
	}
	return out
}

// ExcludeKnown drops recipes whose id or normalized name is already present in
// known. Used to keep later phases from repeating earlier ones.
func ExcludeKnown(recipes, known []domain.Recipe) []domain.Recipe {
	ids := make(map[string]struct{}, len(known))
	names := make(map[string]struct{}, len(known))
	for _, k := range known {
		if k.ID != "" {
			ids[k.ID] = struct{}{}
		}
		names[NormalizeName(k.Name)] = struct{}{}
	}

	out := make([]domain.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if _, ok := ids[r.ID]; ok && r.ID != "" {
			continue
		}
		if _, ok := names[NormalizeName(r.Name)]; ok {
			continue
		}
		out = append(out, r)
	}
	return out
}
