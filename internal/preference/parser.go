// Package preference turns customer free text into classified ingredient sets.
package preference

import (
	"regexp"
	"strings"

	"github.com/timmy/mealplan/internal/domain"
)

// Classifier tokenizes free text into {avoid, reduce, prefer} ingredient sets.
type Classifier interface {
	Classify(allergies, preferences string) domain.Preferences
}

// LexiconClassifier is the regex and allergen-lexicon Classifier.
type LexiconClassifier struct{}

// NewLexiconClassifier creates a LexiconClassifier.
func NewLexiconClassifier() *LexiconClassifier {
	return &LexiconClassifier{}
}

// Classify merges the allergy avoid set with the preference-text tiers.
func (c *LexiconClassifier) Classify(allergies, preferences string) domain.Preferences {
	fromPrefs := ParsePreferences(preferences)
	return domain.Preferences{
		Avoid:  dedupe(append(ParseAllergies(allergies), fromPrefs.Avoid...)),
		Reduce: fromPrefs.Reduce,
		Prefer: fromPrefs.Prefer,
	}
}

var (
	allergyConnectors = regexp.MustCompile(`\b(?:don't like|can't have|dislike|avoid|hate|and|or|no)\b`)
	allergySplit      = regexp.MustCompile(`[,;|\n]+`)
)

// noAllergies holds answers that mean the customer has nothing to avoid.
var noAllergies = map[string]struct{}{
	"none":               {},
	"none known":         {},
	"nothing":            {},
	"n/a":                {},
	"na":                 {},
	"nil":                {},
	"no":                 {},
	"no allergies":       {},
	"no known allergies": {},
}

// ParseAllergies returns hard-avoid tokens for an allergy string: every
// delimited token plus the lexicon expansion of any allergen category named.
func ParseAllergies(text string) []string {
	text = normalizeText(text)
	if _, ok := noAllergies[strings.Trim(text, " \t.!?\"'")]; ok || text == "" {
		return nil
	}

	var tokens []string
	replaced := allergyConnectors.ReplaceAllString(text, ",")
	for _, part := range allergySplit.Split(replaced, -1) {
		part = strings.Trim(part, " \t.!?\"'")
		if _, skip := noAllergies[part]; part != "" && !skip {
			tokens = append(tokens, part)
		}
	}
	tokens = append(tokens, expandAllergens(text)...)
	return dedupe(tokens)
}

// Each family captures the phrase after a trigger up to a comma, semicolon,
// period, newline, a joining "and"/"or", or the end of input.
const phraseTail = `\s+([^,;.\n]+?)(?:\s+(?:and|or)\b|[,;.\n]|$)`

var (
	avoidPattern  = regexp.MustCompile(`\b(?:no|avoid|don't want|don't like|do not want|do not like|hate|dislike)` + phraseTail)
	reducePattern = regexp.MustCompile(`\b(?:less|fewer|reduce|limit)` + phraseTail)
	preferPattern = regexp.MustCompile(`\b(?:more|prefer|like|love|want)` + phraseTail)
)

var (
	leadingFiller  = []string{"some ", "the ", "any ", "more ", "less ", "of "}
	trailingFiller = []string{" please", " too", " also", " and", " or"}
)

// ParsePreferences scans preference text with the avoid, reduce and prefer
// families in that order. Spans consumed by one family are blanked before the
// next runs so "don't want X" never also counts as "want X".
func ParsePreferences(text string) domain.Preferences {
	text = normalizeText(text)
	if text == "" {
		return domain.Preferences{}
	}

	var p domain.Preferences
	p.Avoid, text = extract(avoidPattern, text)
	p.Reduce, text = extract(reducePattern, text)
	p.Prefer, _ = extract(preferPattern, text)
	return p
}

func extract(re *regexp.Regexp, text string) ([]string, string) {
	var phrases []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if phrase := cleanPhrase(m[1]); len(phrase) > 2 {
			phrases = append(phrases, phrase)
		}
	}
	return dedupe(phrases), re.ReplaceAllString(text, ",")
}

func cleanPhrase(s string) string {
	s = strings.TrimSpace(s)
	for changed := true; changed; {
		changed = false
		for _, f := range leadingFiller {
			if strings.HasPrefix(s, f) {
				s = strings.TrimSpace(strings.TrimPrefix(s, f))
				changed = true
			}
		}
		for _, f := range trailingFiller {
			if strings.HasSuffix(s, f) {
				s = strings.TrimSpace(strings.TrimSuffix(s, f))
				changed = true
			}
		}
	}
	return strings.Trim(s, " \t!?\"'")
}

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "’", "'")
	return strings.ToLower(strings.TrimSpace(s))
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
