package filter

import (
	"regexp"
	"strings"
)

const (
	meatWords  = `chicken|beef|pork|lamb|turkey|bacon|ham|sausage|steak|veal|duck|venison|prosciutto|chorizo|meatballs?`
	seafood    = `fish|salmon|tuna|cod|shrimp|prawns?|crab|lobster|scallops?|anchov(?:y|ies)|sardines?|clams?|mussels?`
	dairyWords = `cheese|cheesy|butter|buttery|cream|creamy|milk|yogurt|alfredo|parmesan|mozzarella|ricotta|feta`
	wheatWords = `pasta|spaghetti|linguine|lasagna|bread|breaded|noodles?|flour|wheat|couscous|barley|pizza|biscuits?|pancakes?|waffles?|tortillas?`
	carbWords  = `pasta|spaghetti|rice|risotto|bread|potato(?:es)?|noodles?|pizza|sandwich|burritos?|pancakes?|waffles?`
)

// dietaryRules maps a dietary-needs tag to the name keywords it disallows.
// Only the recipe name is checked against these.
var dietaryRules = map[string]*regexp.Regexp{
	"vegetarian":  regexp.MustCompile(`\b(?:` + meatWords + `|` + seafood + `)\b`),
	"pescatarian": regexp.MustCompile(`\b(?:` + meatWords + `)\b`),
	"vegan":       regexp.MustCompile(`\b(?:` + meatWords + `|` + seafood + `|` + dairyWords + `|eggs?|omelet(?:te)?|honey)\b`),
	"gluten-free": regexp.MustCompile(`\b(?:` + wheatWords + `)\b`),
	"dairy-free":  regexp.MustCompile(`\b(?:` + dairyWords + `)\b`),
	"low-carb":    regexp.MustCompile(`\b(?:` + carbWords + `)\b`),
}

// normalizeTag folds "Gluten Free", "gluten_free" and "gluten-free" together.
func normalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	return strings.NewReplacer(" ", "-", "_", "-").Replace(tag)
}

// violatesDietaryNeeds reports whether the name hits a disallowed keyword for
// any known tag. Unknown tags are ignored.
func violatesDietaryNeeds(name string, tags []string) bool {
	name = strings.ToLower(name)
	for _, tag := range tags {
		if re, ok := dietaryRules[normalizeTag(tag)]; ok && re.MatchString(name) {
			return true
		}
	}
	return false
}
