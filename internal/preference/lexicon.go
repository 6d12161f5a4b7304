package preference

import "regexp"

// allergenCategory expands a detected allergy category into the ingredient
// names it covers.
type allergenCategory struct {
	name     string
	trigger  *regexp.Regexp
	synonyms []string
}

// allergenLexicon is matched against the lowercased allergy text. Triggers are
// whole-word so "shellfish" does not pull in the fish family and "peppercorn"
// does not pull in peppers.
var allergenLexicon = []allergenCategory{
	{
		name:     "nuts",
		trigger:  regexp.MustCompile(`\b(?:peanuts?|nuts?|tree nuts?)\b`),
		synonyms: []string{"peanut", "nut", "almond", "walnut", "pecan", "cashew", "pistachio", "hazelnut", "macadamia"},
	},
	{
		name:     "shellfish",
		trigger:  regexp.MustCompile(`\b(?:shellfish|shrimp|crustaceans?)\b`),
		synonyms: []string{"shellfish", "shrimp", "crab", "lobster", "prawn", "scallop", "clam", "mussel", "oyster", "crawfish"},
	},
	{
		name:     "soy",
		trigger:  regexp.MustCompile(`\b(?:soy|soya|soybeans?)\b`),
		synonyms: []string{"soy", "tofu", "edamame", "tempeh", "miso"},
	},
	{
		name:     "dairy",
		trigger:  regexp.MustCompile(`\b(?:dairy|lactose|milk)\b`),
		synonyms: []string{"dairy", "milk", "cheese", "butter", "cream", "yogurt", "whey", "lactose"},
	},
	{
		name:     "egg",
		trigger:  regexp.MustCompile(`\beggs?\b`),
		synonyms: []string{"egg", "mayonnaise", "meringue"},
	},
	{
		name:     "gluten",
		trigger:  regexp.MustCompile(`\b(?:wheat|gluten)\b`),
		synonyms: []string{"wheat", "gluten", "flour", "bread", "pasta", "couscous", "barley", "rye"},
	},
	{
		name:     "fish",
		trigger:  regexp.MustCompile(`\bfish\b`),
		synonyms: []string{"fish", "salmon", "tuna", "cod", "tilapia", "anchovy", "sardine", "halibut", "trout"},
	},
	{
		name:     "pepper",
		trigger:  regexp.MustCompile(`\b(?:peppers?|bell peppers?)\b`),
		synonyms: []string{"pepper", "peppers", "jalapeno", "chili", "cayenne", "paprika"},
	},
}

// expandAllergens returns every synonym whose category trigger appears in text.
func expandAllergens(text string) []string {
	var out []string
	for _, cat := range allergenLexicon {
		if cat.trigger.MatchString(text) {
			out = append(out, cat.synonyms...)
		}
	}
	return out
}
