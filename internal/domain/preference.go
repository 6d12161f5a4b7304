package domain

// Preferences is the result of classifying a customer's free-text allergies and
// preferences. Tokens are lowercase and deduplicated, in first-seen order.
type Preferences struct {
	// Avoid tokens have zero tolerance.
	Avoid []string `json:"avoid"`
	// Reduce tokens are capped at roughly ten percent of a batch.
	Reduce []string `json:"reduce"`
	// Prefer tokens are informational only.
	Prefer []string `json:"prefer"`
}

// IsEmpty reports whether no tier carries any token.
func (p Preferences) IsEmpty() bool {
	return len(p.Avoid) == 0 && len(p.Reduce) == 0 && len(p.Prefer) == 0
}
