package grocery

import "strings"

// suffixRules maps common English plural endings to their singular form.
// Order matters: the first matching rule fires and the rest are skipped, so
// "berries" hits the "ies" rule before the bare-"s" fallback ever sees it.
var suffixRules = []struct {
	suffix      string
	replacement string
}{
	{"ies", "y"},   // berries -> berry
	{"ves", "f"},   // leaves -> leaf
	{"oes", "o"},   // potatoes -> potato
	{"ches", "ch"}, // batches -> batch
	{"ses", "s"},   // dresses -> dress
	{"s", ""},      // apples -> apple (last-resort fallback)
}

// Normalize reduces a free-text noun phrase to its canonical singular
// lowercase form, the matching key for product deduplication. The bare-"s"
// fallback also strips the trailing "s" from words that are not true plurals
// ("hummus" -> "hummu"); that is a known heuristic, kept as-is so stored
// names stay stable.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	normalized := strings.TrimSpace(strings.ToLower(raw))
	for _, rule := range suffixRules {
		if strings.HasSuffix(normalized, rule.suffix) {
			normalized = strings.TrimSuffix(normalized, rule.suffix) + rule.replacement
			break
		}
	}
	return normalized
}

// MatchesNormalized reports whether a stored name or unit matches a
// normalized candidate, tolerating a single trailing "s" on the stored value
// (a case-insensitive "^candidate s?$"): a stored "tomato" and "tomatos" both
// match candidate "tomato", while a stored "tomatoes" does not.
func MatchesNormalized(stored, normalized string) bool {
	lower := strings.ToLower(stored)
	return lower == normalized || lower == normalized+"s"
}
