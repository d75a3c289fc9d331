package sanitizer

import "strings"

// NormalizePlaces cleans a list of route endpoints for autocomplete. Entries
// that differ only in case or spacing collapse to the first one seen; blanks
// are dropped. The result is never nil.
func NormalizePlaces(places []string) []string {
	seen := make(map[string]struct{}, len(places))
	result := make([]string, 0, len(places))

	for _, place := range places {
		normalized := NormalizePlace(place)
		if normalized == "" {
			continue
		}
		key := strings.ToLower(normalized)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, normalized)
	}
	return result
}
