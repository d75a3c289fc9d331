package sanitizer

import "strings"

// TrimAndNormalize trims s and collapses every run of whitespace to one space.
func TrimAndNormalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeName is used for user, passenger and operator names.
func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}
