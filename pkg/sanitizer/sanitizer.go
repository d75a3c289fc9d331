package sanitizer

import (
	"strings"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func lower(s string) string {
	return strings.ToLower(s)
}

func removeSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// NormalizePlace trims and collapses whitespace in a route endpoint. Case is
// preserved for display; matching is case-insensitive.
func NormalizePlace(place string) string {
	return TrimAndNormalize(place)
}

func NormalizeEmail(email string) string {
	return Pipeline{strings.TrimSpace, lower}.Apply(email)
}

// NormalizeUPI folds case: UPI addresses are case-insensitive.
func NormalizeUPI(upi string) string {
	return Pipeline{strings.TrimSpace, removeSpaces, lower}.Apply(upi)
}

func NormalizeGender(gender string) string {
	return Pipeline{TrimAndNormalize, lower}.Apply(gender)
}
