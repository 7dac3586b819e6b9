package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Slugify converts a display name into a URL-safe slug.
// Accented characters are folded to ASCII ("Número" -> "numero") so that
// slugs stay stable regardless of how the operator typed the name.
func Slugify(name string) string {
	// Decompose and drop combining marks
	decomposed := norm.NFD.String(name)
	var b strings.Builder
	b.Grow(len(decomposed))

	lastDash := true // trim leading dashes
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark, skip
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	return strings.TrimRight(b.String(), "-")
}
