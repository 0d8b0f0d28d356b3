// Package geo normalizes free-text place names for matching against legacy
// city and region columns that may or may not carry accents.
package geo

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips combining marks ("Bogotá" -> "bogota").
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// Variants returns the distinct forms a stored name may take: the trimmed,
// lower-cased input and its folded form. Empty input yields nil.
func Variants(name string) []string {
	accented := strings.ToLower(strings.TrimSpace(name))
	if accented == "" {
		return nil
	}
	if folded := Fold(accented); folded != accented {
		return []string{accented, folded}
	}
	return []string{accented}
}

// Contains reports whether haystack contains any variant, compared after folding.
func Contains(haystack string, variants []string) bool {
	h := Fold(haystack)
	for _, v := range variants {
		if v != "" && strings.Contains(h, Fold(v)) {
			return true
		}
	}
	return false
}
