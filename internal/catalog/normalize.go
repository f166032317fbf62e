package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Šimpanz" -> "Simpanz").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeID prepares an entry id for pattern matching: no diacritics,
// lowercase, dashes and spaces folded to underscores.
func NormalizeID(id string) string {
	id = RemoveDiacritics(id)
	id = strings.ToLower(id)
	return strings.NewReplacer("-", "_", " ", "_").Replace(id)
}
