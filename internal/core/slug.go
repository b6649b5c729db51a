package core

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases s, strips accents and joins the remaining words
// with hyphens: "Câmbio em Alta!" becomes "cambio-em-alta".
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = slugSeparators.ReplaceAllString(strings.ToLower(folded), "-")
	return strings.Trim(folded, "-")
}
