// Package slug turns listing titles into URL-safe ASCII slugs.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var multiHyphen = regexp.MustCompile(`-{2,}`)

// From lowercases s, strips accents, and replaces everything that isn't
// a letter or digit with a single hyphen. "Lego Technic Crane" -> "lego-technic-crane".
func From(s string) string {
	// Decompose accented characters, then drop the combining marks.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}

	out = strings.ToLower(out)
	out = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return '-'
	}, out)

	out = multiHyphen.ReplaceAllString(out, "-")
	return strings.Trim(out, "-")
}
