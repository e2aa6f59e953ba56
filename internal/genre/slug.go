// Package genre normalizes scraped genre labels into stable grouping keys.
package genre

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldAccents maps "lité" to "lite": decompose, drop combining marks.
var foldAccents = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// Slugify converts a genre label or scope to a lowercase hyphenated slug:
// "Action & Adventure" becomes "action-adventure" and "role-playing/game"
// becomes "role-playing-game". Letters outside ASCII that survive accent
// folding are dropped.
func Slugify(s string) string {
	folded, _, err := transform.String(foldAccents, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	pending := false
	for _, r := range folded {
		switch {
		case r > unicode.MaxASCII:
			continue
		case 'a' <= r && r <= 'z', '0' <= r && r <= '9':
		case 'A' <= r && r <= 'Z':
			r = unicode.ToLower(r)
		default:
			pending = b.Len() > 0
			continue
		}
		if pending {
			b.WriteByte('-')
			pending = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
