package converter

import (
	"strings"

	"golang.org/x/text/width"
)

// Slugify turns a workbook header into a series code: full-width characters
// folded to their ASCII form, lowered, non-alphanumeric runs collapsed to a
// single dash. PAJ headers mix full-width digits and parentheses with plain
// ASCII, so the folding matters.
func Slugify(name string) string {
	folded := width.Fold.String(name)
	folded = strings.ToLower(folded)

	var sb strings.Builder
	lastDash := true // no leading dash
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(sb.String(), "-")
}
