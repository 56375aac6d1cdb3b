package dbo

import (
	"strings"
	"unicode"
)

// columnName converts an attribute name to its snake_case column name:
// Name -> name, CreatedAt -> created_at, ADateTime -> a_date_time,
// HTTPStatus -> http_status, Line2 -> line_2.
func columnName(attr string) string {
	if attr == "" {
		return ""
	}

	runes := []rune(attr)
	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	lastUnderscore := false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case unicode.IsUpper(r):
			if b.Len() > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if (unicode.IsLower(prev) || unicode.IsDigit(prev) || nextLower) && !lastUnderscore {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false
		case unicode.IsLower(r):
			b.WriteRune(r)
			lastUnderscore = false
		case unicode.IsDigit(r):
			if b.Len() > 0 {
				prev := runes[i-1]
				if !unicode.IsDigit(prev) && !lastUnderscore {
					b.WriteByte('_')
				}
			}
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}
