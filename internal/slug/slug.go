package slug

import (
	"regexp"
	"strings"
)

var reSlug = regexp.MustCompile(`^[a-z0-9_]{2,40}$`)

// IsSlug returns true if s matches ^[a-z0-9_]{2,40}$
func IsSlug(s string) bool {
	return reSlug.MatchString(s)
}

// Canonical lowercases s and replaces internal spaces with '_'.
// Non-ASCII runes (e.g. CJK tag type labels) pass through unchanged so a raw
// type with no dictionary entry still yields a stable identifier.
func Canonical(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	out := make([]rune, 0, len(s))
	prevUnderscore := false
	for _, r := range strings.ToLower(s) {
		if r == ' ' || r == '\t' || r == '_' {
			if prevUnderscore {
				continue
			}
			out = append(out, '_')
			prevUnderscore = true
			continue
		}
		out = append(out, r)
		prevUnderscore = false
	}
	return strings.Trim(string(out), "_")
}
