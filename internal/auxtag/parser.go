package auxtag

// Package auxtag parses bracket-delimited auxiliary tags out of free-text
// journal fields. A tag looks like 【客商：中国电信广州分公司】; a field may carry
// any number of tags back to back, and a tag value may itself contain balanced
// 【】 pairs (reference numbers often do). A regular expression cannot match the
// nested form, so parsing is a single left-to-right scan with bracket-depth
// counting, in the style of a hand written lexer.

import (
	"fmt"
	"strings"

	"github.com/tinoosan/paytrace/internal/dictionary"
	"github.com/tinoosan/paytrace/internal/slug"
)

const (
	openBracket  = '【'
	closeBracket = '】'
	fullColon    = '：'

	// DefaultMaxValueLength bounds a single tag value, in runes.
	DefaultMaxValueLength = 10000
)

// Tag is one parsed auxiliary item. Immutable once produced.
type Tag struct {
	RawType       string `json:"raw_type"`
	CanonicalType string `json:"canonical_type"`
	Value         string `json:"value"`
	Truncated     bool   `json:"truncated,omitempty"`
	// Warning carries a human-readable note when the value was truncated.
	// Informational only; it never blocks downstream processing.
	Warning string `json:"warning,omitempty"`
}

// Display returns the preferred label for the tag's canonical type.
func (t Tag) Display() string { return dictionary.Display(t.CanonicalType) }

// Parser tokenizes auxiliary text into tags and normalizes type labels.
// The zero value is not usable; construct with NewParser.
type Parser struct {
	maxValueLen int
	overrides   map[string]string
}

// NewParser returns a parser with the given value length limit.
// A non-positive limit selects DefaultMaxValueLength.
func NewParser(maxValueLen int) *Parser {
	if maxValueLen <= 0 {
		maxValueLen = DefaultMaxValueLength
	}
	return &Parser{maxValueLen: maxValueLen, overrides: map[string]string{}}
}

// AddAlias registers an exact-match alias on top of the built-in dictionary.
// The canonical id must be a valid slug.
func (p *Parser) AddAlias(alias, canonical string) error {
	if strings.TrimSpace(alias) == "" || !slug.IsSlug(canonical) {
		return fmt.Errorf("invalid alias mapping %q -> %q", alias, canonical)
	}
	p.overrides[alias] = canonical
	return nil
}

// Canonical normalizes a raw type label: deployment overrides first, then the
// built-in dictionary (exact, then fuzzy), then a slugged fallback.
func (p *Parser) Canonical(rawType string) string {
	if canonical, ok := p.overrides[rawType]; ok {
		return canonical
	}
	if canonical, ok := dictionary.Lookup(rawType); ok {
		return canonical
	}
	return slug.Canonical(rawType)
}

// Parse extracts all tags from text. It never fails: empty input yields an
// empty slice, and malformed trailing text (missing colon, unclosed bracket)
// drops everything from the malformation onward while keeping prior tags.
func (p *Parser) Parse(text string) []Tag {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	rs := []rune(text)
	n := len(rs)
	tags := make([]Tag, 0, 2)

	i := 0
	for i < n {
		if rs[i] != openBracket {
			i++
			continue
		}
		start := i
		i++

		// First colon after the opening bracket names the type.
		colon := -1
		for i < n && colon == -1 {
			if rs[i] == fullColon {
				colon = i
			}
			i++
		}
		if colon == -1 {
			break
		}
		rawType := strings.TrimSpace(string(rs[start+1 : colon]))

		// Everything up to the matching close bracket is the value;
		// nested opens raise the depth so embedded 【】 pairs survive.
		depth := 1
		for i < n && depth > 0 {
			switch rs[i] {
			case openBracket:
				depth++
			case closeBracket:
				depth--
			}
			i++
		}
		if depth != 0 {
			break
		}

		value := strings.TrimSpace(string(rs[colon+1 : i-1]))
		canonical := p.Canonical(rawType)
		value, truncated, warning := p.truncate(value, canonical)

		tags = append(tags, Tag{
			RawType:       rawType,
			CanonicalType: canonical,
			Value:         value,
			Truncated:     truncated,
			Warning:       warning,
		})
	}
	return tags
}

func isDelimiter(r rune) bool {
	return r == openBracket || r == closeBracket || r == fullColon || r == ':'
}

// truncate enforces the value length limit. The cut never ends on a delimiter
// rune: the boundary walks backward to the nearest non-delimiter, except when
// the whole prefix is delimiters, in which case the raw boundary stands.
func (p *Parser) truncate(value, canonical string) (string, bool, string) {
	rs := []rune(value)
	if len(rs) <= p.maxValueLen {
		return value, false, ""
	}
	cut := rs[:p.maxValueLen]
	if isDelimiter(cut[len(cut)-1]) {
		last := len(cut) - 2
		for last >= 0 && isDelimiter(cut[last]) {
			last--
		}
		if last >= 0 {
			cut = cut[:last+1]
		}
	}
	out := string(cut)
	warning := fmt.Sprintf("auxiliary value truncated: type=%s original_len=%d truncated_len=%d",
		canonical, len(rs), len(cut))
	return out, true, warning
}

// ValidateFormat reports bracket-level diagnostics for logging. It never
// affects Parse output.
func (p *Parser) ValidateFormat(text string) (bool, []string) {
	var problems []string
	text = strings.TrimSpace(text)
	if text == "" {
		return true, nil
	}

	opens := strings.Count(text, string(openBracket))
	closes := strings.Count(text, string(closeBracket))
	if opens > 0 && closes == 0 {
		problems = append(problems, "missing close bracket 】")
	}
	if closes > 0 && opens == 0 {
		problems = append(problems, "missing open bracket 【")
	}
	if opens != closes {
		problems = append(problems, fmt.Sprintf("unbalanced brackets: %d 【 vs %d 】", opens, closes))
	}

	parsed := len(p.Parse(text))
	expected := opens
	if closes < expected {
		expected = closes
	}
	if parsed < expected {
		problems = append(problems, fmt.Sprintf("parsed %d tags, expected %d", parsed, expected))
	}
	return len(problems) == 0, problems
}
