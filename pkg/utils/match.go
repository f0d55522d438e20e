package utils

import (
	"strings"
	"unicode"
)

// Span is a [Start, End) byte range in the searched string.
type Span struct {
	Start int
	End   int
}

// WholeWordPositions returns byte spans of case-insensitive whole-word
// occurrences of term in s. A match is whole-word when the runes adjacent to
// it are not letters or digits. Comparison is rune-wise with unicode.ToLower,
// so multi-byte text keeps correct offsets.
func WholeWordPositions(s, term string) []Span {
	if term == "" || s == "" {
		return nil
	}
	target := []rune(term)
	runes := []rune(s)
	offsets := make([]int, len(runes)+1)
	pos := 0
	for i, r := range runes {
		offsets[i] = pos
		pos += len(string(r))
	}
	offsets[len(runes)] = pos

	var spans []Span
	for i := 0; i+len(target) <= len(runes); i++ {
		if !runesEqualFold(runes[i:i+len(target)], target) {
			continue
		}
		if i > 0 && isWordRune(runes[i-1]) {
			continue
		}
		if end := i + len(target); end < len(runes) && isWordRune(runes[end]) {
			continue
		}
		spans = append(spans, Span{Start: offsets[i], End: offsets[i+len(target)]})
	}
	return spans
}

// ContainsWholeWord reports whether term occurs as a whole word in s (case-insensitive).
func ContainsWholeWord(s, term string) bool {
	return len(WholeWordPositions(s, term)) > 0
}

// ContainsFold reports whether term occurs in s ignoring case and diacritics.
func ContainsFold(s, term string) bool {
	return strings.Contains(Fold(s), Fold(term))
}

func runesEqualFold(a, b []rune) bool {
	for i := range a {
		if unicode.ToLower(a[i]) != unicode.ToLower(b[i]) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
