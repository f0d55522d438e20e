// Package rewrite applies accepted link suggestions to note content.
package rewrite

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/pkg/utils"
)

var markupRe = regexp.MustCompile(`\[\[[^\]]*\]\]`)

// Apply rewrites content with the given suggestions and returns the result.
// Suggestions are processed in descending confidence order; each (term,
// target) pair contributes at most one edit, terms already wrapped in link
// markup are skipped, and unlocated suggestions never touch the text. The
// matched casing is preserved: "Python" becomes "[[Python|Python]]" even when
// the suggestion term is lowercase. Applying the same set twice is a no-op.
func Apply(content string, suggestions []models.LinkSuggestion) string {
	if len(suggestions) == 0 {
		return content
	}
	ordered := make([]models.LinkSuggestion, len(suggestions))
	copy(ordered, suggestions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Confidence > ordered[j].Confidence
	})

	applied := make(map[string]struct{})
	for _, s := range ordered {
		if !s.Located() {
			continue
		}
		key := utils.Fold(s.Term) + "\x00" + s.TargetNote
		if _, done := applied[key]; done {
			continue
		}
		if alreadyLinked(content, s.Term) {
			applied[key] = struct{}{}
			continue
		}
		span, ok := firstPlainOccurrence(content, s.Term)
		if !ok {
			continue
		}
		matched := content[span.Start:span.End]
		markup := linkMarkup(s.TargetNote, matched, s.Kind)
		content = content[:span.Start] + markup + content[span.End:]
		applied[key] = struct{}{}
	}
	return content
}

// linkMarkup renders the wiki-style markup for a link of the given kind.
func linkMarkup(target, matched string, kind models.LinkKind) string {
	if kind == models.LinkSemantic {
		return fmt.Sprintf("[[sem:%s|%s]]", target, matched)
	}
	return fmt.Sprintf("[[%s|%s]]", target, matched)
}

// alreadyLinked reports whether some occurrence of term is wrapped in link
// markup anywhere in content.
func alreadyLinked(content, term string) bool {
	for _, region := range markupRe.FindAllString(content, -1) {
		if utils.ContainsWholeWord(region, term) {
			return true
		}
	}
	return false
}

// firstPlainOccurrence returns the first whole-word span of term in content
// that does not fall inside existing link markup.
func firstPlainOccurrence(content, term string) (utils.Span, bool) {
	regions := markupRe.FindAllStringIndex(content, -1)
	for _, span := range utils.WholeWordPositions(content, term) {
		inside := false
		for _, r := range regions {
			if span.Start >= r[0] && span.End <= r[1] {
				inside = true
				break
			}
		}
		if !inside {
			return span, true
		}
	}
	return utils.Span{}, false
}
