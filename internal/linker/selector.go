package linker

import (
	"sort"

	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/pkg/utils"
)

// Selector filters a suggestion set down to what is actually offered:
// at most MaxPerParagraph per paragraph, deduplicated, unlocated kept.
type Selector struct {
	params Params
}

// NewSelector creates a selector with the given parameters.
func NewSelector(params Params) *Selector {
	return &Selector{params: params}
}

// Select buckets suggestions by the paragraph of their start offset, keeps
// the top suggestions of each bucket by confidence, and appends all unlocated
// suggestions unchanged.
func (s *Selector) Select(suggestions []models.LinkSuggestion, content string) []models.LinkSuggestion {
	if len(suggestions) == 0 {
		return nil
	}
	paragraphs := paragraphSpans(content)

	buckets := make(map[int][]models.LinkSuggestion)
	var unlocated []models.LinkSuggestion
	for _, sug := range suggestions {
		if !sug.Located() {
			unlocated = append(unlocated, sug)
			continue
		}
		idx := paragraphIndex(paragraphs, sug.Start)
		buckets[idx] = append(buckets[idx], sug)
	}

	indices := make([]int, 0, len(buckets))
	for idx := range buckets {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var out []models.LinkSuggestion
	for _, idx := range indices {
		bucket := buckets[idx]
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].Confidence > bucket[j].Confidence
		})

		kept := 0
		seen := make(map[string]struct{})
		for _, sug := range bucket {
			if kept >= s.params.MaxPerParagraph {
				break
			}
			if s.params.FirstOccurrenceOnly {
				key := utils.Fold(sug.Term) + "\x00" + sug.TargetNote
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
			}
			out = append(out, sug)
			kept++
		}
	}
	return append(out, unlocated...)
}
