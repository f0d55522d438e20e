package linker

import (
	"context"
	"regexp"

	"github.com/hyperjump/tsunagu/internal/embedding"
	"github.com/hyperjump/tsunagu/internal/vector"
	"github.com/hyperjump/tsunagu/pkg/utils"
)

const maxPhraseWords = 3

var (
	wordSpanRe  = regexp.MustCompile(`[\p{L}\p{N}_-]+`)
	paragraphRe = regexp.MustCompile(`\n[ \t]*\n+`)
)

// phrase is a candidate span of 1..3 consecutive words.
type phrase struct {
	text string
	span utils.Span
}

// candidatePhrases enumerates word n-grams of text with their byte spans.
// Duplicate texts keep only the first span so each phrase is embedded once.
func candidatePhrases(text string) []phrase {
	words := wordSpanRe.FindAllStringIndex(text, -1)
	seen := make(map[string]struct{})
	var out []phrase
	for i := range words {
		for n := 1; n <= maxPhraseWords && i+n <= len(words); n++ {
			start, end := words[i][0], words[i+n-1][1]
			p := text[start:end]
			key := utils.Fold(p)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, phrase{text: p, span: utils.Span{Start: start, End: end}})
		}
	}
	return out
}

// nearestPhrase finds the span of text whose embedding is closest to term,
// if the similarity reaches tolerance. Returns ok=false when no phrase
// qualifies or the embedder fails.
func nearestPhrase(ctx context.Context, embedder embedding.Embedder, term, text string, tolerance float64) (utils.Span, string, float64, bool) {
	candidates := candidatePhrases(text)
	if len(candidates) == 0 {
		return utils.Span{}, "", 0, false
	}
	termVec, err := embedder.Embed(ctx, term)
	if err != nil {
		return utils.Span{}, "", 0, false
	}
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.text
	}
	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return utils.Span{}, "", 0, false
	}
	bestIdx := -1
	bestScore := tolerance
	for i, vec := range vectors {
		score := vector.InnerProduct(termVec, vec)
		if score >= bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return utils.Span{}, "", 0, false
	}
	return candidates[bestIdx].span, candidates[bestIdx].text, bestScore, true
}

// paragraphSpans splits content into paragraphs delimited by blank lines and
// returns their byte spans in order.
func paragraphSpans(content string) []utils.Span {
	if content == "" {
		return nil
	}
	separators := paragraphRe.FindAllStringIndex(content, -1)
	var spans []utils.Span
	start := 0
	for _, sep := range separators {
		if sep[0] > start {
			spans = append(spans, utils.Span{Start: start, End: sep[0]})
		}
		start = sep[1]
	}
	if start < len(content) {
		spans = append(spans, utils.Span{Start: start, End: len(content)})
	}
	return spans
}

// paragraphIndex returns the index of the paragraph containing byte offset
// pos, or -1 when pos falls outside every paragraph.
func paragraphIndex(spans []utils.Span, pos int) int {
	for i, s := range spans {
		if pos >= s.Start && pos < s.End {
			return i
		}
	}
	return -1
}
