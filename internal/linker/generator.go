package linker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hyperjump/tsunagu/internal/concept"
	"github.com/hyperjump/tsunagu/internal/corpus"
	"github.com/hyperjump/tsunagu/internal/embedding"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/vector"
	"github.com/hyperjump/tsunagu/pkg/utils"
	"go.uber.org/zap"
)

const contextTruncate = 200

// Generator produces scored link suggestions for a source note against the
// rest of the corpus. With no embedder it degrades to literal title matching.
type Generator struct {
	extractor *concept.Extractor
	embedder  embedding.Embedder
	index     *corpus.Index
	titleIdx  *corpus.Index
	params    Params
	logger    *zap.Logger

	mu        sync.Mutex
	pairCache map[string]float64
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithTitleIndex enables the paragraph-level semantic pass against a
// title-context index.
func WithTitleIndex(idx *corpus.Index) GeneratorOption {
	return func(g *Generator) { g.titleIdx = idx }
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator creates a generator. embedder and index may be nil, in which
// case only the degraded literal pass runs.
func NewGenerator(extractor *concept.Extractor, embedder embedding.Embedder, index *corpus.Index, params Params, opts ...GeneratorOption) *Generator {
	g := &Generator{
		extractor: extractor,
		embedder:  embedder,
		index:     index,
		params:    params,
		pairCache: make(map[string]float64),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Params returns the generator's parameters.
func (g *Generator) Params() Params {
	return g.params
}

// Generate returns suggestions for note against the corpus, ready for
// selection. The corpus index must already be built; an empty or unbuilt
// index yields no suggestions.
func (g *Generator) Generate(ctx context.Context, note *models.Note, notes []*models.Note) []models.LinkSuggestion {
	if note == nil || len(notes) == 0 {
		return nil
	}
	if g.embedder == nil || g.index == nil || g.index.Size() == 0 {
		return g.generateLiteralOnly(note, notes)
	}

	matches, err := g.index.Search(ctx, corpus.CompositeText(note), g.params.NearestNotes+1)
	if err != nil {
		if g.logger != nil {
			g.logger.Warn("similarity search failed, degrading to literal pass", zap.Error(err))
		}
		return g.generateLiteralOnly(note, notes)
	}

	byTitle := make(map[string]*models.Note, len(notes))
	for _, n := range notes {
		byTitle[n.Title] = n
	}

	paragraphs := paragraphSpans(note.Content)
	sourceConcepts := g.extractor.Extract(note.Content, note.Title)

	var suggestions []models.LinkSuggestion
	suggested := make(map[string]struct{})
	semanticCount := 0

	for _, match := range matches {
		if match.Title == note.Title || match.Score < g.params.SimilarityThreshold {
			continue
		}
		target, ok := byTitle[match.Title]
		if !ok {
			continue
		}
		targetConcepts := g.extractor.Extract(target.Content, target.Title)
		shared := g.sharedConcepts(ctx, sourceConcepts, targetConcepts)

		for _, term := range shared {
			key := utils.Fold(term) + "\x00" + target.Title
			if _, dup := suggested[key]; dup {
				continue
			}

			if s, ok := g.literalSuggestion(term, note, target, paragraphs); ok {
				suggestions = append(suggestions, s)
				suggested[key] = struct{}{}
				continue
			}

			if !g.params.SemanticMode || semanticCount >= g.params.MaxSemanticPerNote {
				continue
			}
			s := g.semanticSuggestion(ctx, term, note, target, match.Score, paragraphs)
			suggestions = append(suggestions, s)
			suggested[key] = struct{}{}
			semanticCount++
		}
	}

	if g.params.SemanticMode && g.titleIdx != nil {
		suggestions = append(suggestions, g.paragraphPass(ctx, note, paragraphs, suggested, &semanticCount)...)
	}
	return suggestions
}

// paragraphPass queries each paragraph with at least three words against the
// title-context index, suggesting notes whose title-plus-keywords entry is
// close to the paragraph as a whole.
func (g *Generator) paragraphPass(ctx context.Context, note *models.Note, paragraphs []utils.Span, suggested map[string]struct{}, semanticCount *int) []models.LinkSuggestion {
	var suggestions []models.LinkSuggestion
	for _, para := range paragraphs {
		text := note.Content[para.Start:para.End]
		if len(strings.Fields(text)) < 3 {
			continue
		}
		matches, err := g.titleIdx.Search(ctx, text, g.params.NearestNotes)
		if err != nil {
			continue
		}
		for _, match := range matches {
			if *semanticCount >= g.params.MaxSemanticPerNote {
				return suggestions
			}
			if match.Title == note.Title || match.Score < g.params.SimilarityThreshold {
				continue
			}
			key := utils.Fold(match.Title) + "\x00" + match.Title
			if _, dup := suggested[key]; dup {
				continue
			}
			s := models.LinkSuggestion{
				Term:       match.Title,
				TargetNote: match.Title,
				Start:      models.UnlocatedPos,
				End:        models.UnlocatedPos,
				Confidence: match.Score,
				Context:    utils.Truncate(text, contextTruncate),
				Kind:       models.LinkSemantic,
			}
			if span, _, _, ok := nearestPhrase(ctx, g.embedder, match.Title, text, g.params.PhraseTolerance); ok {
				s.Start = para.Start + span.Start
				s.End = para.Start + span.End
			}
			suggestions = append(suggestions, s)
			suggested[key] = struct{}{}
			*semanticCount++
		}
	}
	return suggestions
}

// GenerateAll runs Generate for every note in the corpus.
func (g *Generator) GenerateAll(ctx context.Context, notes []*models.Note) map[string][]models.LinkSuggestion {
	out := make(map[string][]models.LinkSuggestion, len(notes))
	for _, note := range notes {
		out[note.Title] = g.Generate(ctx, note, notes)
	}
	return out
}

// generateLiteralOnly is the degraded pass used without an embedding backend:
// other note titles occurring as whole words in the source become literal
// suggestions.
func (g *Generator) generateLiteralOnly(note *models.Note, notes []*models.Note) []models.LinkSuggestion {
	paragraphs := paragraphSpans(note.Content)
	var suggestions []models.LinkSuggestion
	for _, target := range notes {
		if target.Title == note.Title {
			continue
		}
		if s, ok := g.literalSuggestion(target.Title, note, target, paragraphs); ok {
			suggestions = append(suggestions, s)
		}
	}
	return suggestions
}

// literalSuggestion anchors term at its first whole-word occurrence in the
// source, paragraph by paragraph. A shared term found in the source always
// earns the literal tier; relevance inside the destination is what made it a
// shared term in the first place.
func (g *Generator) literalSuggestion(term string, note, target *models.Note, paragraphs []utils.Span) (models.LinkSuggestion, bool) {
	if !utils.ContainsFold(note.Content, term) {
		return models.LinkSuggestion{}, false
	}
	for _, para := range paragraphs {
		text := note.Content[para.Start:para.End]
		spans := utils.WholeWordPositions(text, term)
		if len(spans) == 0 {
			continue
		}
		return models.LinkSuggestion{
			Term:       term,
			TargetNote: target.Title,
			Start:      para.Start + spans[0].Start,
			End:        para.Start + spans[0].End,
			Confidence: literalConfidence,
			Context:    utils.Truncate(text, contextTruncate),
			Kind:       models.LinkLiteral,
		}, true
	}
	return models.LinkSuggestion{}, false
}

// semanticSuggestion anchors term at the nearest phrase in the source text,
// or emits an unlocated suggestion when no phrase is close enough.
func (g *Generator) semanticSuggestion(ctx context.Context, term string, note, target *models.Note, noteScore float64, paragraphs []utils.Span) models.LinkSuggestion {
	if span, matched, _, ok := nearestPhrase(ctx, g.embedder, term, note.Content, g.params.PhraseTolerance); ok {
		context := matched
		if i := paragraphIndex(paragraphs, span.Start); i >= 0 {
			context = utils.Truncate(note.Content[paragraphs[i].Start:paragraphs[i].End], contextTruncate)
		}
		return models.LinkSuggestion{
			Term:       term,
			TargetNote: target.Title,
			Start:      span.Start,
			End:        span.End,
			Confidence: noteScore,
			Context:    context,
			Kind:       models.LinkSemantic,
		}
	}
	return models.LinkSuggestion{
		Term:       term,
		TargetNote: target.Title,
		Start:      models.UnlocatedPos,
		End:        models.UnlocatedPos,
		Confidence: noteScore,
		Context:    fmt.Sprintf("related concept: %s", term),
		Kind:       models.LinkSemantic,
	}
}

// sharedConcepts returns the source terms that match some target term either
// literally (after folding) or by term-embedding similarity.
func (g *Generator) sharedConcepts(ctx context.Context, source, target []models.Concept) []string {
	var shared []string
	for _, a := range source {
		for _, b := range target {
			if utils.Fold(a.Term) == utils.Fold(b.Term) {
				shared = append(shared, a.Term)
				break
			}
			if g.pairSimilarity(ctx, a.Term, b.Term) >= g.params.ConceptTolerance {
				shared = append(shared, a.Term)
				break
			}
		}
	}
	return shared
}

// pairSimilarity computes (and caches, by unordered pair) the embedding
// similarity of two terms. Returns 0 on embedder failure.
func (g *Generator) pairSimilarity(ctx context.Context, a, b string) float64 {
	if g.embedder == nil {
		return 0
	}
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	key := lo + "\x00" + hi

	g.mu.Lock()
	if score, ok := g.pairCache[key]; ok {
		g.mu.Unlock()
		return score
	}
	g.mu.Unlock()

	vecs, err := g.embedder.EmbedBatch(ctx, []string{a, b})
	if err != nil || len(vecs) != 2 {
		return 0
	}
	score := vector.InnerProduct(vecs[0], vecs[1])

	g.mu.Lock()
	g.pairCache[key] = score
	g.mu.Unlock()
	return score
}
