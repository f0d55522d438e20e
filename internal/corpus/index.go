// Package corpus builds and queries embedding indices over a note corpus.
package corpus

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/tsunagu/internal/concept"
	"github.com/hyperjump/tsunagu/internal/embedding"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/vector"
	"github.com/hyperjump/tsunagu/pkg/utils"
	"go.uber.org/zap"
)

const titleContextExcerpt = 500

// Match is a similar note with its cosine similarity score.
type Match struct {
	Title string
	Score float64
}

// TextFunc renders the text that represents a note in the index.
type TextFunc func(note *models.Note) string

// CompositeText indexes a note as its title followed by its full content.
// This is the representation used for note-to-note similarity.
func CompositeText(note *models.Note) string {
	return note.Title + "\n" + note.Content
}

// TitleContextText indexes a note as its title, its top concept terms, and a
// content excerpt. This compact representation is used when matching a single
// paragraph against the corpus, where full contents would drown the signal.
func TitleContextText(extractor *concept.Extractor) TextFunc {
	return func(note *models.Note) string {
		var parts []string
		parts = append(parts, note.Title)
		concepts := extractor.Extract(note.Content, note.Title)
		if len(concepts) > 0 {
			terms := make([]string, 0, len(concepts))
			for _, c := range concepts {
				terms = append(terms, c.Term)
			}
			parts = append(parts, strings.Join(terms, ", "))
		}
		parts = append(parts, utils.Truncate(note.Content, titleContextExcerpt))
		return strings.Join(parts, ". ")
	}
}

// Index is an embedding index over a note corpus, keyed by note title. It
// remembers the corpus content hash so a persisted copy can be validated
// before reuse.
type Index struct {
	embedder embedding.Embedder
	textFn   TextFunc
	logger   *zap.Logger
	index    *vector.MemoryIndex
	hash     string
}

// NewIndex creates an empty index that renders notes with textFn.
func NewIndex(embedder embedding.Embedder, textFn TextFunc, logger *zap.Logger) *Index {
	return &Index{
		embedder: embedder,
		textFn:   textFn,
		logger:   logger,
	}
}

// Build embeds every note and replaces the index contents. The previous
// contents are kept on error.
func (x *Index) Build(ctx context.Context, notes []*models.Note) error {
	if x.embedder == nil {
		return fmt.Errorf("no embedder configured")
	}
	if len(notes) == 0 {
		return fmt.Errorf("empty corpus")
	}
	texts := make([]string, len(notes))
	titles := make([]string, len(notes))
	for i, note := range notes {
		texts[i] = x.textFn(note)
		titles[i] = note.Title
	}
	vectors, err := x.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed corpus: %w", err)
	}
	fresh, err := vector.NewMemoryIndex(x.embedder.Dimensions())
	if err != nil {
		return err
	}
	if err := fresh.Add(ctx, titles, vectors); err != nil {
		return fmt.Errorf("failed to index corpus vectors: %w", err)
	}
	x.index = fresh
	x.hash = models.CorpusHash(notes)
	if x.logger != nil {
		x.logger.Debug("corpus index built", zap.Int("notes", len(notes)))
	}
	return nil
}

// Search embeds text and returns the k most similar notes, best first.
func (x *Index) Search(ctx context.Context, text string, k int) ([]Match, error) {
	if x.index == nil {
		return nil, fmt.Errorf("index not built")
	}
	query, err := x.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	hits, err := x.index.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	matches := make([]Match, len(hits))
	for i, hit := range hits {
		matches[i] = Match{Title: hit.ID, Score: hit.Score}
	}
	return matches, nil
}

// Size returns the number of indexed notes.
func (x *Index) Size() int {
	if x.index == nil {
		return 0
	}
	return x.index.Size()
}

// Hash returns the content hash of the corpus the index was built from.
func (x *Index) Hash() string {
	return x.hash
}
