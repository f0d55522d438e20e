// Package keyword provides a Bleve full-text index over the note corpus.
package keyword

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/hyperjump/tsunagu/internal/models"
)

// Hit is a single keyword search result.
type Hit struct {
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// noteDoc is the indexed representation of a note.
type noteDoc struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NotesIndex is an in-memory Bleve index keyed by note title. It backs the
// corpus keyword search.
type NotesIndex struct {
	mu    sync.RWMutex
	index bleve.Index
}

// NewNotesIndex creates an empty in-memory index.
// Standard analyzer (lowercase + tokenize, no stemming) so "bayes" matches the
// exact word; the English analyzer stems "Bayesian" -> "bayesi" and they miss.
func NewNotesIndex() (*NotesIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create notes index: %w", err)
	}
	return &NotesIndex{index: index}, nil
}

// Add indexes a note under its title.
func (n *NotesIndex) Add(ctx context.Context, note *models.Note) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.index.Index(note.Title, noteDoc{Title: note.Title, Content: note.Content})
}

// Rebuild replaces the index contents with the given notes in one batch.
func (n *NotesIndex) Rebuild(ctx context.Context, notes []*models.Note) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	im.DefaultMapping = docMapping

	fresh, err := bleve.NewMemOnly(im)
	if err != nil {
		return fmt.Errorf("failed to rebuild notes index: %w", err)
	}
	batch := fresh.NewBatch()
	for _, note := range notes {
		if err := batch.Index(note.Title, noteDoc{Title: note.Title, Content: note.Content}); err != nil {
			return fmt.Errorf("failed to batch note %q: %w", note.Title, err)
		}
	}
	if err := fresh.Batch(batch); err != nil {
		return fmt.Errorf("failed to apply index batch: %w", err)
	}
	old := n.index
	n.index = fresh
	if old != nil {
		old.Close()
	}
	return nil
}

// Search runs a match query over titles and contents, up to limit hits.
func (n *NotesIndex) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit
	results, err := n.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("notes search failed: %w", err)
	}
	hits := make([]Hit, len(results.Hits))
	for i, hit := range results.Hits {
		hits[i] = Hit{Title: hit.ID, Score: hit.Score}
	}
	return hits, nil
}

// DocCount returns the number of indexed notes.
func (n *NotesIndex) DocCount() (uint64, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.index.DocCount()
}

// Close releases index resources.
func (n *NotesIndex) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.index.Close()
}
