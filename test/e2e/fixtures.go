// Package e2e provides end-to-end tests against the full HTTP API.
package e2e

import (
	"fmt"
)

// NoteFixture is one note file in the synthetic corpus.
type NoteFixture struct {
	Filename string
	Content  string
}

// Corpus is a synthetic notes directory with known cross-references.
type Corpus struct {
	Notes      []NoteFixture
	TotalNotes int
}

// BuildCorpus returns a deterministic corpus of notes. Every note shares the
// term "protocol" so literal linking has something to anchor to, and notes
// come in identical-content pairs so semantic similarity is exact under any
// embedder that maps equal text to equal vectors.
func BuildCorpus(pairs int) *Corpus {
	c := &Corpus{}
	for i := 0; i < pairs; i++ {
		content := fmt.Sprintf(
			"The transfer protocol number %d defines the handshake.\n\nEvery server implements the transfer protocol before routing.", i)
		c.Notes = append(c.Notes,
			NoteFixture{Filename: fmt.Sprintf("note-%da.md", i), Content: content},
			NoteFixture{Filename: fmt.Sprintf("note-%db.md", i), Content: content},
		)
	}
	c.TotalNotes = len(c.Notes)
	return c
}
