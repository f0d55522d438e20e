// Package models defines core data structures for notes, concepts, and link suggestions.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"
)

// Note represents a single note in the corpus. Title is the unique key;
// Path is where the note-store collaborator persists the content.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Path      string    `json:"path,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// CorpusHash returns the hex SHA-256 digest over all (title, content) pairs
// sorted by title. Two corpus snapshots with the same hash are interchangeable
// for index-caching purposes.
func CorpusHash(notes []*Note) string {
	sorted := make([]*Note, len(notes))
	copy(sorted, notes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Title < sorted[j].Title })

	h := sha256.New()
	for _, n := range sorted {
		h.Write([]byte(n.Title))
		h.Write([]byte{0})
		h.Write([]byte(n.Content))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// TitleSet returns the set of titles present in notes.
func TitleSet(notes []*Note) map[string]struct{} {
	set := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		set[n.Title] = struct{}{}
	}
	return set
}
