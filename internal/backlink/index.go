// Package backlink records which notes link into a destination note.
package backlink

import (
	"fmt"
	"sync"

	"github.com/hyperjump/tsunagu/internal/models"
)

// Store persists backlink mutations. The in-memory index is the source of
// truth for reads; the store replays it across restarts.
type Store interface {
	Insert(entry models.BacklinkEntry) error
	Delete(origin, destination string) error
	Keep(validTitles map[string]struct{}) error
	LoadAll() ([]models.BacklinkEntry, error)
	Close() error
}

// Index is the backlink registry. Entries are append-only per Register, kept
// in registration order, and never own note content. Mutations are
// all-or-nothing: when a store write fails, the in-memory state is untouched.
type Index struct {
	mu      sync.RWMutex
	entries []models.BacklinkEntry
	store   Store
}

// NewIndex creates an empty in-memory index. store may be nil.
func NewIndex(store Store) (*Index, error) {
	idx := &Index{store: store}
	if store != nil {
		entries, err := store.LoadAll()
		if err != nil {
			return nil, fmt.Errorf("failed to load backlinks: %w", err)
		}
		idx.entries = entries
	}
	return idx, nil
}

// Register appends a backlink entry.
func (x *Index) Register(origin, destination, term string) error {
	if origin == "" || destination == "" || term == "" {
		return fmt.Errorf("backlink fields must be non-empty")
	}
	entry := models.BacklinkEntry{Origin: origin, Destination: destination, Term: term}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.store != nil {
		if err := x.store.Insert(entry); err != nil {
			return fmt.Errorf("failed to persist backlink: %w", err)
		}
	}
	x.entries = append(x.entries, entry)
	return nil
}

// Lookup returns all entries pointing at destination, in registration order.
func (x *Index) Lookup(destination string) []models.BacklinkEntry {
	x.mu.RLock()
	defer x.mu.RUnlock()
	var out []models.BacklinkEntry
	for _, e := range x.entries {
		if e.Destination == destination {
			out = append(out, e)
		}
	}
	return out
}

// LookupGrouped returns entries for destination grouped by origin, origins in
// first-registration order.
func (x *Index) LookupGrouped(destination string) []models.BacklinkGroup {
	entries := x.Lookup(destination)
	byOrigin := make(map[string]int)
	var groups []models.BacklinkGroup
	for _, e := range entries {
		i, ok := byOrigin[e.Origin]
		if !ok {
			i = len(groups)
			byOrigin[e.Origin] = i
			groups = append(groups, models.BacklinkGroup{Origin: e.Origin})
		}
		groups[i].Terms = append(groups[i].Terms, e.Term)
	}
	return groups
}

// Prune removes every entry whose origin or destination is not in validTitles.
func (x *Index) Prune(validTitles map[string]struct{}) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.store != nil {
		if err := x.store.Keep(validTitles); err != nil {
			return fmt.Errorf("failed to prune persisted backlinks: %w", err)
		}
	}
	kept := x.entries[:0]
	for _, e := range x.entries {
		_, originOK := validTitles[e.Origin]
		_, destOK := validTitles[e.Destination]
		if originOK && destOK {
			kept = append(kept, e)
		}
	}
	x.entries = kept
	return nil
}

// Detach removes all entries matching exactly the origin/destination pair.
func (x *Index) Detach(origin, destination string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.store != nil {
		if err := x.store.Delete(origin, destination); err != nil {
			return fmt.Errorf("failed to delete persisted backlinks: %w", err)
		}
	}
	kept := x.entries[:0]
	for _, e := range x.entries {
		if e.Origin == origin && e.Destination == destination {
			continue
		}
		kept = append(kept, e)
	}
	x.entries = kept
	return nil
}

// Len returns the number of registered entries.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Close closes the underlying store, if any.
func (x *Index) Close() error {
	if x.store != nil {
		return x.store.Close()
	}
	return nil
}
