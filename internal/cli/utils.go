// Package cli provides CLI output helpers for tsunagu.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/hyperjump/tsunagu/internal/keyword"
	"github.com/hyperjump/tsunagu/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteSuggestions writes the suggestions for one note to w.
func WriteSuggestions(w io.Writer, title string, suggestions []models.LinkSuggestion, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{"title": title, "suggestions": suggestions})
	}
	if len(suggestions) == 0 {
		fmt.Fprintf(w, "%s: no suggestions\n", title)
		return nil
	}
	fmt.Fprintf(w, "%s (%d suggestions)\n", title, len(suggestions))
	for _, s := range suggestions {
		writeOneSuggestion(w, &s)
	}
	return nil
}

// WriteSuggestionMap writes a full-corpus suggestion map to w, titles sorted.
func WriteSuggestionMap(w io.Writer, all map[string][]models.LinkSuggestion, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{"suggestions": all})
	}
	titles := make([]string, 0, len(all))
	for title := range all {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	for _, title := range titles {
		if err := WriteSuggestions(w, title, all[title], format); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}

func writeOneSuggestion(w io.Writer, s *models.LinkSuggestion) {
	position := "unlocated"
	if s.Located() {
		position = fmt.Sprintf("%d:%d", s.Start, s.End)
	}
	fmt.Fprintf(w, "  [%s] %q -> %s (confidence %.2f, %s)\n",
		s.Kind, s.Term, s.TargetNote, s.Confidence, position)
	if s.Context != "" {
		fmt.Fprintf(w, "      %s\n", s.Context)
	}
}

// WriteNoteHits writes keyword search results to w.
func WriteNoteHits(w io.Writer, query string, hits []keyword.Hit, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{"query": query, "hits": hits})
	}
	if len(hits) == 0 {
		fmt.Fprintf(w, "%s: no matches\n", query)
		return nil
	}
	fmt.Fprintf(w, "%s (%d matches)\n", query, len(hits))
	for _, h := range hits {
		fmt.Fprintf(w, "  %.3f  %s\n", h.Score, h.Title)
	}
	return nil
}

// WriteBacklinks writes the backlink groups for a destination note to w.
func WriteBacklinks(w io.Writer, destination string, groups []models.BacklinkGroup, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{"destination": destination, "backlinks": groups})
	}
	if len(groups) == 0 {
		fmt.Fprintf(w, "%s: no backlinks\n", destination)
		return nil
	}
	fmt.Fprintf(w, "Backlinks to %s:\n", destination)
	for _, g := range groups {
		fmt.Fprintf(w, "  %s:", g.Origin)
		for _, term := range g.Terms {
			fmt.Fprintf(w, " %q", term)
		}
		fmt.Fprintln(w)
	}
	return nil
}
