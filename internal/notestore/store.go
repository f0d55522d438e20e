// Package notestore loads and persists the note corpus from a directory.
package notestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/tsunagu/internal/models"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var noteExtensions = map[string]struct{}{
	".md":       {},
	".markdown": {},
	".txt":      {},
}

// Store reads a corpus snapshot from a notes directory and writes rewritten
// content back.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates a store over dir. logger may be nil.
func NewStore(dir string, logger *zap.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// Dir returns the notes directory.
func (s *Store) Dir() string {
	return s.dir
}

// frontmatter is the YAML header recognized at the top of a note file.
type frontmatter struct {
	Title string `yaml:"title"`
}

// Load reads every note file under the directory, non-recursive, ordered by
// title. The title comes from YAML frontmatter when present, otherwise the
// filename stem. A note whose title duplicates an earlier one is skipped with
// a warning.
func (s *Store) Load() ([]*models.Note, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read notes directory: %w", err)
	}

	var notes []*models.Note
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := noteExtensions[ext]; !ok {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read note %s: %w", entry.Name(), err)
		}
		content := string(data)
		title := noteTitle(entry.Name(), content)
		if title == "" {
			if s.logger != nil {
				s.logger.Warn("skipping note with empty title", zap.String("path", path))
			}
			continue
		}
		if prev, dup := seen[title]; dup {
			if s.logger != nil {
				s.logger.Warn("skipping note with duplicate title",
					zap.String("title", title),
					zap.String("path", path),
					zap.String("kept", prev))
			}
			continue
		}
		seen[title] = path

		note := &models.Note{
			ID:      uuid.NewSHA1(uuid.NameSpaceURL, []byte(path)).String(),
			Title:   title,
			Content: content,
			Path:    path,
		}
		if info, err := entry.Info(); err == nil {
			note.UpdatedAt = info.ModTime()
			note.CreatedAt = info.ModTime()
		}
		notes = append(notes, note)
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].Title < notes[j].Title })
	return notes, nil
}

// Write persists content to the note's file.
func (s *Store) Write(note *models.Note, content string) error {
	path := note.Path
	if path == "" {
		path = filepath.Join(s.dir, note.Title+".md")
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write note %s: %w", note.Title, err)
	}
	note.Content = content
	return nil
}

// noteTitle resolves the note title: frontmatter first, filename stem second.
func noteTitle(filename, content string) string {
	if title := frontmatterTitle(content); title != "" {
		return title
	}
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// frontmatterTitle parses a leading YAML frontmatter block and returns its
// title field, or "" when absent or malformed.
func frontmatterTitle(content string) string {
	if !strings.HasPrefix(content, "---\n") && !strings.HasPrefix(content, "---\r\n") {
		return ""
	}
	rest := content[strings.Index(content, "\n")+1:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return ""
	}
	var fm frontmatter
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return ""
	}
	return strings.TrimSpace(fm.Title)
}
