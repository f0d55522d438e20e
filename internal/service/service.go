// Package service wires the linking engine together behind one serialized facade.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/tsunagu/internal/backlink"
	"github.com/hyperjump/tsunagu/internal/concept"
	"github.com/hyperjump/tsunagu/internal/config"
	"github.com/hyperjump/tsunagu/internal/corpus"
	"github.com/hyperjump/tsunagu/internal/embedding"
	"github.com/hyperjump/tsunagu/internal/keyword"
	"github.com/hyperjump/tsunagu/internal/linker"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/notestore"
	"github.com/hyperjump/tsunagu/internal/rewrite"
	"go.uber.org/zap"
)

// Status summarizes the engine state.
type Status struct {
	Notes     int    `json:"notes"`
	Indexed   int    `json:"indexed"`
	Backlinks int    `json:"backlinks"`
	Embedder  string `json:"embedder"`
	Degraded  bool   `json:"degraded"`
}

// Service is the composition root shared by the HTTP server and the CLI.
// All corpus mutations and index rebuilds are serialized behind one mutex;
// the watcher only flips the dirty flag.
type Service struct {
	cfg    *config.Config
	logger *zap.Logger

	store     *notestore.Store
	extractor *concept.Extractor
	embedder  embedding.Embedder
	composite *corpus.Index
	titleIdx  *corpus.Index
	notesIdx  *keyword.NotesIndex
	generator *linker.Generator
	selector  *linker.Selector
	backlinks *backlink.Index

	mu    sync.Mutex
	notes []*models.Note
	dirty bool
}

// New builds the service from config. An unavailable embedding backend is a
// soft failure: the service starts in degraded literal-only mode.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Service, error) {
	extractor := concept.NewExtractor(
		concept.WithTagger(concept.NewProseTagger()),
		concept.WithLogger(logger),
	)
	if len(cfg.Stopwords) > 0 {
		extractor.AddStopwords(cfg.Stopwords)
	}

	embedder, err := embedding.NewEmbedder(ctx, embedding.Options{
		Provider:   embedding.Provider(cfg.Embedding.Provider),
		ModelPath:  cfg.Embedding.ModelPath,
		BaseURL:    cfg.Embedding.OllamaURL,
		Model:      cfg.Embedding.OllamaModel,
		Dimensions: cfg.Embedding.Dimensions,
		MaxTokens:  cfg.Embedding.MaxTokens,
		CacheSize:  cfg.Embedding.CacheSize,
	})
	if err != nil {
		logger.Warn("embedding backend unavailable, running literal-only",
			zap.String("provider", cfg.Embedding.Provider), zap.Error(err))
		embedder = nil
	}

	notesIdx, err := keyword.NewNotesIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to create notes index: %w", err)
	}

	blStore, err := backlink.NewSQLiteStore(cfg.Notes.BacklinksDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open backlink store: %w", err)
	}
	backlinks, err := backlink.NewIndex(blStore)
	if err != nil {
		return nil, fmt.Errorf("failed to load backlinks: %w", err)
	}

	s := &Service{
		cfg:       cfg,
		logger:    logger,
		store:     notestore.NewStore(cfg.Notes.Dir, logger),
		extractor: extractor,
		embedder:  embedder,
		notesIdx:  notesIdx,
		backlinks: backlinks,
		selector:  linker.NewSelector(cfg.Linking.Params()),
		dirty:     true,
	}
	if embedder != nil {
		s.composite = corpus.NewIndex(embedder, corpus.CompositeText, logger)
		s.titleIdx = corpus.NewIndex(embedder, corpus.TitleContextText(extractor), logger)
	}
	s.generator = linker.NewGenerator(extractor, embedder, s.composite, cfg.Linking.Params(),
		linker.WithTitleIndex(s.titleIdx),
		linker.WithLogger(logger),
	)
	return s, nil
}

// MarkDirty flags the corpus snapshot as stale; the next operation reloads.
func (s *Service) MarkDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// Reload loads notes from disk and rebuilds every index.
func (s *Service) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked(ctx)
}

func (s *Service) reloadLocked(ctx context.Context) error {
	notes, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load notes: %w", err)
	}
	if err := s.notesIdx.Rebuild(ctx, notes); err != nil {
		return fmt.Errorf("failed to rebuild notes index: %w", err)
	}

	if s.composite != nil && len(notes) > 0 {
		loaded, err := s.composite.LoadCache(ctx, s.cfg.Notes.IndexCachePath, notes)
		if err != nil {
			s.logger.Warn("corpus cache unreadable, rebuilding", zap.Error(err))
			loaded = false
		}
		if !loaded {
			if err := s.composite.Build(ctx, notes); err != nil {
				s.logger.Warn("corpus index build failed, running literal-only", zap.Error(err))
			} else if err := s.composite.SaveCache(s.cfg.Notes.IndexCachePath); err != nil {
				s.logger.Warn("failed to save corpus cache", zap.Error(err))
			}
		}
	}
	if s.titleIdx != nil && len(notes) > 0 {
		if err := s.titleIdx.Build(ctx, notes); err != nil {
			s.logger.Warn("title index build failed", zap.Error(err))
		}
	}

	if err := s.backlinks.Prune(models.TitleSet(notes)); err != nil {
		return fmt.Errorf("failed to prune backlinks: %w", err)
	}

	s.notes = notes
	s.dirty = false
	s.logger.Info("corpus reloaded", zap.Int("notes", len(notes)))
	return nil
}

func (s *Service) ensureFreshLocked(ctx context.Context) error {
	if s.dirty || s.notes == nil {
		return s.reloadLocked(ctx)
	}
	return nil
}

// Suggest generates and selects link suggestions for the note with title.
func (s *Service) Suggest(ctx context.Context, title string) ([]models.LinkSuggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFreshLocked(ctx); err != nil {
		return nil, err
	}
	note := s.findLocked(title)
	if note == nil {
		return nil, fmt.Errorf("note %q not found", title)
	}
	suggestions := s.generator.Generate(ctx, note, s.notes)
	return s.selector.Select(suggestions, note.Content), nil
}

// SuggestAll generates selected suggestions for every note in the corpus.
func (s *Service) SuggestAll(ctx context.Context) (map[string][]models.LinkSuggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFreshLocked(ctx); err != nil {
		return nil, err
	}
	out := make(map[string][]models.LinkSuggestion, len(s.notes))
	for _, note := range s.notes {
		suggestions := s.generator.Generate(ctx, note, s.notes)
		out[note.Title] = s.selector.Select(suggestions, note.Content)
	}
	return out, nil
}

// Apply rewrites the note with the accepted suggestions, persists it, and
// registers semantic suggestions as backlinks. Returns the rewritten content.
func (s *Service) Apply(ctx context.Context, title string, suggestions []models.LinkSuggestion) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFreshLocked(ctx); err != nil {
		return "", err
	}
	note := s.findLocked(title)
	if note == nil {
		return "", fmt.Errorf("note %q not found", title)
	}

	content := rewrite.Apply(note.Content, suggestions)
	if content != note.Content {
		if err := s.store.Write(note, content); err != nil {
			return "", err
		}
		updated := *note
		updated.Content = content
		if err := s.notesIdx.Add(ctx, &updated); err != nil {
			s.logger.Warn("failed to refresh keyword index", zap.String("note", title), zap.Error(err))
		}
		s.dirty = true
	}
	for _, sug := range suggestions {
		if sug.Kind != models.LinkSemantic {
			continue
		}
		if err := s.backlinks.Register(title, sug.TargetNote, sug.Term); err != nil {
			return "", fmt.Errorf("failed to register backlink: %w", err)
		}
	}
	return content, nil
}

// SearchNotes runs a keyword query against the note corpus and returns the
// best-matching titles.
func (s *Service) SearchNotes(ctx context.Context, query string, limit int) ([]keyword.Hit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFreshLocked(ctx); err != nil {
		return nil, err
	}
	return s.notesIdx.Search(ctx, query, limit)
}

// Backlinks returns the backlink groups pointing at destination.
func (s *Service) Backlinks(destination string) []models.BacklinkGroup {
	return s.backlinks.LookupGrouped(destination)
}

// Detach removes all backlinks for the origin/destination pair.
func (s *Service) Detach(origin, destination string) error {
	return s.backlinks.Detach(origin, destination)
}

// AddStopwords extends the extractor stopword set at runtime.
func (s *Service) AddStopwords(words []string) {
	s.extractor.AddStopwords(words)
}

// Status reports engine state, reloading first if the corpus is stale.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFreshLocked(ctx); err != nil {
		return nil, err
	}
	st := &Status{
		Notes:     len(s.notes),
		Backlinks: s.backlinks.Len(),
		Embedder:  s.cfg.Embedding.Provider,
		Degraded:  s.embedder == nil,
	}
	if s.composite != nil {
		st.Indexed = s.composite.Size()
	}
	return st, nil
}

// NotesDir returns the configured notes directory.
func (s *Service) NotesDir() string {
	return s.cfg.Notes.Dir
}

// Close releases the backlink store and the embedder.
func (s *Service) Close() error {
	err := s.backlinks.Close()
	s.notesIdx.Close()
	if s.embedder != nil {
		if cerr := s.embedder.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Service) findLocked(title string) *models.Note {
	for _, n := range s.notes {
		if n.Title == title {
			return n
		}
	}
	return nil
}
