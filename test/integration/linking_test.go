// Package integration provides end-to-end tests of the linking pipeline
// (requires real note files, SQLite persistence, and index caches).
package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/tsunagu/internal/config"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/service"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "localhost", Port: 8080},
		Notes: config.NotesConfig{
			Dir:            filepath.Join(dir, "notes"),
			BacklinksDB:    filepath.Join(dir, "backlinks.db"),
			IndexCachePath: filepath.Join(dir, "corpus.idx"),
		},
		Embedding: config.EmbeddingConfig{Provider: "mock", Dimensions: 48},
	}
	path := filepath.Join(dir, "config.yaml")
	if err := config.Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeNote(t *testing.T, notesDir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(notesDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(notesDir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestIntegration_LinkingPipeline(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir)
	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatal(err)
	}
	writeNote(t, cfg.Notes.Dir, "golang.md", "Go is a compiled language with goroutines and channels.")
	writeNote(t, cfg.Notes.Dir, "concurrency.md", "Concurrency in golang relies on goroutines and channels.")

	svc, err := service.New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Close()
	ctx := context.Background()

	st, err := svc.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Notes != 2 || st.Indexed != 2 {
		t.Fatalf("status: %+v", st)
	}

	// Suggestions run through extraction, the corpus index, and selection
	// without error; the mock embedder makes cross-note scores arbitrary so
	// only structural properties are asserted.
	suggestions, err := svc.Suggest(ctx, "concurrency")
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range suggestions {
		if s.TargetNote == "concurrency" {
			t.Errorf("self-link suggested: %+v", s)
		}
	}

	content, err := svc.Apply(ctx, "concurrency", []models.LinkSuggestion{{
		Term:       "golang",
		TargetNote: "golang",
		Start:      strings.Index("Concurrency in golang relies on goroutines and channels.", "golang"),
		End:        strings.Index("Concurrency in golang relies on goroutines and channels.", "golang") + len("golang"),
		Confidence: 0.9,
		Kind:       models.LinkLiteral,
	}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(content, "[[golang|golang]]") {
		t.Errorf("markup missing: %q", content)
	}
	data, err := os.ReadFile(filepath.Join(cfg.Notes.Dir, "concurrency.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != content {
		t.Error("applied content not persisted")
	}
}

func TestIntegration_CorpusCacheSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir)
	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatal(err)
	}
	writeNote(t, cfg.Notes.Dir, "first.md", "A primeira nota fala de embeddings.")
	writeNote(t, cfg.Notes.Dir, "second.md", "A segunda nota fala de indexação.")

	ctx := context.Background()
	svc, err := service.New(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Status(ctx); err != nil {
		t.Fatal(err)
	}
	svc.Close()

	cacheInfo, err := os.Stat(cfg.Notes.IndexCachePath)
	if err != nil {
		t.Fatalf("cache not written: %v", err)
	}

	// Second start must load the cache instead of rebuilding it.
	svc2, err := service.New(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer svc2.Close()
	st, err := svc2.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Indexed != 2 {
		t.Errorf("indexed after cache load: got %d, want 2", st.Indexed)
	}
	after, err := os.Stat(cfg.Notes.IndexCachePath)
	if err != nil {
		t.Fatal(err)
	}
	if !after.ModTime().Equal(cacheInfo.ModTime()) {
		t.Error("cache rewritten on unchanged corpus")
	}
}

func TestIntegration_BacklinksPersistAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir)
	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatal(err)
	}
	writeNote(t, cfg.Notes.Dir, "origem.md", "Conteúdo da nota de origem.")
	writeNote(t, cfg.Notes.Dir, "destino.md", "Conteúdo da nota de destino.")

	ctx := context.Background()
	svc, err := service.New(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Apply(ctx, "origem", []models.LinkSuggestion{{
		Term: "tema comum", TargetNote: "destino",
		Start: models.UnlocatedPos, End: models.UnlocatedPos,
		Confidence: 0.6, Kind: models.LinkSemantic,
	}}); err != nil {
		t.Fatal(err)
	}
	svc.Close()

	svc2, err := service.New(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer svc2.Close()
	if _, err := svc2.Status(ctx); err != nil {
		t.Fatal(err)
	}
	groups := svc2.Backlinks("destino")
	if len(groups) != 1 || groups[0].Origin != "origem" {
		t.Fatalf("backlinks after restart: %+v", groups)
	}
}
