package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
notes:
  dir: "./notes"
embedding:
  provider: "mock"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Notes.Dir != filepath.Join(dir, "notes") {
		t.Errorf("notes dir not expanded: %s", cfg.Notes.Dir)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("mock dimensions default: got %d, want 384", cfg.Embedding.Dimensions)
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
notes:
  dir: "./notes"
embedding:
  provider: "mock"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_InvalidProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "localhost"
  port: 8080
notes:
  dir: "./notes"
embedding:
  provider: "unknown"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for unknown provider")
	}
}

func TestLoad_InvalidThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "localhost"
  port: 8080
notes:
  dir: "./notes"
embedding:
  provider: "mock"
linking:
  similarity_threshold: 1.5
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for threshold above 1")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Embedding.Provider != "ollama" {
		t.Errorf("default provider: got %s", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Dimensions != 768 {
		t.Errorf("ollama dimensions default: got %d, want 768", cfg.Embedding.Dimensions)
	}
	if cfg.Linking.SimilarityThreshold != 0.50 {
		t.Errorf("default similarity threshold: got %f", cfg.Linking.SimilarityThreshold)
	}
	if cfg.Linking.MaxPerParagraph != 3 {
		t.Errorf("default max per paragraph: got %d", cfg.Linking.MaxPerParagraph)
	}
	if cfg.Linking.MaxSemanticPerNote != 5 {
		t.Errorf("default max semantic per note: got %d", cfg.Linking.MaxSemanticPerNote)
	}
}

func TestLinkingConfig_Params(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	p := cfg.Linking.Params()
	if !p.FirstOccurrenceOnly || !p.SemanticMode {
		t.Errorf("unset booleans should default to true: %+v", p)
	}

	f := false
	cfg.Linking.SemanticMode = &f
	p = cfg.Linking.Params()
	if p.SemanticMode {
		t.Error("explicit false must survive conversion")
	}
	if !p.FirstOccurrenceOnly {
		t.Error("unrelated boolean changed")
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:    ServerConfig{Host: "localhost", Port: 9090},
		Notes:     NotesConfig{Dir: "/tmp/notes"},
		Embedding: EmbeddingConfig{Provider: "mock"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Notes.Dir != "/tmp/notes" {
		t.Errorf("loaded notes dir: got %s", loaded.Notes.Dir)
	}
}
