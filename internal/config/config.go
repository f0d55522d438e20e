// Package config provides configuration loading and structs for the tsunagu server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hyperjump/tsunagu/internal/linker"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Notes     NotesConfig     `yaml:"notes"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Linking   LinkingConfig   `yaml:"linking"`
	Stopwords []string        `yaml:"stopwords"`
}

// LinkingConfig mirrors linker.Params with nullable booleans so that "unset"
// and "false" can be told apart; unset booleans default to true.
type LinkingConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	ConceptTolerance    float64 `yaml:"concept_tolerance"`
	PhraseTolerance     float64 `yaml:"phrase_tolerance"`
	MaxPerParagraph     int     `yaml:"max_per_paragraph"`
	MaxSemanticPerNote  int     `yaml:"max_semantic_per_note"`
	FirstOccurrenceOnly *bool   `yaml:"first_occurrence_only"`
	SemanticMode        *bool   `yaml:"semantic_mode"`
	NearestNotes        int     `yaml:"nearest_notes"`
}

// Params converts the config section into linker parameters.
func (l *LinkingConfig) Params() linker.Params {
	p := linker.Params{
		SimilarityThreshold: l.SimilarityThreshold,
		ConceptTolerance:    l.ConceptTolerance,
		PhraseTolerance:     l.PhraseTolerance,
		MaxPerParagraph:     l.MaxPerParagraph,
		MaxSemanticPerNote:  l.MaxSemanticPerNote,
		NearestNotes:        l.NearestNotes,
		FirstOccurrenceOnly: true,
		SemanticMode:        true,
	}
	if l.FirstOccurrenceOnly != nil {
		p.FirstOccurrenceOnly = *l.FirstOccurrenceOnly
	}
	if l.SemanticMode != nil {
		p.SemanticMode = *l.SemanticMode
	}
	return p
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// NotesConfig holds the notes directory and persistence paths.
type NotesConfig struct {
	Dir            string `yaml:"dir"`
	BacklinksDB    string `yaml:"backlinks_db"`
	IndexCachePath string `yaml:"index_cache_path"`
	Watch          bool   `yaml:"watch"`
}

// EmbeddingConfig holds embedding backend settings. Provider selects the
// backend: "onnx", "ollama", or "mock".
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	ModelPath   string `yaml:"model_path"`
	OllamaURL   string `yaml:"ollama_url"`
	OllamaModel string `yaml:"ollama_model"`
	Dimensions  int    `yaml:"dimensions"`
	MaxTokens   int    `yaml:"max_tokens"`
	CacheSize   int    `yaml:"cache_size"`
}

// Load reads and parses the config file at path, applies defaults, expands
// paths, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Notes.Dir = expandPath(cfg.Notes.Dir, configDir)
	cfg.Notes.BacklinksDB = expandPath(cfg.Notes.BacklinksDB, configDir)
	cfg.Notes.IndexCachePath = expandPath(cfg.Notes.IndexCachePath, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.Host, validation.Required),
		validation.Field(&c.Server.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := validation.ValidateStruct(&c.Notes,
		validation.Field(&c.Notes.Dir, validation.Required),
	); err != nil {
		return fmt.Errorf("notes: %w", err)
	}
	if err := validation.ValidateStruct(&c.Embedding,
		validation.Field(&c.Embedding.Provider, validation.Required, validation.In("onnx", "ollama", "mock")),
		validation.Field(&c.Embedding.Dimensions, validation.Required, validation.Min(1)),
	); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := validation.Validate(c.Linking.SimilarityThreshold, validation.Min(0.0), validation.Max(1.0)); err != nil {
		return fmt.Errorf("linking.similarity_threshold: %w", err)
	}
	if err := validation.Validate(c.Linking.ConceptTolerance, validation.Min(0.0), validation.Max(1.0)); err != nil {
		return fmt.Errorf("linking.concept_tolerance: %w", err)
	}
	if err := validation.Validate(c.Linking.PhraseTolerance, validation.Min(0.0), validation.Max(1.0)); err != nil {
		return fmt.Errorf("linking.phrase_tolerance: %w", err)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
