package config

import (
	"github.com/hyperjump/tsunagu/internal/embedding"
	"github.com/hyperjump/tsunagu/internal/linker"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Notes.Dir == "" {
		cfg.Notes.Dir = "./notes"
	}
	if cfg.Notes.BacklinksDB == "" {
		cfg.Notes.BacklinksDB = "./data/backlinks.db"
	}
	if cfg.Notes.IndexCachePath == "" {
		cfg.Notes.IndexCachePath = "./data/corpus.idx"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}
	if cfg.Embedding.OllamaURL == "" {
		cfg.Embedding.OllamaURL = embedding.DefaultOllamaURL
	}
	if cfg.Embedding.OllamaModel == "" {
		cfg.Embedding.OllamaModel = "nomic-embed-text"
	}
	if cfg.Embedding.Dimensions == 0 {
		switch cfg.Embedding.Provider {
		case "ollama":
			cfg.Embedding.Dimensions = 768
		default:
			cfg.Embedding.Dimensions = 384
		}
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}

	defaults := linker.DefaultParams()
	if cfg.Linking.SimilarityThreshold == 0 {
		cfg.Linking.SimilarityThreshold = defaults.SimilarityThreshold
	}
	if cfg.Linking.ConceptTolerance == 0 {
		cfg.Linking.ConceptTolerance = defaults.ConceptTolerance
	}
	if cfg.Linking.PhraseTolerance == 0 {
		cfg.Linking.PhraseTolerance = defaults.PhraseTolerance
	}
	if cfg.Linking.MaxPerParagraph == 0 {
		cfg.Linking.MaxPerParagraph = defaults.MaxPerParagraph
	}
	if cfg.Linking.MaxSemanticPerNote == 0 {
		cfg.Linking.MaxSemanticPerNote = defaults.MaxSemanticPerNote
	}
	if cfg.Linking.NearestNotes == 0 {
		cfg.Linking.NearestNotes = defaults.NearestNotes
	}
}
