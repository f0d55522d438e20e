// Package linker generates, scores, and selects link suggestions between notes.
package linker

// Params are the tunable knobs of suggestion generation and selection.
type Params struct {
	// SimilarityThreshold is the minimum cosine score for two notes to be
	// considered related.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	// ConceptTolerance is the minimum term-pair similarity for a concept to
	// count as shared between two notes.
	ConceptTolerance float64 `yaml:"concept_tolerance"`
	// PhraseTolerance is the minimum similarity for anchoring a semantic
	// suggestion to a phrase in the source text.
	PhraseTolerance float64 `yaml:"phrase_tolerance"`
	// MaxPerParagraph caps kept suggestions per paragraph during selection.
	MaxPerParagraph int `yaml:"max_per_paragraph"`
	// MaxSemanticPerNote caps semantic suggestions emitted per source note.
	MaxSemanticPerNote int `yaml:"max_semantic_per_note"`
	// FirstOccurrenceOnly deduplicates kept suggestions by (term, target).
	FirstOccurrenceOnly bool `yaml:"first_occurrence_only"`
	// SemanticMode enables the semantic fallback tiers; literal suggestions
	// are always generated.
	SemanticMode bool `yaml:"semantic_mode"`
	// NearestNotes is how many similar notes are considered per source note.
	NearestNotes int `yaml:"nearest_notes"`
}

// DefaultParams returns the default linking parameters.
func DefaultParams() Params {
	return Params{
		SimilarityThreshold: 0.50,
		ConceptTolerance:    0.80,
		PhraseTolerance:     0.80,
		MaxPerParagraph:     3,
		MaxSemanticPerNote:  5,
		FirstOccurrenceOnly: true,
		SemanticMode:        true,
		NearestNotes:        5,
	}
}

const literalConfidence = 0.9
