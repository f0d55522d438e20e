package models

// ConceptCategory tags how a concept was extracted.
type ConceptCategory string

const (
	// CategoryEntity marks named entities (people, organizations, places, products).
	CategoryEntity ConceptCategory = "entity"
	// CategoryCompound marks multi-word noun phrases built from modifier chains.
	CategoryCompound ConceptCategory = "compound"
	// CategoryAcronym marks 2-5 letter uppercase acronyms.
	CategoryAcronym ConceptCategory = "acronym"
	// CategoryTechnical marks hyphen/underscore-joined technical terms.
	CategoryTechnical ConceptCategory = "technical"
	// CategoryFrequency marks terms kept because they recur in the text.
	CategoryFrequency ConceptCategory = "frequency"
	// CategoryWord marks plain words from the regex fallback extractor.
	CategoryWord ConceptCategory = "word"
)

// MaxConceptContexts caps how many context snippets a concept carries.
const MaxConceptContexts = 3

// Concept is a validated candidate term extracted from note text.
type Concept struct {
	Term      string          `json:"term"`
	Frequency int             `json:"frequency"`
	Category  ConceptCategory `json:"category"`
	Relevance float64         `json:"relevance"`
	Contexts  []string        `json:"contexts,omitempty"`
}
