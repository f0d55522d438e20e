// Package concept extracts ranked candidate concepts (terms) from note text.
package concept

import (
	"fmt"

	"github.com/jdkato/prose/v2"
)

// Token is a word with its part-of-speech tag (Penn Treebank).
type Token struct {
	Text string
	Tag  string
}

// Entity is a named entity with its label (PERSON, GPE, ...).
type Entity struct {
	Text  string
	Label string
}

// Analysis is the linguistic breakdown of a text.
type Analysis struct {
	Tokens    []Token
	Entities  []Entity
	Sentences []string
}

// Tagger is the NLP capability used by the full extraction mode. When no
// tagger is available the extractor falls back to regex-only extraction.
type Tagger interface {
	Analyze(text string) (*Analysis, error)
}

// ProseTagger implements Tagger with the prose NLP library (tokenization,
// POS tagging, and NER with an embedded English model).
type ProseTagger struct{}

// NewProseTagger returns a prose-backed tagger.
func NewProseTagger() *ProseTagger {
	return &ProseTagger{}
}

// Analyze runs the full prose pipeline over text.
func (t *ProseTagger) Analyze(text string) (*Analysis, error) {
	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, fmt.Errorf("prose analysis failed: %w", err)
	}
	a := &Analysis{}
	for _, tok := range doc.Tokens() {
		a.Tokens = append(a.Tokens, Token{Text: tok.Text, Tag: tok.Tag})
	}
	for _, ent := range doc.Entities() {
		a.Entities = append(a.Entities, Entity{Text: ent.Text, Label: ent.Label})
	}
	for _, sent := range doc.Sentences() {
		a.Sentences = append(a.Sentences, sent.Text)
	}
	return a, nil
}

// isNoun reports whether tag is a noun or proper-noun tag.
func isNoun(tag string) bool {
	switch tag {
	case "NN", "NNS", "NNP", "NNPS":
		return true
	}
	return false
}

// isModifier reports whether tag can modify a noun in a compound phrase.
func isModifier(tag string) bool {
	return isNoun(tag) || tag == "JJ"
}
