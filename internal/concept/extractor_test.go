package concept

import (
	"strings"
	"testing"

	"github.com/hyperjump/tsunagu/internal/models"
)

func findConcept(concepts []models.Concept, term string) *models.Concept {
	for i := range concepts {
		if concepts[i].Term == term {
			return &concepts[i]
		}
	}
	return nil
}

func TestExtractBasic_Frequency(t *testing.T) {
	e := NewExtractor()
	text := "Golang é uma linguagem. Golang compila rápido. Golang tem goroutines."
	concepts := e.ExtractBasic(text)
	if len(concepts) == 0 {
		t.Fatal("expected concepts")
	}
	c := findConcept(concepts, "golang")
	if c == nil {
		t.Fatal("expected 'golang' among concepts")
	}
	if c.Frequency != 3 {
		t.Errorf("frequency: got %d, want 3", c.Frequency)
	}
	// 0.3 + 3*0.1
	if c.Relevance < 0.59 || c.Relevance > 0.61 {
		t.Errorf("relevance: got %f, want 0.6", c.Relevance)
	}
	if c.Category != models.CategoryWord {
		t.Errorf("category: got %s, want word", c.Category)
	}
}

func TestExtractBasic_OnlyStopwords(t *testing.T) {
	e := NewExtractor()
	concepts := e.ExtractBasic("o e a de que em com por para como mais")
	if len(concepts) != 0 {
		t.Errorf("expected no concepts from stopwords, got %v", concepts)
	}
}

func TestExtractBasic_Acronyms(t *testing.T) {
	e := NewExtractor()
	concepts := e.ExtractBasic("O protocolo HTTP e a sigla API aparecem aqui. HTTP de novo.")
	c := findConcept(concepts, "http")
	if c == nil {
		t.Fatal("expected acronym 'http'")
	}
	if c.Category != models.CategoryAcronym {
		t.Errorf("category: got %s, want acronym", c.Category)
	}
	if c.Relevance != 0.7 {
		t.Errorf("relevance: got %f, want 0.7", c.Relevance)
	}
	if c.Frequency != 2 {
		t.Errorf("frequency: got %d, want 2", c.Frequency)
	}
}

func TestExtractBasic_Limit(t *testing.T) {
	e := NewExtractor()
	var b strings.Builder
	words := []string{
		"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf",
		"hotel", "india", "juliett", "kilo", "lima", "mike", "november",
		"oscar", "papa", "quebec", "romeo", "sierra", "tango", "uniform",
	}
	for _, w := range words {
		b.WriteString(w + " ")
	}
	concepts := e.ExtractBasic(b.String())
	if len(concepts) > maxBasicConcepts {
		t.Errorf("got %d concepts, limit is %d", len(concepts), maxBasicConcepts)
	}
}

func TestExtract_TaggerFallback(t *testing.T) {
	// No tagger configured, Extract must behave like ExtractBasic.
	e := NewExtractor()
	text := "Kubernetes orquestra containers. Kubernetes escala pods."
	full := e.Extract(text, "nota")
	basic := e.ExtractBasic(text)
	if len(full) != len(basic) {
		t.Errorf("fallback mismatch: %d vs %d concepts", len(full), len(basic))
	}
}

func TestExtract_Technical(t *testing.T) {
	e := NewExtractor(WithTagger(NewProseTagger()))
	text := "The machine-learning pipeline uses auto-scaling and a feature_store for training."
	concepts := e.Extract(text, "pipeline")
	c := findConcept(concepts, "machine-learning")
	if c == nil {
		t.Fatalf("expected 'machine-learning', got %+v", concepts)
	}
	if c.Relevance < 0.6 {
		t.Errorf("relevance: got %f, want >= 0.6", c.Relevance)
	}
}

func TestExtract_SortedByRelevance(t *testing.T) {
	e := NewExtractor(WithTagger(NewProseTagger()))
	text := "The HTTP server handles requests. The server uses a worker-pool. " +
		"Requests arrive and the server replies. HTTP keeps connections alive."
	concepts := e.Extract(text, "server")
	for i := 1; i < len(concepts); i++ {
		if concepts[i].Relevance > concepts[i-1].Relevance {
			t.Fatalf("concepts not sorted by relevance at %d: %f > %f",
				i, concepts[i].Relevance, concepts[i-1].Relevance)
		}
	}
}

func TestExtract_Cached(t *testing.T) {
	e := NewExtractor(WithTagger(NewProseTagger()))
	text := "Docker builds images. Docker runs containers."
	first := e.Extract(text, "docker")
	second := e.Extract(text, "docker")
	if len(first) != len(second) {
		t.Fatalf("cache changed results: %d vs %d", len(first), len(second))
	}
	e.ClearCache()
	third := e.Extract(text, "docker")
	if len(third) != len(first) {
		t.Errorf("results differ after cache clear: %d vs %d", len(third), len(first))
	}
}

func TestAddStopwords(t *testing.T) {
	e := NewExtractor()
	if !e.ValidateTerm("projeto") {
		t.Fatal("'projeto' should be valid before adding")
	}
	e.AddStopwords([]string{"Projeto"})
	if e.ValidateTerm("projeto") {
		t.Error("'projeto' should be rejected after AddStopwords")
	}
	if e.ValidateTerm("PROJETO") {
		t.Error("stopword check must be case-insensitive")
	}
}

func TestValidateTerm(t *testing.T) {
	e := NewExtractor()
	cases := []struct {
		term  string
		valid bool
	}{
		{"ab", false},        // too short
		{"que", false},       // stopword
		{"12345", false},     // digits only
		{"redes", true},
		{"machine-learning", true},
		{"ksi", true},
		{"", false},
	}
	for _, tc := range cases {
		if got := e.ValidateTerm(tc.term); got != tc.valid {
			t.Errorf("ValidateTerm(%q): got %v, want %v", tc.term, got, tc.valid)
		}
	}
}

func TestContextsFor(t *testing.T) {
	text := "Redes neurais aprendem padrões. O treino usa gradientes. Redes neurais generalizam."
	contexts := contextsFor(text, "gradientes", 3)
	if len(contexts) != 1 {
		t.Fatalf("got %d contexts, want 1", len(contexts))
	}
	if !strings.Contains(contexts[0], "gradientes") {
		t.Errorf("context does not mention term: %q", contexts[0])
	}
}

func TestCleanTerm(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Redes  Neurais", "redes neurais"},
		{"auto-scaling!", "auto-scaling"},
		{"feature_store,", "feature_store"},
		{"  API.  ", "api"},
	}
	for _, tc := range cases {
		if got := cleanTerm(tc.in); got != tc.want {
			t.Errorf("cleanTerm(%q): got %q, want %q", tc.in, got, tc.want)
		}
	}
}
