package linker

import (
	"context"
	"strings"
	"testing"

	"github.com/hyperjump/tsunagu/internal/concept"
	"github.com/hyperjump/tsunagu/internal/corpus"
	"github.com/hyperjump/tsunagu/internal/embedding"
	"github.com/hyperjump/tsunagu/internal/models"
)

func builtIndex(t *testing.T, notes []*models.Note) (*corpus.Index, embedding.Embedder) {
	t.Helper()
	embedder := embedding.NewMockEmbedder(32)
	idx := corpus.NewIndex(embedder, corpus.CompositeText, nil)
	if err := idx.Build(context.Background(), notes); err != nil {
		t.Fatal(err)
	}
	return idx, embedder
}

func TestGenerate_LiteralSuggestion(t *testing.T) {
	notes := []*models.Note{
		{Title: "Projetos", Content: "Uso Python nos meus projetos. Python facilita scripts de dados."},
		{Title: "Python", Content: "Python é uma linguagem popular para ciência de dados."},
	}
	idx, embedder := builtIndex(t, notes)

	params := DefaultParams()
	params.SimilarityThreshold = -1 // admit every neighbor, the mock scores are arbitrary
	params.ConceptTolerance = 2.0   // shared concepts only via exact term equality
	params.SemanticMode = false

	g := NewGenerator(concept.NewExtractor(), embedder, idx, params)
	suggestions := g.Generate(context.Background(), notes[0], notes)

	var hit *models.LinkSuggestion
	for i := range suggestions {
		if suggestions[i].Term == "python" && suggestions[i].TargetNote == "Python" {
			hit = &suggestions[i]
			break
		}
	}
	if hit == nil {
		t.Fatalf("expected literal suggestion for python, got %+v", suggestions)
	}
	if hit.Kind != models.LinkLiteral {
		t.Errorf("kind: got %s, want literal", hit.Kind)
	}
	if hit.Confidence != 0.9 {
		t.Errorf("confidence: got %f, want 0.9", hit.Confidence)
	}
	// Span must cover the first occurrence, case preserved in content.
	got := notes[0].Content[hit.Start:hit.End]
	if !strings.EqualFold(got, "python") {
		t.Errorf("span text: got %q", got)
	}
	if first := strings.Index(notes[0].Content, "Python"); hit.Start != first {
		t.Errorf("span start: got %d, want first occurrence at %d", hit.Start, first)
	}
}

func TestGenerate_EmptyCorpus(t *testing.T) {
	g := NewGenerator(concept.NewExtractor(), embedding.NewMockEmbedder(32), nil, DefaultParams())
	note := &models.Note{Title: "Só", Content: "Uma nota solitária."}
	if got := g.Generate(context.Background(), note, nil); len(got) != 0 {
		t.Errorf("expected no suggestions, got %+v", got)
	}
}

func TestGenerate_DegradedLiteralOnly(t *testing.T) {
	// No embedder: titles present in the source text become literal links.
	notes := []*models.Note{
		{Title: "Diário", Content: "Hoje estudei django e gostei do framework."},
		{Title: "django", Content: "django é um framework web para python."},
	}
	g := NewGenerator(concept.NewExtractor(), nil, nil, DefaultParams())
	suggestions := g.Generate(context.Background(), notes[0], notes)
	if len(suggestions) != 1 {
		t.Fatalf("got %d suggestions, want 1", len(suggestions))
	}
	s := suggestions[0]
	if s.Kind != models.LinkLiteral || s.TargetNote != "django" {
		t.Errorf("unexpected suggestion %+v", s)
	}
	if !strings.EqualFold(notes[0].Content[s.Start:s.End], "django") {
		t.Errorf("span text: got %q", notes[0].Content[s.Start:s.End])
	}
}

func TestGenerate_ThresholdMonotonicity(t *testing.T) {
	notes := []*models.Note{
		{Title: "Nota A", Content: "Kubernetes orquestra containers. Kubernetes escala workloads."},
		{Title: "Nota B", Content: "Containers isolam processos. Kubernetes agenda containers."},
		{Title: "Nota C", Content: "Receitas de pão caseiro e fermentação natural."},
	}
	idx, embedder := builtIndex(t, notes)

	counts := make([]int, 0, 3)
	for _, threshold := range []float64{-1, 0.3, 0.95} {
		params := DefaultParams()
		params.SimilarityThreshold = threshold
		params.ConceptTolerance = 2.0
		g := NewGenerator(concept.NewExtractor(), embedder, idx, params)
		counts = append(counts, len(g.Generate(context.Background(), notes[0], notes)))
	}
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[i-1] {
			t.Errorf("raising threshold increased suggestions: %v", counts)
		}
	}
}

func TestGenerate_LiteralNotVetoedByDestination(t *testing.T) {
	// Shared terms found whole-word in the source always earn the literal
	// tier, even when the share came from embedding similarity rather than
	// the destination containing the same word.
	notes := []*models.Note{
		{Title: "Origem", Content: "Anotações sobre compiladores e otimização de rotinas."},
		{Title: "Destino", Content: "Linguagens formais e autômatos finitos."},
	}
	idx, embedder := builtIndex(t, notes)

	params := DefaultParams()
	params.SimilarityThreshold = -1
	params.ConceptTolerance = -1 // every concept pair counts as shared
	params.SemanticMode = false  // must not affect literal suggestions

	g := NewGenerator(concept.NewExtractor(), embedder, idx, params)
	suggestions := g.Generate(context.Background(), notes[0], notes)
	if len(suggestions) == 0 {
		t.Fatal("expected literal suggestions for shared terms present in the source")
	}
	for _, s := range suggestions {
		if s.Kind != models.LinkLiteral {
			t.Errorf("kind: got %s, want literal for %q", s.Kind, s.Term)
		}
		if s.Confidence != 0.9 {
			t.Errorf("confidence: got %f, want 0.9", s.Confidence)
		}
		if !s.Located() {
			t.Errorf("literal suggestion without position: %+v", s)
		}
		got := notes[0].Content[s.Start:s.End]
		if !strings.EqualFold(got, s.Term) {
			t.Errorf("span text: got %q, want %q", got, s.Term)
		}
	}
}

func TestGenerate_UnlocatedFallback(t *testing.T) {
	// The paragraph pass suggests notes whose titles never occur in the
	// source; with an unreachable phrase tolerance nothing can be anchored
	// and the suggestions fall through to the unlocated tier.
	extractor := concept.NewExtractor()
	notes := []*models.Note{
		{Title: "Origem", Content: "Anotações sobre compiladores e otimização de rotinas."},
		{Title: "Teoria", Content: "Linguagens formais e autômatos finitos."},
	}
	idx, embedder := builtIndex(t, notes)
	titleIdx := corpus.NewIndex(embedder, corpus.TitleContextText(extractor), nil)
	if err := titleIdx.Build(context.Background(), notes); err != nil {
		t.Fatal(err)
	}

	params := DefaultParams()
	params.SimilarityThreshold = -1
	params.ConceptTolerance = 2.0 // disjoint contents share nothing literally
	params.PhraseTolerance = 2.0  // no phrase can qualify

	g := NewGenerator(extractor, embedder, idx, params, WithTitleIndex(titleIdx))
	suggestions := g.Generate(context.Background(), notes[0], notes)
	if len(suggestions) == 0 {
		t.Fatal("expected unlocated suggestions")
	}
	for _, s := range suggestions {
		if s.Kind != models.LinkSemantic {
			t.Errorf("kind: got %s, want semantic", s.Kind)
		}
		if s.Start != models.UnlocatedPos || s.End != models.UnlocatedPos {
			t.Errorf("sentinel span: got [%d,%d) for %q", s.Start, s.End, s.Term)
		}
		if s.TargetNote != s.Term {
			t.Errorf("paragraph suggestion term %q must match target %q", s.Term, s.TargetNote)
		}
	}
}

func TestGenerate_SemanticCap(t *testing.T) {
	extractor := concept.NewExtractor()
	notes := []*models.Note{
		{Title: "Origem", Content: "Anotações sobre compiladores e otimização de rotinas."},
		{Title: "Teoria", Content: "Linguagens formais e autômatos finitos."},
		{Title: "Hardware", Content: "Memória cache, registradores, pipelines."},
		{Title: "Culinária", Content: "Receitas de bolo e pão caseiro."},
		{Title: "Viagens", Content: "Roteiros pela serra e pelo litoral."},
	}
	idx, embedder := builtIndex(t, notes)
	titleIdx := corpus.NewIndex(embedder, corpus.TitleContextText(extractor), nil)
	if err := titleIdx.Build(context.Background(), notes); err != nil {
		t.Fatal(err)
	}

	params := DefaultParams()
	params.SimilarityThreshold = -1
	params.ConceptTolerance = 2.0
	params.PhraseTolerance = 2.0
	params.MaxSemanticPerNote = 2

	g := NewGenerator(extractor, embedder, idx, params, WithTitleIndex(titleIdx))
	suggestions := g.Generate(context.Background(), notes[0], notes)
	semantic := 0
	for _, s := range suggestions {
		if s.Kind == models.LinkSemantic {
			semantic++
		}
	}
	if semantic > 2 {
		t.Errorf("semantic suggestions: got %d, cap is 2", semantic)
	}
}
