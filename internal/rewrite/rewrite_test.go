package rewrite

import (
	"strings"
	"testing"

	"github.com/hyperjump/tsunagu/internal/models"
)

func literal(term, target string, confidence float64) models.LinkSuggestion {
	return models.LinkSuggestion{
		Term:       term,
		TargetNote: target,
		Start:      0,
		End:        len(term),
		Confidence: confidence,
		Kind:       models.LinkLiteral,
	}
}

func TestApply_LiteralMarkupPreservesCasing(t *testing.T) {
	content := "Estudei Python hoje e gostei."
	out := Apply(content, []models.LinkSuggestion{literal("python", "Python", 0.9)})
	want := "Estudei [[Python|Python]] hoje e gostei."
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestApply_SemanticMarker(t *testing.T) {
	content := "Anotações sobre redes neurais."
	s := models.LinkSuggestion{
		Term:       "redes neurais",
		TargetNote: "Nota Cérebro",
		Start:      len("Anotações sobre "),
		End:        len("Anotações sobre redes neurais"),
		Confidence: 0.6,
		Kind:       models.LinkSemantic,
	}
	out := Apply(content, []models.LinkSuggestion{s})
	if !strings.Contains(out, "[[sem:Nota Cérebro|redes neurais]]") {
		t.Errorf("semantic markup missing: %q", out)
	}
}

func TestApply_Idempotent(t *testing.T) {
	content := "Estudei Python hoje. Python é ótimo."
	suggestions := []models.LinkSuggestion{literal("python", "Python", 0.9)}
	once := Apply(content, suggestions)
	twice := Apply(once, suggestions)
	if once != twice {
		t.Errorf("second apply changed content:\nonce:  %q\ntwice: %q", once, twice)
	}
}

func TestApply_NoDoubleLink(t *testing.T) {
	content := "Python aqui. Python ali."
	suggestions := []models.LinkSuggestion{
		literal("python", "Python", 0.9),
		literal("Python", "Python", 0.8),
	}
	out := Apply(content, suggestions)
	if got := strings.Count(out, "[[Python|"); got != 1 {
		t.Errorf("got %d edits for the same (term, target), want 1: %q", got, out)
	}
	// The second occurrence stays plain text.
	if !strings.Contains(out, "Python ali.") {
		t.Errorf("second occurrence was rewritten: %q", out)
	}
}

func TestApply_UnlocatedUntouched(t *testing.T) {
	content := "Texto sem alteração."
	s := models.LinkSuggestion{
		Term:       "alteração",
		TargetNote: "Outra",
		Start:      models.UnlocatedPos,
		End:        models.UnlocatedPos,
		Confidence: 0.7,
		Kind:       models.LinkSemantic,
	}
	if out := Apply(content, []models.LinkSuggestion{s}); out != content {
		t.Errorf("unlocated suggestion edited content: %q", out)
	}
}

func TestApply_ConfidenceOrder(t *testing.T) {
	// Both terms overlap at the same word; the higher-confidence suggestion
	// wins the edit and the other still finds its own occurrence elsewhere.
	content := "go roda em servidores. servidores executam go."
	suggestions := []models.LinkSuggestion{
		{Term: "servidores", TargetNote: "Servidores", Start: 11, End: 21, Confidence: 0.5, Kind: models.LinkLiteral},
		{Term: "go", TargetNote: "Go", Start: 0, End: 2, Confidence: 0.9, Kind: models.LinkLiteral},
	}
	out := Apply(content, suggestions)
	if !strings.HasPrefix(out, "[[Go|go]]") {
		t.Errorf("higher-confidence suggestion not applied first: %q", out)
	}
	if !strings.Contains(out, "[[Servidores|servidores]]") {
		t.Errorf("lower-confidence suggestion lost: %q", out)
	}
}

func TestApply_SkipsTermInsideExistingMarkup(t *testing.T) {
	content := "Veja [[Python|Python]] para detalhes."
	out := Apply(content, []models.LinkSuggestion{literal("python", "Python", 0.9)})
	if out != content {
		t.Errorf("linked term rewritten again: %q", out)
	}
}

func TestApply_Empty(t *testing.T) {
	if out := Apply("conteúdo", nil); out != "conteúdo" {
		t.Errorf("got %q", out)
	}
}
