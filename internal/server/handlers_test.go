package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/tsunagu/internal/config"
	"github.com/hyperjump/tsunagu/internal/keyword"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/service"
	"go.uber.org/zap"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "localhost", Port: 0},
		Notes: config.NotesConfig{
			Dir:            filepath.Join(dir, "notes"),
			BacklinksDB:    filepath.Join(dir, "backlinks.db"),
			IndexCachePath: filepath.Join(dir, "corpus.idx"),
		},
		Embedding: config.EmbeddingConfig{Provider: "mock", Dimensions: 32},
	}
	config.ApplyDefaults(cfg)
	if err := os.MkdirAll(cfg.Notes.Dir, 0755); err != nil {
		t.Fatal(err)
	}
	for name, content := range map[string]string{
		"nota-ia.md":      "Aprendi sobre inteligência artificial e redes neurais.",
		"nota-cerebro.md": "As redes neurais são inspiradas no cérebro humano.",
	} {
		if err := os.WriteFile(filepath.Join(cfg.Notes.Dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	svc, err := service.New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { svc.Close() })
	return NewServer(svc, &cfg.Server, zap.NewNop())
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	srv := testServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
}

func TestHandleSuggestions(t *testing.T) {
	srv := testServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/suggestions", map[string]string{"title": "nota-ia"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Title       string                  `json:"title"`
		Suggestions []models.LinkSuggestion `json:"suggestions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Title != "nota-ia" {
		t.Errorf("title: got %q", resp.Title)
	}
	if resp.Suggestions == nil {
		t.Error("suggestions must be an array, not null")
	}
}

func TestHandleSuggestions_MissingTitle(t *testing.T) {
	srv := testServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/suggestions", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestHandleSuggestions_UnknownNote(t *testing.T) {
	srv := testServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/suggestions", map[string]string{"title": "nope"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestHandleSuggestionsAll(t *testing.T) {
	srv := testServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/suggestions/all", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Suggestions map[string][]models.LinkSuggestion `json:"suggestions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Suggestions) != 2 {
		t.Errorf("got suggestions for %d notes, want 2", len(resp.Suggestions))
	}
}

func TestHandleApplyAndBacklinks(t *testing.T) {
	srv := testServer(t)
	router := srv.Router()

	apply := applyRequest{
		Title: "nota-ia",
		Suggestions: []models.LinkSuggestion{{
			Term:       "redes neurais",
			TargetNote: "nota-cerebro",
			Start:      models.UnlocatedPos,
			End:        models.UnlocatedPos,
			Confidence: 0.7,
			Kind:       models.LinkSemantic,
		}},
	}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/apply", apply)
	if rec.Code != http.StatusOK {
		t.Fatalf("apply status: got %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/backlinks/nota-cerebro", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("backlinks status: got %d", rec.Code)
	}
	var resp struct {
		Destination string                 `json:"destination"`
		Backlinks   []models.BacklinkGroup `json:"backlinks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Backlinks) != 1 || resp.Backlinks[0].Origin != "nota-ia" {
		t.Fatalf("backlinks: %+v", resp.Backlinks)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/backlinks", detachRequest{
		Origin: "nota-ia", Destination: "nota-cerebro",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("detach status: got %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/v1/backlinks/nota-cerebro", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Backlinks) != 0 {
		t.Errorf("backlinks after detach: %+v", resp.Backlinks)
	}
}

func TestHandleSearch(t *testing.T) {
	srv := testServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodGet, "/api/v1/search?q=neurais", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Query string        `json:"query"`
		Hits  []keyword.Hit `json:"hits"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Query != "neurais" {
		t.Errorf("query: got %q", resp.Query)
	}
	if len(resp.Hits) != 2 {
		t.Fatalf("hits: got %+v, want both notes", resp.Hits)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/search?q=neurais&limit=1", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Hits) != 1 {
		t.Errorf("limited hits: got %d, want 1", len(resp.Hits))
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/search", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing query: got %d, want 400", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/v1/search?q=neurais&limit=zero", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit: got %d, want 400", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	srv := testServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var st service.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.Notes != 2 {
		t.Errorf("notes: got %d, want 2", st.Notes)
	}
}
