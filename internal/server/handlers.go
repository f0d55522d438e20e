package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/tsunagu/internal/keyword"
	"github.com/hyperjump/tsunagu/internal/models"
	"go.uber.org/zap"
)

type suggestionsRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	var req suggestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		s.respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	s.logger.Debug("suggestions request", zap.String("title", req.Title))
	suggestions, err := s.svc.Suggest(r.Context(), req.Title)
	if err != nil {
		s.logger.Error("suggestion generation failed", zap.Error(err))
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if suggestions == nil {
		suggestions = []models.LinkSuggestion{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"title":       req.Title,
		"suggestions": suggestions,
	})
}

func (s *Server) handleSuggestionsAll(w http.ResponseWriter, r *http.Request) {
	all, err := s.svc.SuggestAll(r.Context())
	if err != nil {
		s.logger.Error("full-corpus suggestion generation failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"suggestions": all})
}

type applyRequest struct {
	Title       string                  `json:"title"`
	Suggestions []models.LinkSuggestion `json:"suggestions"`
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		s.respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	s.logger.Debug("apply request", zap.String("title", req.Title), zap.Int("suggestions", len(req.Suggestions)))
	content, err := s.svc.Apply(r.Context(), req.Title, req.Suggestions)
	if err != nil {
		s.logger.Error("apply failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"title":   req.Title,
		"content": content,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	s.logger.Debug("search request", zap.String("query", query), zap.Int("limit", limit))
	hits, err := s.svc.SearchNotes(r.Context(), query, limit)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if hits == nil {
		hits = []keyword.Hit{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"query": query,
		"hits":  hits,
	})
}

func (s *Server) handleBacklinks(w http.ResponseWriter, r *http.Request) {
	title := chi.URLParam(r, "title")
	groups := s.svc.Backlinks(title)
	if groups == nil {
		groups = []models.BacklinkGroup{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"destination": title,
		"backlinks":   groups,
	})
}

type detachRequest struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

func (s *Server) handleDetach(w http.ResponseWriter, r *http.Request) {
	var req detachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Origin == "" || req.Destination == "" {
		s.respondError(w, http.StatusBadRequest, "origin and destination are required")
		return
	}
	s.logger.Debug("detach request", zap.String("origin", req.Origin), zap.String("destination", req.Destination))
	if err := s.svc.Detach(req.Origin, req.Destination); err != nil {
		s.logger.Error("detach failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "detached"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.Status(r.Context())
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
