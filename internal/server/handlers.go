package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/matome-io/matome/internal/models"
)

// handleSearch scores stored papers against the requested keywords and
// returns full records for the relevant ones, best first. Relevance is
// computed fresh on every request and never persisted.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	keywords := parseKeywords(r.URL.Query()["keywords"])
	if len(keywords) == 0 {
		s.respondError(w, http.StatusBadRequest, "keywords parameter is required")
		return
	}

	limit := s.config.Pipeline.BatchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	model := r.URL.Query().Get("model")
	if model == "" {
		model = s.config.Ollama.Model
	}

	s.logger.Debug("search request", zap.Strings("keywords", keywords), zap.Int("limit", limit))
	relevant, err := s.scorer.FindRelevant(r.Context(), keywords, limit, model)
	if err != nil {
		s.logger.Error("relevance search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(relevant) == 0 {
		s.respondJSON(w, http.StatusOK, map[string][]models.Paper{"papers": {}})
		return
	}

	ids := make([]string, len(relevant))
	relevanceByID := make(map[string]*models.Relevance, len(relevant))
	for i, paper := range relevant {
		ids[i] = paper.PaperID
		relevanceByID[paper.PaperID] = paper.Relevance
	}

	full, err := s.papers.FindByPaperIDs(r.Context(), ids)
	if err != nil {
		s.logger.Error("fetch papers failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Re-attach scores and restore the descending relevance order; the
	// store returns records in its own order.
	byID := make(map[string]models.Paper, len(full))
	for _, paper := range full {
		paper.Relevance = relevanceByID[paper.PaperID]
		byID[paper.PaperID] = paper
	}
	papers := make([]models.Paper, 0, len(full))
	for _, id := range ids {
		if paper, ok := byID[id]; ok {
			papers = append(papers, paper)
		}
	}

	s.respondJSON(w, http.StatusOK, map[string][]models.Paper{"papers": papers})
}

// parseKeywords accepts both repeated keywords params and comma-separated
// values.
func parseKeywords(values []string) []string {
	var keywords []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				keywords = append(keywords, part)
			}
		}
	}
	return keywords
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paperCount, err := s.papers.CountPapers(ctx)
	if err != nil {
		s.logger.Error("status: count papers failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	summarizedCount, err := s.papers.CountSummarized(ctx)
	if err != nil {
		s.logger.Error("status: count summarized failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"papers":     paperCount,
		"summarized": summarizedCount,
		"ollama":     s.llm.CheckStatus(ctx),
		"config": map[string]interface{}{
			"model":               s.config.Ollama.Model,
			"prompt_budget":       s.config.Pipeline.PromptBudget,
			"relevance_threshold": s.config.Pipeline.RelevanceThreshold,
			"batch_limit":         s.config.Pipeline.BatchLimit,
		},
	}
	s.respondJSON(w, http.StatusOK, resp)
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
