package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/salesmind/salesmind/pkg/knowledge"
)

func (s *Server) requireRetriever(w http.ResponseWriter) bool {
	if s.retriever == nil {
		respondError(w, http.StatusServiceUnavailable, "knowledge base is not configured")
		return false
	}
	return true
}

func (s *Server) handleCreateNugget(w http.ResponseWriter, r *http.Request) {
	if !s.requireRetriever(w) {
		return
	}

	var nugget knowledge.Nugget
	if err := decodeJSON(r, &nugget); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(nugget.Content) == "" {
		respondError(w, http.StatusBadRequest, "content is required")
		return
	}
	if nugget.Type != "" && !knowledge.IsValidType(nugget.Type) {
		respondError(w, http.StatusUnprocessableEntity, "unknown knowledge_type")
		return
	}

	id, err := s.retriever.Upsert(r.Context(), nugget)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store nugget")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type bulkNuggetsRequest struct {
	Items []knowledge.Nugget `json:"items"`
}

func (s *Server) handleBulkNuggets(w http.ResponseWriter, r *http.Request) {
	if !s.requireRetriever(w) {
		return
	}

	var req bulkNuggetsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "items is required")
		return
	}
	if len(req.Items) > knowledge.MaxBulkSize {
		respondError(w, http.StatusUnprocessableEntity, "bulk size exceeds 50 items")
		return
	}

	result, err := s.retriever.BulkUpsert(r.Context(), req.Items)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "bulk upsert failed")
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListNuggets(w http.ResponseWriter, r *http.Request) {
	if !s.requireRetriever(w) {
		return
	}

	page := queryInt(r, "page", 1)
	size := queryInt(r, "size", 50)
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 200 {
		size = 50
	}
	knowledgeType := r.URL.Query().Get("knowledge_type")
	archetypeFilter := r.URL.Query().Get("archetype")
	search := strings.ToLower(r.URL.Query().Get("search"))

	nuggets, err := s.retriever.GetAll(r.Context(), page*size*2)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list knowledge")
		return
	}

	filtered := make([]knowledge.Nugget, 0, len(nuggets))
	for _, n := range nuggets {
		if knowledgeType != "" && string(n.Type) != knowledgeType {
			continue
		}
		if archetypeFilter != "" && n.Archetype != archetypeFilter {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(n.Content), search) &&
			!strings.Contains(strings.ToLower(n.Title), search) {
			continue
		}
		filtered = append(filtered, n)
	}

	total := len(filtered)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	respondJSON(w, http.StatusOK, paginated[knowledge.Nugget]{
		Items:    filtered[start:end],
		Total:    total,
		Page:     page,
		PageSize: size,
	})
}

type searchNuggetsRequest struct {
	Query         string `json:"query"`
	Limit         int    `json:"limit,omitempty"`
	KnowledgeType string `json:"knowledge_type,omitempty"`
	Archetype     string `json:"archetype,omitempty"`
}

func (s *Server) handleSearchNuggets(w http.ResponseWriter, r *http.Request) {
	if !s.requireRetriever(w) {
		return
	}

	var req searchNuggetsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := s.retriever.Search(r.Context(), req.Query, req.Archetype,
		knowledge.NuggetType(req.KnowledgeType), req.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if results == nil {
		results = []knowledge.ScoredNugget{}
	}

	respondJSON(w, http.StatusOK, results)
}

func (s *Server) handleDeleteNugget(w http.ResponseWriter, r *http.Request) {
	if !s.requireRetriever(w) {
		return
	}

	if err := s.retriever.Delete(r.Context(), chi.URLParam(r, "nuggetID")); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete nugget")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleKnowledgeHealth(w http.ResponseWriter, r *http.Request) {
	if !s.requireRetriever(w) {
		return
	}

	health := s.retriever.Health(r.Context())
	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, health)
}
