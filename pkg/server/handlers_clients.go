package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/salesmind/salesmind/pkg/store"
)

const maxArchetypeLength = 255

type createClientRequest struct {
	Alias     string   `json:"alias"`
	Archetype string   `json:"archetype,omitempty"`
	Notes     string   `json:"notes,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Archetype) > maxArchetypeLength {
		respondError(w, http.StatusUnprocessableEntity, "archetype too long")
		return
	}
	if strings.TrimSpace(req.Alias) == "" {
		req.Alias = "Anonymous prospect"
	}

	client := &store.Client{
		Alias:     req.Alias,
		Archetype: req.Archetype,
		Notes:     req.Notes,
		Tags:      req.Tags,
	}
	if err := s.store.CreateClient(r.Context(), client); err != nil {
		storeError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, client)
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 50)
	if limit < 1 {
		limit = 50
	}
	page := skip/limit + 1

	clients, _, err := s.store.ListClients(r.Context(), page, limit)
	if err != nil {
		storeError(w, err)
		return
	}
	if clients == nil {
		clients = []store.Client{}
	}

	respondJSON(w, http.StatusOK, clients)
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	client, err := s.store.GetClient(r.Context(), chi.URLParam(r, "clientID"))
	if err != nil {
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, client)
}

type createSessionRequest struct {
	SessionType string `json:"session_type,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	if _, err := s.store.GetClient(r.Context(), clientID); err != nil {
		storeError(w, err)
		return
	}

	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session := &store.Session{
		ClientID:    clientID,
		SessionType: req.SessionType,
		Notes:       req.Notes,
	}
	if err := s.store.CreateSession(r.Context(), session); err != nil {
		storeError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListClientSessions(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	page := queryInt(r, "page", 1)
	size := queryInt(r, "page_size", 50)
	onlyActive := r.URL.Query().Get("only_active") == "true"
	sessionType := r.URL.Query().Get("session_type")

	sessions, total, err := s.store.ListSessions(r.Context(), clientID, page, size)
	if err != nil {
		storeError(w, err)
		return
	}

	// Post-filters are applied within the page; the store keeps its query
	// surface narrow.
	filtered := make([]store.Session, 0, len(sessions))
	for _, session := range sessions {
		if onlyActive && session.Status != store.StatusActive {
			continue
		}
		if sessionType != "" && session.SessionType != sessionType {
			continue
		}
		filtered = append(filtered, session)
	}

	respondJSON(w, http.StatusOK, paginated[store.Session]{
		Items:    filtered,
		Total:    total,
		Page:     page,
		PageSize: size,
	})
}
