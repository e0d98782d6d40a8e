package server

import (
	"net/http"
	"strings"

	"github.com/salesmind/salesmind/pkg/dojo"
)

func (s *Server) requireTrainer(w http.ResponseWriter) bool {
	if s.trainer == nil {
		respondError(w, http.StatusServiceUnavailable, "dojo is not configured")
		return false
	}
	return true
}

func (s *Server) handleDojoChat(w http.ResponseWriter, r *http.Request) {
	if !s.requireTrainer(w) {
		return
	}

	var req dojo.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	resp, err := s.trainer.Chat(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "dojo chat failed")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDojoConfirm(w http.ResponseWriter, r *http.Request) {
	if !s.requireTrainer(w) {
		return
	}

	var req dojo.ConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if req.Confirmed && strings.TrimSpace(req.StructuredData.Content) == "" {
		respondError(w, http.StatusUnprocessableEntity, "structured_data.content is required to confirm")
		return
	}

	resp, err := s.trainer.Confirm(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to persist nugget")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
