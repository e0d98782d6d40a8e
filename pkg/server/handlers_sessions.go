package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/salesmind/salesmind/pkg/store"
)

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	includeClient := r.URL.Query().Get("include_client") == "true"
	includeInteractions := r.URL.Query().Get("include_interactions") == "true"

	if !includeClient && !includeInteractions {
		session, err := s.store.GetSession(r.Context(), sessionID)
		if err != nil {
			storeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, session)
		return
	}

	sc, err := s.store.GetSessionContext(r.Context(), sessionID)
	if err != nil {
		storeError(w, err)
		return
	}

	out := map[string]any{"session": sc.Session}
	if includeClient {
		out["client"] = sc.Client
	}
	if includeInteractions {
		out["interactions"] = sc.Interactions
	}
	respondJSON(w, http.StatusOK, out)
}

type endSessionRequest struct {
	Summary string `json:"summary,omitempty"`
	Outcome string `json:"outcome,omitempty"`
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	var req endSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.store.EndSession(r.Context(), chi.URLParam(r, "sessionID"), req.Outcome, req.Summary)
	if err != nil {
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type clarifyingAnswer struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

type createInteractionRequest struct {
	UserInput           string            `json:"user_input"`
	InteractionType     string            `json:"interaction_type,omitempty"`
	ParentInteractionID string            `json:"parent_interaction_id,omitempty"`
	ClarifyingAnswer    *clarifyingAnswer `json:"clarifying_answer,omitempty"`
	AdditionalContext   string            `json:"additional_context,omitempty"`
}

// handleCreateInteraction runs one pipeline turn. A clarifying_answer body
// routes through the clarification entry point instead of a fresh
// observation.
func (s *Server) handleCreateInteraction(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req createInteractionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ClarifyingAnswer != nil {
		if req.ClarifyingAnswer.QuestionID == "" || strings.TrimSpace(req.ClarifyingAnswer.Answer) == "" {
			respondError(w, http.StatusBadRequest, "clarifying_answer requires question_id and answer")
			return
		}

		interaction, err := s.orchestrator.AnswerClarifyingQuestion(
			r.Context(), sessionID, req.ClarifyingAnswer.QuestionID, req.ClarifyingAnswer.Answer)
		if err != nil {
			storeError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, interaction)
		return
	}

	if strings.TrimSpace(req.UserInput) == "" {
		respondError(w, http.StatusBadRequest, "user_input is required")
		return
	}

	interaction, err := s.orchestrator.ProcessObservation(r.Context(), sessionID, req.UserInput, req.ParentInteractionID)
	if err != nil {
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, interaction)
}

func (s *Server) handleListInteractions(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	page := queryInt(r, "page", 1)
	size := queryInt(r, "page_size", 50)

	interactions, total, err := s.store.ListInteractions(r.Context(), sessionID, page, size)
	if err != nil {
		storeError(w, err)
		return
	}
	if interactions == nil {
		interactions = []store.Interaction{}
	}

	respondJSON(w, http.StatusOK, paginated[store.Interaction]{
		Items:    interactions,
		Total:    total,
		Page:     page,
		PageSize: size,
	})
}

type feedbackRequest struct {
	SuggestionID   string `json:"suggestion_id"`
	SuggestionType string `json:"suggestion_type,omitempty"`
	Score          int    `json:"score"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	interactionID := chi.URLParam(r, "interactionID")

	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SuggestionID == "" {
		respondError(w, http.StatusBadRequest, "suggestion_id is required")
		return
	}
	if req.Score != 1 && req.Score != -1 {
		respondError(w, http.StatusUnprocessableEntity, "score must be +1 or -1")
		return
	}

	interaction, err := s.store.AddFeedback(r.Context(), interactionID, store.Feedback{
		SuggestionID: req.SuggestionID,
		Score:        req.Score,
	})
	if err != nil {
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, interaction)
}
