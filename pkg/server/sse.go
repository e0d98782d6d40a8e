package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

type streamInteractionRequest struct {
	UserInput      string `json:"user_input"`
	SessionHistory string `json:"session_history,omitempty"`
}

// handleStreamInteraction runs one pipeline turn and streams the quick
// response over SSE: one "token" event per whitespace token, paced at the
// configured delay, then a "stream_end" event carrying the full response.
func (s *Server) handleStreamInteraction(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req streamInteractionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.UserInput) == "" {
		respondError(w, http.StatusBadRequest, "user_input is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	interaction, err := s.orchestrator.ProcessObservation(r.Context(), sessionID, req.UserInput, "")
	if err != nil {
		writeSSE(w, flusher, "error", "analysis failed")
		return
	}

	response := interaction.AIResponse

	delay := time.Duration(s.cfg.StreamTokenDelayMS) * time.Millisecond
	if delay < 100*time.Millisecond {
		delay = 100 * time.Millisecond
	}

	ticker := time.NewTicker(delay)
	defer ticker.Stop()

	for i, token := range strings.Fields(response.QuickResponse.Text) {
		if i > 0 {
			select {
			case <-ticker.C:
			case <-r.Context().Done():
				return
			}
		}
		writeSSE(w, flusher, "token", token)
	}

	payload, err := json.Marshal(response)
	if err != nil {
		writeSSE(w, flusher, "error", "failed to serialize response")
		return
	}
	writeSSE(w, flusher, "stream_end", string(payload))
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}
