package dojo

import "github.com/salesmind/salesmind/pkg/knowledge"

// Response types for a training chat turn.
const (
	TypeQuestion     = "question"
	TypeConfirmation = "confirmation"
	TypeStatus       = "status"
	TypeError        = "error"
)

// Training modes steer what kind of nugget the trainer extracts.
const (
	ModeKnowledge = "knowledge"
	ModeObjection = "objection"
	ModeClosing   = "closing"
)

// ChatRequest is one expert message in a training conversation. SessionID is
// empty on the first turn; the trainer assigns one.
type ChatRequest struct {
	SessionID     string `json:"session_id,omitempty"`
	Message       string `json:"message"`
	TrainingMode  string `json:"training_mode"`
	ClientContext string `json:"client_context,omitempty"`
}

// ChatResponse is the trainer's reply. StructuredData is set only when the
// trainer proposes a complete nugget for confirmation.
type ChatResponse struct {
	SessionID       string            `json:"session_id"`
	Response        string            `json:"response"`
	ResponseType    string            `json:"response_type"`
	StructuredData  *knowledge.Nugget `json:"structured_data,omitempty"`
	ConfidenceLevel int               `json:"confidence_level"`
}

// ConfirmRequest approves or rejects a proposed nugget.
type ConfirmRequest struct {
	SessionID      string           `json:"session_id"`
	StructuredData knowledge.Nugget `json:"structured_data"`
	Confirmed      bool             `json:"confirmed"`
}
