// Package llm implements the gateway every analysis stage calls into: one
// Generate primitive with retries, a wall-clock budget and an opportunistic
// response cache. Callers must treat ErrLLMUnavailable and ErrLLMTimeout as
// a signal to produce their stage-specific fallback.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/invopop/jsonschema"
)

var (
	// ErrLLMUnavailable is returned when every attempt failed.
	ErrLLMUnavailable = errors.New("llm unavailable")

	// ErrLLMTimeout is returned when the per-call wall-clock budget is
	// exhausted before an attempt succeeded.
	ErrLLMTimeout = errors.New("llm timeout")
)

// Response is a completed generation.
type Response struct {
	Content   string    `json:"content"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
}

// Provider is a single chat-completion backend.
type Provider interface {
	// Complete sends one system+user exchange and returns the raw text.
	Complete(ctx context.Context, model, system, user string) (string, error)

	Name() string
	Close() error
}

// SchemaFor renders the JSON schema of v for embedding into structured-output
// prompts so the model sees the exact shape of the struct it must emit.
func SchemaFor(v any) string {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(v)
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}
