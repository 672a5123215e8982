// Package skill defines the atomic capability model: a named skill with a
// declared input/output contract, and the process-wide registry that maps
// skill names to their implementations.
package skill

import (
	"context"

	"github.com/cadenza-ai/cadenza/pkg/schema"
)

// Definition describes a skill's contract. Immutable after registration.
type Definition struct {
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	InputSchema    schema.Schema `json:"input_schema"`
	OutputSchema   schema.Schema `json:"output_schema"`
	RequiredConfig []string      `json:"required_config"`
}

// Handler is the opaque callable behind a skill. The orchestrator never
// knows how a handler computes its result; it only sees the declared
// contract and the returned output map or error.
type Handler interface {
	Invoke(ctx context.Context, input map[string]any) (map[string]any, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, input map[string]any) (map[string]any, error)

// Invoke calls the underlying function.
func (f HandlerFunc) Invoke(ctx context.Context, input map[string]any) (map[string]any, error) {
	return f(ctx, input)
}

// Skill pairs a definition with its implementation.
type Skill struct {
	Definition
	Handler Handler
}
