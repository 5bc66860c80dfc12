package agent

import (
	"context"
	"fmt"

	"github.com/nidhogg/riskline/internal/provider"
)

// Turn carries the identifiers of the pipeline turn a tool call belongs to.
// Tool handlers take these from the orchestrator, not from model-supplied
// arguments, so audit records always land under the right conversation.
type Turn struct {
	ConversationID string
	SessionID      string
	UserQuery      string
}

// ToolHandler executes a tool call and returns the result as a string.
// Handlers return degraded JSON error payloads instead of errors wherever a
// sensible default exists; a returned error is fed back to the model verbatim.
type ToolHandler func(ctx context.Context, turn Turn, args string) (string, error)

// ToolRegistry holds the fixed tool set one stage may invoke during its turn.
type ToolRegistry struct {
	defs     []provider.Tool
	handlers map[string]ToolHandler
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		handlers: make(map[string]ToolHandler),
	}
}

// Register adds a tool definition and its handler.
func (r *ToolRegistry) Register(def provider.Tool, handler ToolHandler) {
	r.defs = append(r.defs, def)
	r.handlers[def.Function.Name] = handler
}

// Definitions returns all tool definitions for the model request.
func (r *ToolRegistry) Definitions() []provider.Tool {
	return r.defs
}

// Execute runs a tool by name with the given JSON arguments.
func (r *ToolRegistry) Execute(ctx context.Context, turn Turn, name, args string) (string, error) {
	h, ok := r.handlers[name]
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	return h(ctx, turn, args)
}
