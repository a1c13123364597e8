// Package tools implements the fixed calendar toolset the model can invoke
// mid-stream. Tools are pure functions over the caller-supplied availability
// context; they never perform calendar I/O, so execution cost is bounded by
// computation plus JSON serialization.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tempopilot/coach-gateway/internal/domain"
	"github.com/tempopilot/coach-gateway/internal/logging"
)

// Tool is one callable capability exposed to the model.
type Tool interface {
	// Name returns the tool's identifier.
	Name() string

	// Description returns a human-readable description for the LLM.
	Description() string

	// Parameters returns the JSON Schema for the tool's arguments.
	Parameters() json.RawMessage

	// Execute runs the tool against the availability context and returns a
	// JSON payload. Errors returned here are converted to {"error": ...}
	// payloads by the registry's dispatch wrapper.
	Execute(ctx context.Context, args json.RawMessage, avail *domain.AvailabilityContext) (string, error)
}

// Definition is a serializable tool definition for the upstream request body.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Registry holds the closed set of calendar tools.
type Registry struct {
	tools map[string]Tool
	order []string
	log   *logging.Logger
}

// NewCalendarRegistry builds the fixed registry with get_availability and
// check_time_slot. The tool set is closed; there is no runtime registration
// surface beyond construction.
func NewCalendarRegistry(log *logging.Logger) *Registry {
	r := &Registry{
		tools: make(map[string]Tool),
		log:   log.Sub("tools"),
	}
	r.add(&getAvailabilityTool{})
	r.add(&checkTimeSlotTool{})
	return r
}

func (r *Registry) add(t Tool) {
	r.tools[t.Name()] = t
	r.order = append(r.order, t.Name())
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the tool definitions in registration order.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, Definition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Execute dispatches a tool call and always returns a JSON payload string.
// Unknown tools, argument errors, tool errors and panics are all encoded as
// {"error": ...} payloads; no failure escapes this boundary as a Go error.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage, avail *domain.AvailabilityContext) (out string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Str("tool", name).Any("panic", rec).Msg("tool execution panicked")
			out = errPayload(fmt.Sprintf("Failed to execute %s: %v", name, rec))
		}
	}()

	tool, ok := r.tools[name]
	if !ok {
		return errPayload("Unknown tool: " + name)
	}

	r.log.Debug().Str("tool", name).Msg("executing tool")
	result, err := tool.Execute(ctx, args, avail)
	if err != nil {
		r.log.Warn().Str("tool", name).Err(err).Msg("tool execution failed")
		return errPayload(fmt.Sprintf("Failed to execute %s: %s", name, err))
	}
	return result
}

func errPayload(msg string) string {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return string(data)
}
