// Package relay translates an upstream Azure OpenAI token stream into the
// gateway's public event stream, executing tool calls that surface mid-stream.
package relay

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tempopilot/coach-gateway/internal/domain"
)

// Public stream event names. Every relayed request emits start first and
// exactly one terminal event, either end or error.
const (
	EventStart             = "start"
	EventChunk             = "chunk"
	EventToolCallsStart    = "tool_calls_start"
	EventToolResult        = "tool_result"
	EventToolCallsComplete = "tool_calls_complete"
	EventEnd               = "end"
	EventError             = "error"
)

// StartPayload opens the stream and names the deployment serving it.
type StartPayload struct {
	Model string `json:"model"`
}

// ChunkPayload carries one text delta.
type ChunkPayload struct {
	Delta string `json:"delta"`
}

// ToolCallsStartPayload announces the fully accumulated tool calls before
// execution begins.
type ToolCallsStartPayload struct {
	ToolCalls []ToolCall `json:"tool_calls"`
}

// ToolResultPayload reports one tool call's outcome. Exactly one of Result
// and Error is set.
type ToolResultPayload struct {
	ToolCallID string          `json:"tool_call_id"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// EndPayload closes the stream with the token usage reported upstream.
type EndPayload struct {
	Usage domain.Usage `json:"usage"`
}

// ErrorPayload is the terminal event for an interrupted stream.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Sink receives the relayed events. The SSE EventWriter is the primary
// implementation; the WebSocket transport provides its own.
type Sink interface {
	Send(event string, payload any) error
}

// EventWriter frames events as text/event-stream and flushes after each one
// so deltas reach the client without buffering delays.
type EventWriter struct {
	w       io.Writer
	flusher http.Flusher
}

var _ Sink = (*EventWriter)(nil)

// NewEventWriter wraps a response writer. If w implements http.Flusher every
// event is flushed as it is written.
func NewEventWriter(w io.Writer) *EventWriter {
	ew := &EventWriter{w: w}
	if f, ok := w.(http.Flusher); ok {
		ew.flusher = f
	}
	return ew
}

// Send writes one event frame. A write error means the client is gone; the
// caller should stop relaying.
func (ew *EventWriter) Send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", event, err)
	}
	if _, err := fmt.Fprintf(ew.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("writing %s event: %w", event, err)
	}
	if ew.flusher != nil {
		ew.flusher.Flush()
	}
	return nil
}
