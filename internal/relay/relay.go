package relay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tempopilot/coach-gateway/internal/azure"
	"github.com/tempopilot/coach-gateway/internal/domain"
	"github.com/tempopilot/coach-gateway/internal/logging"
	"github.com/tempopilot/coach-gateway/internal/tools"
)

// defaultToolTimeout bounds a single tool execution.
const defaultToolTimeout = 8 * time.Second

var errToolTimeout = errors.New("Tool execution timeout")

// Relay pumps one upstream token stream to a client event stream. It owns
// the mid-stream protocol: delta forwarding, tool call accumulation and
// execution, and the single terminal event.
type Relay struct {
	tools       *tools.Registry
	log         *logging.Logger
	toolTimeout time.Duration
}

// New builds a relay over the given tool registry.
func New(reg *tools.Registry, log *logging.Logger) *Relay {
	return &Relay{
		tools:       reg,
		log:         log.Sub("relay"),
		toolTimeout: defaultToolTimeout,
	}
}

// Upstream wire format, the subset of the chat-completions chunk we consume.
type streamFrame struct {
	Choices []streamChoice `json:"choices"`
	Usage   *streamUsage   `json:"usage"`
}

type streamChoice struct {
	Delta struct {
		Content   string          `json:"content"`
		ToolCalls []toolCallDelta `json:"tool_calls"`
	} `json:"delta"`
	FinishReason string `json:"finish_reason"`
}

type streamUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// toolOutcome is one executed call's result, kept for summary synthesis.
type toolOutcome struct {
	callID  string
	payload string
	failed  bool
}

// succeeded reports whether the payload is a JSON object without an error
// key. Tools report their own failures as {"error": ...} payloads, so both
// dispatch failures and tool-level errors count as unsuccessful here.
func (o toolOutcome) succeeded() bool {
	if o.failed {
		return false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(o.payload), &obj); err != nil {
		return false
	}
	_, hasErr := obj["error"]
	return !hasErr
}

// Run relays the stream until a terminal event is written, returning the
// token usage reported upstream. A returned error means the stream ended
// abnormally; the terminal error event has already been written unless the
// downstream writer itself failed.
func (r *Relay) Run(ctx context.Context, stream *azure.Stream, ew Sink, avail *domain.AvailabilityContext) (usage domain.Usage, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Any("panic", rec).Msg("relay panicked")
			ew.Send(EventError, ErrorPayload{Code: "stream_error", Message: "Stream interrupted"})
			err = fmt.Errorf("relay panic: %v", rec)
		}
	}()

	if err := ew.Send(EventStart, StartPayload{Model: stream.Deployment}); err != nil {
		return usage, err
	}

	scanner := bufio.NewScanner(stream.Body)
	scanner.Buffer(make([]byte, 256*1024), 256*1024)
	acc := newAccumulator()

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		if data == "[DONE]" {
			// Trailing tool calls that never saw a tool_calls finish
			// reason still get executed before the stream closes.
			if acc.pending() {
				if _, err := r.executeToolCalls(ctx, acc.drain(), ew, avail); err != nil {
					return usage, err
				}
			}
			return usage, ew.Send(EventEnd, EndPayload{Usage: usage})
		}

		var frame streamFrame
		if uerr := json.Unmarshal([]byte(data), &frame); uerr != nil {
			r.log.Debug().Err(uerr).Msg("skipping unparseable stream frame")
			continue
		}

		if frame.Usage != nil {
			usage.TokensIn = frame.Usage.PromptTokens
			usage.TokensOut = frame.Usage.CompletionTokens
		}

		if len(frame.Choices) == 0 {
			continue
		}
		choice := frame.Choices[0]

		if choice.Delta.Content != "" {
			if err := ew.Send(EventChunk, ChunkPayload{Delta: choice.Delta.Content}); err != nil {
				return usage, err
			}
		}

		for _, d := range choice.Delta.ToolCalls {
			acc.add(d)
		}

		if choice.FinishReason == "tool_calls" && acc.pending() {
			outcomes, err := r.executeToolCalls(ctx, acc.drain(), ew, avail)
			if err != nil {
				return usage, err
			}
			if err := r.writeSummary(ew, outcomes); err != nil {
				return usage, err
			}
			return usage, ew.Send(EventEnd, EndPayload{Usage: usage})
		}
	}

	if serr := scanner.Err(); serr != nil {
		r.log.Error().Err(serr).Msg("upstream stream read failed")
		if werr := ew.Send(EventError, ErrorPayload{Code: "stream_error", Message: "Stream interrupted"}); werr != nil {
			return usage, werr
		}
		return usage, serr
	}

	// Upstream closed without the [DONE] sentinel. Still a clean close from
	// the client's perspective.
	return usage, ew.Send(EventEnd, EndPayload{Usage: usage})
}

// executeToolCalls announces, runs and reports each accumulated call. Tool
// failures become per-call error results; they never abort the relay.
func (r *Relay) executeToolCalls(ctx context.Context, calls []ToolCall, ew Sink, avail *domain.AvailabilityContext) ([]toolOutcome, error) {
	if err := ew.Send(EventToolCallsStart, ToolCallsStartPayload{ToolCalls: calls}); err != nil {
		return nil, err
	}

	outcomes := make([]toolOutcome, 0, len(calls))
	for _, call := range calls {
		payload, rerr := r.runTool(ctx, call, avail)
		if rerr != nil {
			r.log.Warn().
				Str("tool", call.Function.Name).
				Err(rerr).
				Msg("tool call failed")
			outcomes = append(outcomes, toolOutcome{callID: call.ID, failed: true})
			if err := ew.Send(EventToolResult, ToolResultPayload{
				ToolCallID: call.ID,
				Error:      "Tool execution failed: " + rerr.Error(),
			}); err != nil {
				return nil, err
			}
			continue
		}

		outcomes = append(outcomes, toolOutcome{callID: call.ID, payload: payload})
		if err := ew.Send(EventToolResult, ToolResultPayload{
			ToolCallID: call.ID,
			Result:     json.RawMessage(payload),
		}); err != nil {
			return nil, err
		}
	}

	if err := ew.Send(EventToolCallsComplete, struct{}{}); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// runTool validates the accumulated arguments and races execution against
// the tool timeout. The registry never lets a tool block past its context,
// but the timer guards against compute-bound stalls too.
func (r *Relay) runTool(ctx context.Context, call ToolCall, avail *domain.AvailabilityContext) (string, error) {
	if !json.Valid([]byte(call.Function.Arguments)) {
		return "", errors.New("invalid tool arguments")
	}

	toolCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan string, 1)
	go func() {
		done <- r.tools.Execute(toolCtx, call.Function.Name, json.RawMessage(call.Function.Arguments), avail)
	}()

	timer := time.NewTimer(r.toolTimeout)
	defer timer.Stop()

	select {
	case payload := <-done:
		return payload, nil
	case <-timer.C:
		return "", errToolTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
