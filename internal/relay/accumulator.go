package relay

import (
	"fmt"
	"sort"
	"time"
)

// ToolCall is one model-requested function invocation, assembled from the
// fragments the upstream stream delivers.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall holds the name and raw argument text of a tool call. Arguments
// arrive as string fragments and are only parsed once the call is complete.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// toolCallDelta is one upstream fragment. Index identifies which call the
// fragment belongs to; id and function fields are partial.
type toolCallDelta struct {
	Index    int     `json:"index"`
	ID       string  `json:"id"`
	Function *struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// accumulator assembles tool calls from sparse, out-of-order fragments keyed
// by index. Name and argument fragments are appended in arrival order.
type accumulator struct {
	calls map[int]*ToolCall
}

func newAccumulator() *accumulator {
	return &accumulator{calls: make(map[int]*ToolCall)}
}

func (a *accumulator) add(d toolCallDelta) {
	call, ok := a.calls[d.Index]
	if !ok {
		id := d.ID
		if id == "" {
			id = fmt.Sprintf("call_%d_%d", time.Now().UnixMilli(), d.Index)
		}
		call = &ToolCall{ID: id, Type: "function"}
		a.calls[d.Index] = call
	}
	if d.Function != nil {
		call.Function.Name += d.Function.Name
		call.Function.Arguments += d.Function.Arguments
	}
}

func (a *accumulator) pending() bool { return len(a.calls) > 0 }

// drain returns the accumulated calls ordered by index and resets the
// accumulator.
func (a *accumulator) drain() []ToolCall {
	indexes := make([]int, 0, len(a.calls))
	for i := range a.calls {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	out := make([]ToolCall, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, *a.calls[i])
	}
	a.calls = make(map[int]*ToolCall)
	return out
}
