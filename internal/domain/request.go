// Package domain holds the wire-level request types shared by the gateway,
// prompt assembly, tools and relay.
package domain

import "errors"

// Kind selects which coaching mode a chat request runs in.
type Kind string

const (
	KindPlan    Kind = "plan"
	KindReplan  Kind = "replan"
	KindReflect Kind = "reflect"
)

// Valid reports whether the kind is one of the recognized values.
func (k Kind) Valid() bool {
	switch k {
	case KindPlan, KindReplan, KindReflect:
		return true
	}
	return false
}

// MaxContentChars bounds the total message content accepted per request.
const MaxContentChars = 10000

// Validation errors surfaced by ChatRequest.Validate.
var (
	ErrInvalidKind     = errors.New("invalid kind parameter")
	ErrNoMessages      = errors.New("messages array required")
	ErrPayloadTooLarge = errors.New("message content exceeds maximum size")
)

// Message is a single turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Interval is one free block of calendar time, minute granularity.
type Interval struct {
	Start   string `json:"start"` // HH:MM
	End     string `json:"end"`   // HH:MM
	Minutes int    `json:"minutes"`
}

// AvailabilityContext is the caller-supplied snapshot of free calendar time.
// Tools operate only on this snapshot and never perform calendar I/O.
type AvailabilityContext struct {
	TZ        string     `json:"tz,omitempty"`
	TZOffset  string     `json:"tz_offset,omitempty"`
	Day       string     `json:"day,omitempty"`
	DayISO    string     `json:"day_iso,omitempty"`
	Intervals []Interval `json:"intervals,omitempty"`
}

// Metadata carries optional client identification.
type Metadata struct {
	Device     string `json:"device,omitempty"`
	AppVersion string `json:"appVersion,omitempty"`
}

// ChatRequest is the inbound request body for a chat stream.
type ChatRequest struct {
	Kind                Kind                 `json:"kind"`
	Messages            []Message            `json:"messages"`
	AvailabilityContext *AvailabilityContext `json:"availability_context,omitempty"`
	Metadata            *Metadata            `json:"metadata,omitempty"`
}

// Validate checks the request shape before any upstream call is attempted.
func (r *ChatRequest) Validate() error {
	if !r.Kind.Valid() {
		return ErrInvalidKind
	}
	if len(r.Messages) == 0 {
		return ErrNoMessages
	}
	total := 0
	for _, m := range r.Messages {
		total += len(m.Content)
	}
	if total > MaxContentChars {
		return ErrPayloadTooLarge
	}
	return nil
}
