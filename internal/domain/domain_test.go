package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindValid(t *testing.T) {
	assert.True(t, KindPlan.Valid())
	assert.True(t, KindReplan.Valid())
	assert.True(t, KindReflect.Valid())
	assert.False(t, Kind("").Valid())
	assert.False(t, Kind("summarize").Valid())
}

func TestChatRequestValidate(t *testing.T) {
	req := &ChatRequest{
		Kind:     KindPlan,
		Messages: []Message{{Role: "user", Content: "plan my day"}},
	}
	assert.NoError(t, req.Validate())
}

func TestChatRequestValidateKind(t *testing.T) {
	req := &ChatRequest{
		Kind:     Kind("bogus"),
		Messages: []Message{{Role: "user", Content: "hi"}},
	}
	assert.ErrorIs(t, req.Validate(), ErrInvalidKind)
}

func TestChatRequestValidateEmptyMessages(t *testing.T) {
	req := &ChatRequest{Kind: KindReflect}
	assert.ErrorIs(t, req.Validate(), ErrNoMessages)
}

func TestChatRequestValidateOversized(t *testing.T) {
	// 10,001 chars split across two messages still trips the bound.
	req := &ChatRequest{
		Kind: KindPlan,
		Messages: []Message{
			{Role: "user", Content: strings.Repeat("a", 6000)},
			{Role: "assistant", Content: strings.Repeat("b", 4001)},
		},
	}
	assert.ErrorIs(t, req.Validate(), ErrPayloadTooLarge)

	// Exactly at the bound is accepted.
	req.Messages[1].Content = strings.Repeat("b", 4000)
	assert.NoError(t, req.Validate())
}
