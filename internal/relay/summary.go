package relay

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Summary messages streamed after tool execution. A second model turn is
// deliberately avoided; the client gets immediate feedback synthesized from
// the first successful tool result.
const (
	summaryIntro = "\n\nBased on your calendar data, I can see your availability. Let me analyze this for you..."

	summaryFullyBooked = "\n\n📅 Your calendar appears to be fully booked today with no available time slots. Consider reviewing your schedule or planning for tomorrow!"

	summaryParseTrouble = "\n\nI received your calendar data but had trouble processing it. Please try asking again."

	summaryNoResults = "\n\nI encountered an issue accessing your calendar data. Please make sure calendar permissions are granted and try again."
)

// writeSummary streams a synthesized follow-up based on the tool outcomes.
func (r *Relay) writeSummary(ew Sink, outcomes []toolOutcome) error {
	var first *toolOutcome
	for i := range outcomes {
		if outcomes[i].succeeded() {
			first = &outcomes[i]
			break
		}
	}

	if first == nil {
		return ew.Send(EventChunk, ChunkPayload{Delta: summaryNoResults})
	}

	if err := ew.Send(EventChunk, ChunkPayload{Delta: summaryIntro}); err != nil {
		return err
	}
	return ew.Send(EventChunk, ChunkPayload{Delta: summarizeResult(first.payload)})
}

// summarySlot mirrors the interval shape tools emit. Minutes is a pointer so
// a missing field can be told apart from zero.
type summarySlot struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	Minutes *int   `json:"minutes"`
}

func (s summarySlot) minutesLabel() string {
	if s.Minutes == nil || *s.Minutes == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%d", *s.Minutes)
}

// summarizeResult turns one successful tool payload into a human summary.
func summarizeResult(payload string) string {
	var raw any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return summaryParseTrouble
	}
	// Tools can return double-encoded JSON; unwrap one level of string.
	if s, ok := raw.(string); ok {
		if err := json.Unmarshal([]byte(s), &raw); err != nil {
			return summaryParseTrouble
		}
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return summaryParseTrouble
	}

	slots := extractSlots(obj)
	if len(slots) == 0 {
		return summaryFullyBooked
	}

	labels := make([]string, 0, len(slots))
	for _, slot := range slots {
		labels = append(labels, fmt.Sprintf("%s - %s (%s min)", slot.Start, slot.End, slot.minutesLabel()))
	}

	firstMinutes := 0
	if slots[0].Minutes != nil {
		firstMinutes = *slots[0].Minutes
	}
	return fmt.Sprintf(
		"\n\n🎯 Great! I can see your available time today: %s\n\nThat's %d hours and %d minutes of focused work time! Would you like me to help you plan some focus blocks?",
		strings.Join(labels, ", "), firstMinutes/60, firstMinutes%60,
	)
}

// extractSlots reads the first present slot list. Tool payloads use
// "intervals"; older result shapes used "free_blocks" or "free_slots".
func extractSlots(obj map[string]any) []summarySlot {
	for _, key := range []string{"intervals", "free_blocks", "free_slots"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		data, err := json.Marshal(raw)
		if err != nil {
			continue
		}
		var slots []summarySlot
		if err := json.Unmarshal(data, &slots); err != nil {
			continue
		}
		return slots
	}
	return nil
}
