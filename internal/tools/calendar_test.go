package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempopilot/coach-gateway/internal/domain"
	"github.com/tempopilot/coach-gateway/internal/logging"
)

func testRegistry() *Registry {
	return NewCalendarRegistry(logging.New(nil, "silent"))
}

func decode(t *testing.T, payload string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &m))
	return m
}

func TestRegistryDefinitions(t *testing.T) {
	defs := testRegistry().Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "get_availability", defs[0].Name)
	assert.Equal(t, "check_time_slot", defs[1].Name)

	// Parameters must be valid JSON Schema documents.
	for _, d := range defs {
		var schema map[string]any
		require.NoError(t, json.Unmarshal(d.Parameters, &schema))
		assert.Equal(t, "object", schema["type"])
	}
}

func TestGetAvailabilityFiltersByMinDuration(t *testing.T) {
	avail := &domain.AvailabilityContext{
		DayISO: "2025-03-10",
		TZ:     "Europe/Berlin",
		Intervals: []domain.Interval{
			{Start: "09:00", End: "09:15", Minutes: 15},
			{Start: "13:00", End: "13:45", Minutes: 45},
		},
	}

	out := testRegistry().Execute(context.Background(), "get_availability",
		json.RawMessage(`{"min_duration": 30}`), avail)

	m := decode(t, out)
	assert.Equal(t, "2025-03-10", m["date"])
	assert.Equal(t, "Europe/Berlin", m["timezone"])
	assert.Equal(t, "client_calendar", m["source"])

	intervals := m["intervals"].([]any)
	require.Len(t, intervals, 1)
	assert.Equal(t, "13:00", intervals[0].(map[string]any)["start"])
}

func TestGetAvailabilityDefaultMinDuration(t *testing.T) {
	avail := &domain.AvailabilityContext{
		Intervals: []domain.Interval{
			{Start: "09:00", End: "09:10", Minutes: 10},
			{Start: "10:00", End: "10:15", Minutes: 15},
		},
	}

	out := testRegistry().Execute(context.Background(), "get_availability", nil, avail)

	intervals := decode(t, out)["intervals"].([]any)
	require.Len(t, intervals, 1, "default min_duration of 15 keeps only the 15-minute block")
}

func TestGetAvailabilityNoContext(t *testing.T) {
	out := testRegistry().Execute(context.Background(), "get_availability", nil, nil)

	m := decode(t, out)
	assert.Equal(t, "Calendar data not available", m["error"])
	assert.Empty(t, m["intervals"])
}

func TestCheckTimeSlotAvailable(t *testing.T) {
	avail := &domain.AvailabilityContext{
		Intervals: []domain.Interval{{Start: "08:00", End: "12:00", Minutes: 240}},
	}

	out := testRegistry().Execute(context.Background(), "check_time_slot",
		json.RawMessage(`{"start_time":"09:00","end_time":"10:00"}`), avail)

	m := decode(t, out)
	assert.Equal(t, true, m["available"])
	assert.Equal(t, float64(60), m["duration_minutes"])
	assert.Empty(t, m["reason"])
}

func TestCheckTimeSlotDoesNotFit(t *testing.T) {
	avail := &domain.AvailabilityContext{
		Intervals: []domain.Interval{{Start: "09:30", End: "10:00", Minutes: 30}},
	}

	out := testRegistry().Execute(context.Background(), "check_time_slot",
		json.RawMessage(`{"start_time":"09:00","end_time":"10:00"}`), avail)

	m := decode(t, out)
	assert.Equal(t, false, m["available"])
	assert.Contains(t, m["reason"], "conflicts with calendar events")
}

func TestCheckTimeSlotExactFit(t *testing.T) {
	avail := &domain.AvailabilityContext{
		Intervals: []domain.Interval{{Start: "09:00", End: "10:00", Minutes: 60}},
	}

	out := testRegistry().Execute(context.Background(), "check_time_slot",
		json.RawMessage(`{"start_time":"09:00","end_time":"10:00"}`), avail)

	assert.Equal(t, true, decode(t, out)["available"])
}

func TestCheckTimeSlotInvalidRange(t *testing.T) {
	// End before start: rejected without consulting context.
	out := testRegistry().Execute(context.Background(), "check_time_slot",
		json.RawMessage(`{"start_time":"10:00","end_time":"09:00"}`), nil)

	m := decode(t, out)
	assert.Equal(t, false, m["available"])
	assert.Equal(t, "Invalid time range", m["reason"])
	assert.Empty(t, m["error"])
}

func TestCheckTimeSlotNoContext(t *testing.T) {
	out := testRegistry().Execute(context.Background(), "check_time_slot",
		json.RawMessage(`{"start_time":"09:00","end_time":"10:00"}`), nil)

	m := decode(t, out)
	assert.Equal(t, false, m["available"])
	assert.Equal(t, "Calendar data not available", m["error"])
}

func TestCheckTimeSlotMalformedTime(t *testing.T) {
	out := testRegistry().Execute(context.Background(), "check_time_slot",
		json.RawMessage(`{"start_time":"nine","end_time":"10:00"}`), nil)

	m := decode(t, out)
	assert.Contains(t, m["error"], "Failed to execute check_time_slot")
}

func TestExecuteUnknownTool(t *testing.T) {
	out := testRegistry().Execute(context.Background(), "send_email", nil, nil)
	assert.Equal(t, "Unknown tool: send_email", decode(t, out)["error"])
}

func TestExecuteBadArguments(t *testing.T) {
	out := testRegistry().Execute(context.Background(), "get_availability",
		json.RawMessage(`{"min_duration": "thirty"}`), nil)
	assert.Contains(t, decode(t, out)["error"], "Failed to execute get_availability")
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"09:60", 0, true},
		{"0930", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseClock(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
		} else {
			require.NoError(t, err, tt.in)
			assert.Equal(t, tt.want, got, tt.in)
		}
	}
}
