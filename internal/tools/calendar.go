package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tempopilot/coach-gateway/internal/domain"
)

const defaultMinDuration = 15

// getAvailabilityTool returns the caller's free time slots, filtered by a
// minimum duration.
type getAvailabilityTool struct{}

func (t *getAvailabilityTool) Name() string { return "get_availability" }

func (t *getAvailabilityTool) Description() string {
	return "Get the user's free time slots for today based on their calendar. Returns actual available time blocks."
}

func (t *getAvailabilityTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"date": {
				"type": "string",
				"description": "Date to check availability for (YYYY-MM-DD format). Defaults to today if not specified."
			},
			"min_duration": {
				"type": "integer",
				"description": "Minimum duration in minutes for free blocks. Defaults to 15 minutes."
			}
		},
		"required": []
	}`)
}

type getAvailabilityArgs struct {
	Date        string `json:"date,omitempty"`
	MinDuration int    `json:"min_duration,omitempty"`
}

type availabilityResult struct {
	Date        string            `json:"date"`
	Timezone    string            `json:"timezone,omitempty"`
	TZOffset    string            `json:"tz_offset,omitempty"`
	GeneratedAt string            `json:"generated_at,omitempty"`
	Intervals   []domain.Interval `json:"intervals"`
	Source      string            `json:"source,omitempty"`
	Error       string            `json:"error,omitempty"`
	Message     string            `json:"message,omitempty"`
}

func (t *getAvailabilityTool) Execute(ctx context.Context, args json.RawMessage, avail *domain.AvailabilityContext) (string, error) {
	var in getAvailabilityArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
	}

	date := in.Date
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	minDuration := in.MinDuration
	if minDuration <= 0 {
		minDuration = defaultMinDuration
	}

	// Absence of calendar data is a normal, representable outcome.
	if avail == nil || avail.Intervals == nil {
		return marshal(availabilityResult{
			Error:     "Calendar data not available",
			Message:   "Please ensure calendar permissions are granted",
			Date:      date,
			Intervals: []domain.Interval{},
		})
	}

	filtered := make([]domain.Interval, 0, len(avail.Intervals))
	for _, block := range avail.Intervals {
		if block.Minutes >= minDuration {
			filtered = append(filtered, block)
		}
	}

	resultDate := avail.DayISO
	if resultDate == "" {
		resultDate = date
	}
	tz := avail.TZ
	if tz == "" {
		tz = "local"
	}

	return marshal(availabilityResult{
		Date:        resultDate,
		Timezone:    tz,
		TZOffset:    avail.TZOffset,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Intervals:   filtered,
		Source:      "client_calendar",
	})
}

// checkTimeSlotTool verifies whether a specific HH:MM range fits entirely
// within some free interval.
type checkTimeSlotTool struct{}

func (t *checkTimeSlotTool) Name() string { return "check_time_slot" }

func (t *checkTimeSlotTool) Description() string {
	return "Check if a specific time slot is available in the user's calendar"
}

func (t *checkTimeSlotTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"start_time": {
				"type": "string",
				"description": "Start time in HH:MM format (24-hour)"
			},
			"end_time": {
				"type": "string",
				"description": "End time in HH:MM format (24-hour)"
			},
			"date": {
				"type": "string",
				"description": "Date to check (YYYY-MM-DD format). Defaults to today."
			}
		},
		"required": ["start_time", "end_time"]
	}`)
}

type checkTimeSlotArgs struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Date      string `json:"date,omitempty"`
}

type timeSlotResult struct {
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Available       bool   `json:"available"`
	CheckedAt       string `json:"checked_at,omitempty"`
	Source          string `json:"source,omitempty"`
	Reason          string `json:"reason,omitempty"`
	Error           string `json:"error,omitempty"`
}

func (t *checkTimeSlotTool) Execute(ctx context.Context, args json.RawMessage, avail *domain.AvailabilityContext) (string, error) {
	var in checkTimeSlotArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	date := in.Date
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	startMinutes, err := parseClock(in.StartTime)
	if err != nil {
		return "", fmt.Errorf("start_time: %w", err)
	}
	endMinutes, err := parseClock(in.EndTime)
	if err != nil {
		return "", fmt.Errorf("end_time: %w", err)
	}

	duration := endMinutes - startMinutes
	if duration <= 0 {
		// Rejected before consulting any context.
		return marshal(timeSlotResult{
			Date:      date,
			StartTime: in.StartTime,
			EndTime:   in.EndTime,
			Available: false,
			Reason:    "Invalid time range",
		})
	}

	if avail == nil || avail.Intervals == nil {
		return marshal(timeSlotResult{
			Date:            date,
			StartTime:       in.StartTime,
			EndTime:         in.EndTime,
			DurationMinutes: duration,
			Available:       false,
			Error:           "Calendar data not available",
			Reason:          "Please ensure calendar permissions are granted",
		})
	}

	available := false
	for _, block := range avail.Intervals {
		blockStart, err := parseClock(block.Start)
		if err != nil {
			continue
		}
		blockEnd, err := parseClock(block.End)
		if err != nil {
			continue
		}
		// Closed-open containment at minute granularity.
		if startMinutes >= blockStart && endMinutes <= blockEnd {
			available = true
			break
		}
	}

	result := timeSlotResult{
		Date:            date,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		DurationMinutes: duration,
		Available:       available,
		CheckedAt:       time.Now().UTC().Format(time.RFC3339),
		Source:          "client_calendar",
	}
	if !available {
		result.Reason = "Time slot conflicts with calendar events or outside free blocks"
	}
	return marshal(result)
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return hour*60 + minute, nil
}

func marshal(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
