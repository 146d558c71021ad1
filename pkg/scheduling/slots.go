// Package scheduling turns doctor work hours into bookable 15-minute slots.
package scheduling

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// SlotLength is the fixed appointment granularity.
	SlotLength = 15 * time.Minute

	// ClockLayout formats wall-clock times inside slot labels ("09:00 AM").
	ClockLayout = "03:04 PM"
	// DateLayout is the calendar date format stored on appointments.
	DateLayout = "2006-01-02"

	parseClockLayout = "3:04 PM"
)

var (
	ErrInvalidClock = errors.New("invalid clock time")
	ErrInvalidDate  = errors.New("invalid date")
)

// ParseClock parses a 12-hour wall-clock string such as "9:00 AM" or "09:00 pm".
// The result carries only hour and minute on the zero date.
func ParseClock(value string) (time.Time, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	t, err := time.Parse(parseClockLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	return t, nil
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return t, nil
}

// Slot is one bookable interval.
type Slot struct {
	Start time.Time
	End   time.Time
}

// Label renders the slot the way it is stored on appointments, e.g. "09:00 AM - 09:15 AM".
func (s Slot) Label() string {
	return s.Start.Format(ClockLayout) + " - " + s.End.Format(ClockLayout)
}

// Generate emits consecutive slots starting at start while a whole slot still fits before end.
// A trailing remainder shorter than SlotLength is dropped.
func Generate(start, end time.Time) []Slot {
	var slots []Slot
	for current := start; !current.Add(SlotLength).After(end); current = current.Add(SlotLength) {
		slots = append(slots, Slot{Start: current, End: current.Add(SlotLength)})
	}
	return slots
}

// DayLabels parses the work-hour strings and returns every slot label of the day.
func DayLabels(startClock, endClock string) ([]string, error) {
	start, err := ParseClock(startClock)
	if err != nil {
		return nil, fmt.Errorf("start time: %w", err)
	}
	end, err := ParseClock(endClock)
	if err != nil {
		return nil, fmt.Errorf("end time: %w", err)
	}
	slots := Generate(start, end)
	labels := make([]string, 0, len(slots))
	for _, slot := range slots {
		labels = append(labels, slot.Label())
	}
	return labels, nil
}

// WithoutBooked removes labels that already have an appointment, keeping order.
func WithoutBooked(labels, booked []string) []string {
	if len(booked) == 0 {
		return labels
	}
	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		if _, ok := taken[label]; ok {
			continue
		}
		out = append(out, label)
	}
	return out
}

// WorksOn reports whether the weekday name of date (e.g. "Monday") is in days.
func WorksOn(days []string, date time.Time) bool {
	weekday := date.Weekday().String()
	for _, day := range days {
		if strings.EqualFold(strings.TrimSpace(day), weekday) {
			return true
		}
	}
	return false
}
