package shift

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	minutesPerDay = 24 * 60

	// Shifts of exactly six and a half hours lose a half-hour break,
	// anything longer than six hours loses a full hour.
	halfBreakShift = 390
	fullBreakAbove = 360
)

// Days are the seven column names in storage order, Sunday first.
var Days = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// DraftColumn returns the draft column name for a published day column.
func DraftColumn(day string) string {
	return "draft_" + day
}

// Shift is a parsed "HH:MM-HH:MM" time range. End is in minutes after
// midnight of the start day, so an overnight shift has End > 1440.
type Shift struct {
	Start int
	End   int
}

// Parse parses a shift string. It returns false for empty or malformed
// input; callers treat those as zero hours and keep the text as entered.
func Parse(s string) (Shift, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Shift{}, false
	}

	startText, endText, found := strings.Cut(s, "-")
	if !found {
		return Shift{}, false
	}

	start, ok := parseClock(strings.TrimSpace(startText))
	if !ok {
		return Shift{}, false
	}
	end, ok := parseClock(strings.TrimSpace(endText))
	if !ok {
		return Shift{}, false
	}

	if end < start {
		end += minutesPerDay
	}

	return Shift{Start: start, End: end}, true
}

// parseClock accepts H:MM or HH:MM in 24-hour time.
func parseClock(s string) (int, bool) {
	hourText, minuteText, found := strings.Cut(s, ":")
	if !found || len(hourText) < 1 || len(hourText) > 2 || len(minuteText) != 2 {
		return 0, false
	}

	hour, err := strconv.Atoi(hourText)
	if err != nil || hour < 0 || hour > 23 || !isDigits(hourText) {
		return 0, false
	}
	minute, err := strconv.Atoi(minuteText)
	if err != nil || minute < 0 || minute > 59 || !isDigits(minuteText) {
		return 0, false
	}

	return hour*60 + minute, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Minutes returns the raw length of the shift before any break.
func (s Shift) Minutes() int {
	return s.End - s.Start
}

// PaidMinutes applies the break deduction to the raw length.
func (s Shift) PaidMinutes() int {
	raw := s.Minutes()

	var paid int
	switch {
	case raw == halfBreakShift:
		paid = raw - 30
	case raw > fullBreakAbove:
		paid = raw - 60
	default:
		paid = raw
	}

	if paid < 0 {
		return 0
	}
	return paid
}

// String formats the shift back into HH:MM-HH:MM.
func (s Shift) String() string {
	end := s.End % minutesPerDay
	return fmt.Sprintf("%02d:%02d-%02d:%02d", s.Start/60, s.Start%60, end/60, end%60)
}

// Hours converts a shift string into paid decimal hours. Malformed input,
// including free text such as "D/O", is zero hours.
func Hours(s string) float64 {
	parsed, ok := Parse(s)
	if !ok {
		return 0
	}
	return float64(parsed.PaidMinutes()) / 60
}

// Total sums the paid hours of a week of shift strings.
func Total(shifts [7]string) float64 {
	var minutes int
	for _, s := range shifts {
		if parsed, ok := Parse(s); ok {
			minutes += parsed.PaidMinutes()
		}
	}
	return float64(minutes) / 60
}
