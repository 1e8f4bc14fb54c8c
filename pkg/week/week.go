package week

import (
	"fmt"
	"math"
	"time"
)

// KeyLayout is the serialized form of a week start (week_starting_date).
const KeyLayout = "2006-01-02"

const (
	day          = 24 * time.Hour
	weeksPerYear = 53
)

// Date strips the time of day and zone from t, keeping the civil date as
// seen in t's own location. The result is midnight UTC of that date.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartOf returns the Sunday that begins t's calendar week.
func StartOf(t time.Time) time.Time {
	d := Date(t)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// Key serializes the week containing t into its storage key.
func Key(t time.Time) string {
	return StartOf(t).Format(KeyLayout)
}

// ParseKey parses a YYYY-MM-DD date and returns the start of its week.
// Any day of the week is accepted.
func ParseKey(s string) (time.Time, error) {
	d, err := time.Parse(KeyLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid week date %q: %w", s, err)
	}
	return StartOf(d), nil
}

// Resolver answers "which week is it" questions against the wall clock of
// one location. Nothing is cached: every call reads Now.
type Resolver struct {
	location   *time.Location
	anchor     time.Time
	anchorWeek int
	now        func() time.Time
}

// NewResolver creates a resolver. anchorDate falls in operational week
// anchorWeek; all other week numbers are counted from it.
func NewResolver(location *time.Location, anchorDate time.Time, anchorWeek int) *Resolver {
	if location == nil {
		location = time.UTC
	}
	return &Resolver{
		location:   location,
		anchor:     StartOf(anchorDate),
		anchorWeek: anchorWeek,
		now:        time.Now,
	}
}

// WithClock returns a copy of the resolver reading time from now.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	clone := *r
	clone.now = now
	return &clone
}

// Location returns the zone the resolver reads the wall clock in.
func (r *Resolver) Location() *time.Location {
	return r.location
}

// Today returns the current civil date in the resolver's location.
func (r *Resolver) Today() time.Time {
	return Date(r.now().In(r.location))
}

// Current returns the start of the current week.
func (r *Resolver) Current() time.Time {
	return StartOf(r.Today())
}

// Next returns the start of the week after the current one.
func (r *Resolver) Next() time.Time {
	return r.Current().AddDate(0, 0, 7)
}

// IsCurrent reports whether d falls in the current week.
func (r *Resolver) IsCurrent(d time.Time) bool {
	return StartOf(d).Equal(r.Current())
}

// Number returns the display week number for d, in the range 1..53.
// It carries no storage meaning.
func (r *Resolver) Number(d time.Time) int {
	days := StartOf(d).Sub(r.anchor) / day
	weeksDiff := int(math.Round(float64(days) / 7))
	return wrap(r.anchorWeek + weeksDiff)
}

func wrap(n int) int {
	return ((n-1)%weeksPerYear+weeksPerYear)%weeksPerYear + 1
}

// TodayIndex returns today's column (0 = Sunday) when weekStart is the
// current week, and -1 otherwise.
func (r *Resolver) TodayIndex(weekStart time.Time) int {
	today := r.Today()
	if !StartOf(weekStart).Equal(StartOf(today)) {
		return -1
	}
	return int(today.Weekday())
}

// DayLabels returns the seven "2-Jan" column headings of a week.
func DayLabels(weekStart time.Time) [7]string {
	var labels [7]string
	start := StartOf(weekStart)
	for i := range labels {
		labels[i] = start.AddDate(0, 0, i).Format("2-Jan")
	}
	return labels
}
