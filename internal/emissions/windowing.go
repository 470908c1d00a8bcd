package emissions

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidDate is returned for range bounds that are neither a calendar
// date nor an RFC3339 instant.
var ErrInvalidDate = errors.New("dates must be YYYY-MM-DD or RFC3339")

// Unit is the calendar granularity of a bucket.
type Unit string

const (
	Day  Unit = "day"
	Hour Unit = "hour"
)

// ParseUnit accepts "day", "hour" or an empty string (day).
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case "", Day:
		return Day, nil
	case Hour:
		return Hour, nil
	default:
		return "", fmt.Errorf("unknown granularity %q (want day or hour)", s)
	}
}

// Length returns the wall-clock length of one unit.
func (u Unit) Length() time.Duration {
	if u == Hour {
		return time.Hour
	}
	return 24 * time.Hour
}

// PerDay returns how many units fit in one day.
func (u Unit) PerDay() float64 {
	if u == Hour {
		return 24
	}
	return 1
}

// Window is a closed calendar range snapped to unit boundaries. All instants
// are UTC.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Unit  Unit      `json:"unit"`
}

// NewWindow creates a window with start snapped to the beginning of its
// bucket and end snapped to the last nanosecond of its bucket.
func NewWindow(start, end time.Time, unit Unit) Window {
	if unit == "" {
		unit = Day
	}
	return Window{
		Start: SnapToStart(start, unit),
		End:   SnapToEnd(end, unit),
		Unit:  unit,
	}
}

// SnapToStart normalizes a timestamp to the beginning of its bucket in UTC.
func SnapToStart(t time.Time, unit Unit) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(unit.Length())
}

// SnapToEnd normalizes a timestamp to the very end of its bucket in UTC.
func SnapToEnd(t time.Time, unit Unit) time.Time {
	if t.IsZero() {
		return t
	}
	return SnapToStart(t, unit).Add(unit.Length() - time.Nanosecond)
}

// Contains reports whether the bucket holding t lies inside the window.
func (w Window) Contains(t time.Time) bool {
	key := SnapToStart(t, w.Unit)
	return !key.Before(w.Start) && !key.After(w.End)
}

// Subdivide returns every bucket start within the window, ascending.
func (w Window) Subdivide() []time.Time {
	var buckets []time.Time
	if w.Start.IsZero() || w.End.IsZero() {
		return buckets
	}
	for current := w.Start; !current.After(w.End); current = current.Add(w.Unit.Length()) {
		buckets = append(buckets, current)
	}
	return buckets
}

// DayCount returns the number of calendar days in the window.
func (w Window) DayCount() int {
	return int(math.Ceil(w.End.Sub(w.Start).Hours() / 24.0))
}

// GenerateLabel returns a human-readable label for a bucket.
func (u Unit) GenerateLabel(t time.Time) string {
	if u == Hour {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return t.UTC().Format("2006-01-02")
}

// PlanDateRange returns the daily window covering ceil(totalDays) calendar
// days from the plan start date. It reports false when the plan has no
// duration, since no range can be determined.
func PlanDateRange(start time.Time, totalDays float64) (Window, bool) {
	if totalDays <= 0 || start.IsZero() {
		return Window{}, false
	}
	days := int(math.Ceil(totalDays - durationTolerance))
	if days < 1 {
		days = 1
	}
	first := SnapToStart(start, Day)
	last := first.AddDate(0, 0, days-1)
	return NewWindow(first, last, Day), true
}

// ParseInstant accepts a calendar date (UTC midnight) or an RFC3339 instant.
func ParseInstant(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// ParseWindow builds a read filter from optional bounds. It returns nil when
// both are empty. A missing bound leaves that side open. A date-only end
// bound covers the whole day, so an hourly window ending on 2022-01-02
// keeps its last bucket at 23:00.
func ParseWindow(start, end string, unit Unit) (*Window, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	from := time.Time{}
	to := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	var err error
	if start != "" {
		if from, err = ParseInstant(start); err != nil {
			return nil, err
		}
	}
	if end != "" {
		if to, err = ParseInstant(end); err != nil {
			return nil, err
		}
		// A calendar date as end bound includes the whole day at any unit.
		if _, perr := time.Parse(time.DateOnly, end); perr == nil {
			to = SnapToEnd(to, Day)
		}
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: end %s is before start %s", ErrInvalidDate, end, start)
	}
	w := NewWindow(from, to, unit)
	return &w, nil
}
