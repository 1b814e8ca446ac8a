// Package timeutil provides the interval arithmetic the scheduling engine is
// built on. All intervals are half-open: [Start, End). Touching endpoints do
// not overlap, so a 10:00-10:30 booking and a 10:30-11:00 booking coexist.
package timeutil

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTime indicates a clock string or timestamp that cannot be parsed.
// Callers in the booking flow treat it as "unavailable" rather than surfacing
// it to the UI.
var ErrInvalidTime = errors.New("timeutil: invalid time")

// ClockLayout is the wire format for times-of-day ("14:30").
const ClockLayout = "15:04"

// DateLayout is the wire format for calendar dates ("2026-08-27").
const DateLayout = "2006-01-02"

// Interval is a half-open time range.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval builds an interval from a start and a positive duration in minutes.
func NewInterval(start time.Time, minutes int) (Interval, error) {
	if start.IsZero() {
		return Interval{}, fmt.Errorf("%w: zero start", ErrInvalidTime)
	}
	if minutes <= 0 {
		return Interval{}, fmt.Errorf("%w: non-positive duration %d", ErrInvalidTime, minutes)
	}
	return Interval{Start: start, End: AddMinutes(start, minutes)}, nil
}

// Overlaps reports whether two half-open intervals intersect.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains reports whether other lies entirely within iv.
func (iv Interval) Contains(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

// Minutes returns the interval length in whole minutes.
func (iv Interval) Minutes() int {
	return int(iv.End.Sub(iv.Start) / time.Minute)
}

func (iv Interval) String() string {
	return iv.Start.Format(ClockLayout) + "-" + iv.End.Format(ClockLayout)
}

// AddMinutes shifts a timestamp forward by the given number of minutes.
func AddMinutes(t time.Time, minutes int) time.Time {
	return t.Add(time.Duration(minutes) * time.Minute)
}

// DayBounds returns midnight and the following midnight around t, in t's
// location.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// ParseClock parses an "HH:MM" string into hour and minute components.
func ParseClock(s string) (hour, minute int, err error) {
	parsed, perr := time.Parse(ClockLayout, s)
	if perr != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return parsed.Hour(), parsed.Minute(), nil
}

// At anchors an "HH:MM" clock string onto the calendar day of date.
func At(date time.Time, clock string) (time.Time, error) {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location()), nil
}

// ParseDate parses a "YYYY-MM-DD" string in the given location.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	parsed, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return parsed, nil
}

// IntervalAt builds an interval on date from "HH:MM" start and end strings.
// End must be strictly after start.
func IntervalAt(date time.Time, startClock, endClock string) (Interval, error) {
	start, err := At(date, startClock)
	if err != nil {
		return Interval{}, err
	}
	end, err := At(date, endClock)
	if err != nil {
		return Interval{}, err
	}
	if !end.After(start) {
		return Interval{}, fmt.Errorf("%w: %q is not after %q", ErrInvalidTime, endClock, startClock)
	}
	return Interval{Start: start, End: end}, nil
}
