package schedule

import (
	"sort"
	"time"

	"github.com/glowdesk/glowdesk-api/internal/timeutil"
	"github.com/glowdesk/glowdesk-api/pkg/logging"
)

// Resolver computes the ordered working sub-intervals for a schedule on a
// given date. It is the single place working-hours semantics live; every
// caller (availability checks, slot generation, resource schedules) goes
// through it.
type Resolver struct {
	logger *logging.Logger
}

// NewResolver creates a Resolver.
func NewResolver(logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{logger: logger}
}

// WorkingIntervals returns the disjoint, start-ordered working sub-intervals
// for the date. An empty slice means the staff member does not work that day.
//
// A nil schedule, or one with IsScheduled unset, falls back to the default
// 09:00-18:00 window with no breaks.
func (r *Resolver) WorkingIntervals(sched *Weekly, date time.Time) []timeutil.Interval {
	if sched == nil || !sched.IsScheduled {
		return r.defaultDay(date)
	}

	if !r.withinValidity(sched, date) {
		return nil
	}

	day, ok := sched.DayFor(date)
	if !ok || !day.IsWorking {
		return nil
	}

	full, err := timeutil.IntervalAt(date, day.Start, day.End)
	if err != nil {
		// A malformed day entry behaves like a missing one rather than
		// poisoning the whole schedule.
		r.logger.Warn("unparseable day schedule, treating as non-working",
			"staff_id", sched.StaffID,
			"weekday", WeekdayKey(date.Weekday()),
			"error", err,
		)
		return nil
	}

	return subtractBreaks(full, day.Breaks, date, r.logger, sched.StaffID)
}

func (r *Resolver) defaultDay(date time.Time) []timeutil.Interval {
	iv, err := timeutil.IntervalAt(date, DefaultDayStart, DefaultDayEnd)
	if err != nil {
		return nil
	}
	return []timeutil.Interval{iv}
}

func (r *Resolver) withinValidity(sched *Weekly, date time.Time) bool {
	dayStart, _ := timeutil.DayBounds(date)
	if sched.ScheduleStartDate != "" {
		from, err := timeutil.ParseDate(sched.ScheduleStartDate, date.Location())
		if err == nil && dayStart.Before(from) {
			return false
		}
	}
	if sched.ScheduledUntil != "" {
		until, err := timeutil.ParseDate(sched.ScheduledUntil, date.Location())
		if err == nil && dayStart.After(until) {
			return false
		}
	}
	return true
}

// subtractBreaks splits the full working window around each break, dropping
// any fragment a break fully consumes. Breaks are applied in start order.
func subtractBreaks(full timeutil.Interval, breaks []BreakWindow, date time.Time, logger *logging.Logger, staffID string) []timeutil.Interval {
	intervals := []timeutil.Interval{full}
	if len(breaks) == 0 {
		return intervals
	}

	parsed := make([]timeutil.Interval, 0, len(breaks))
	for _, b := range breaks {
		iv, err := timeutil.IntervalAt(date, b.Start, b.End)
		if err != nil {
			logger.Warn("skipping unparseable break window",
				"staff_id", staffID, "start", b.Start, "end", b.End, "error", err)
			continue
		}
		parsed = append(parsed, iv)
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].Start.Before(parsed[j].Start) })

	for _, brk := range parsed {
		next := intervals[:0:0]
		for _, iv := range intervals {
			if !iv.Overlaps(brk) {
				next = append(next, iv)
				continue
			}
			if brk.Start.After(iv.Start) {
				next = append(next, timeutil.Interval{Start: iv.Start, End: brk.Start})
			}
			if brk.End.Before(iv.End) {
				next = append(next, timeutil.Interval{Start: brk.End, End: iv.End})
			}
		}
		intervals = next
	}
	return intervals
}
