// Package recurrence expands an appointment carrying a repeat rule into a
// series of occurrences and persists the whole series atomically.
package recurrence

import (
	"time"

	"github.com/glowdesk/glowdesk-api/internal/appointments"
	"github.com/glowdesk/glowdesk-api/internal/timeutil"
)

// DefaultMaxOccurrences caps a series (original included) when the rule
// itself does not bound it. Fifty appointments and their slot locks are
// exactly DynamoDB's 100-item transaction limit.
const DefaultMaxOccurrences = 50

// NextDates computes the occurrence dates following start for the rule. The
// original counts as occurrence one, so at most cap-1 dates come back.
// Excluded dates are dropped but still consume their occurrence slot, so an
// exclusion shortens the series rather than shifting it.
//
// Monthly cadence uses calendar-month arithmetic: booking the 31st rolls
// into early the following month on shorter months, matching time.AddDate.
func NextDates(start time.Time, rule appointments.RepeatRule, limit int) []time.Time {
	if limit <= 0 || limit > DefaultMaxOccurrences {
		limit = DefaultMaxOccurrences
	}
	if rule.MaxOccurrences > 0 && rule.MaxOccurrences < limit {
		limit = rule.MaxOccurrences
	}

	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}

	var until time.Time
	if rule.EndDate != "" {
		if parsed, err := timeutil.ParseDate(rule.EndDate, start.Location()); err == nil {
			until = parsed
		}
	}

	excluded := make(map[string]bool, len(rule.ExcludeDates))
	for _, d := range rule.ExcludeDates {
		excluded[d] = true
	}

	var dates []time.Time
	current := start
	for n := 2; n <= limit; n++ {
		switch rule.Type {
		case appointments.RepeatDaily:
			current = current.AddDate(0, 0, interval)
		case appointments.RepeatWeekly:
			current = current.AddDate(0, 0, 7*interval)
		case appointments.RepeatMonthly:
			current = current.AddDate(0, interval, 0)
		default:
			return dates
		}
		if !until.IsZero() && current.After(until) {
			return dates
		}
		if excluded[current.Format(timeutil.DateLayout)] {
			continue
		}
		dates = append(dates, current)
	}
	return dates
}
