// Package branch holds per-branch operating configuration: display name,
// timezone, and business hours. A branch with no configured hours is treated
// as always open, so a company can start booking before finishing setup.
package branch

import (
	"time"

	"github.com/glowdesk/glowdesk-api/internal/timeutil"
)

// OpenPeriod is one contiguous open window on a weekday, "HH:MM" bounds.
type OpenPeriod struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// BusinessHours maps lowercase weekday names to their open periods. A day may
// carry several periods (e.g. salons closing over lunch).
type BusinessHours struct {
	Days map[string][]OpenPeriod `json:"days,omitempty"`
}

// HasAnyHours reports whether at least one weekday has a configured period.
func (b BusinessHours) HasAnyHours() bool {
	for _, periods := range b.Days {
		if len(periods) > 0 {
			return true
		}
	}
	return false
}

// PeriodsFor returns the open periods for the weekday of date.
func (b BusinessHours) PeriodsFor(date time.Time) []OpenPeriod {
	if b.Days == nil {
		return nil
	}
	return b.Days[weekdayKey(date.Weekday())]
}

// Settings holds branch-level configuration.
type Settings struct {
	CompanyID string        `json:"companyId"`
	BranchID  string        `json:"branchId"`
	Name      string        `json:"name,omitempty"`
	Timezone  string        `json:"timezone,omitempty"`
	Hours     BusinessHours `json:"hours"`
	UpdatedAt string        `json:"updatedAt,omitempty"`
}

// DefaultSettings returns the configuration used before a branch is set up:
// no hours, meaning always open.
func DefaultSettings(companyID, branchID string) *Settings {
	return &Settings{
		CompanyID: companyID,
		BranchID:  branchID,
		Timezone:  "UTC",
	}
}

// AllowsInterval reports whether the candidate interval falls entirely inside
// one open period on its calendar day. No configured hours at all means open.
func (s *Settings) AllowsInterval(iv timeutil.Interval) bool {
	if s == nil || !s.Hours.HasAnyHours() {
		return true
	}
	for _, period := range s.Hours.PeriodsFor(iv.Start) {
		open, err := timeutil.IntervalAt(iv.Start, period.Open, period.Close)
		if err != nil {
			continue
		}
		if open.Contains(iv) {
			return true
		}
	}
	return false
}

func weekdayKey(d time.Weekday) string {
	switch d {
	case time.Sunday:
		return "sunday"
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	case time.Thursday:
		return "thursday"
	case time.Friday:
		return "friday"
	default:
		return "saturday"
	}
}
