// Package schedule owns staff working-hours schedules: the weekly shape
// persisted per staff member and the resolver that turns a schedule plus a
// calendar date into the day's bookable sub-intervals.
package schedule

import (
	"strings"
	"time"
)

// Default working window applied when a staff member has no usable schedule.
// Missing configuration must never block the booking UI outright.
const (
	DefaultDayStart = "09:00"
	DefaultDayEnd   = "18:00"
)

// BreakWindow is a pause inside a working day, "HH:MM" bounds.
type BreakWindow struct {
	Start string `dynamodbav:"start" json:"start"`
	End   string `dynamodbav:"end" json:"end"`
}

// DaySchedule describes one weekday of a weekly schedule.
type DaySchedule struct {
	IsWorking bool          `dynamodbav:"isWorking" json:"isWorking"`
	Start     string        `dynamodbav:"start,omitempty" json:"start,omitempty"`
	End       string        `dynamodbav:"end,omitempty" json:"end,omitempty"`
	Breaks    []BreakWindow `dynamodbav:"breaks,omitempty" json:"breaks,omitempty"`
}

// Weekly is a staff member's (or resource's) working-hours schedule. Days is
// keyed by lowercase English weekday name ("monday").
type Weekly struct {
	CompanyID   string                 `dynamodbav:"companyId" json:"companyId"`
	StaffID     string                 `dynamodbav:"staffId" json:"staffId"`
	IsScheduled bool                   `dynamodbav:"isScheduled" json:"isScheduled"`
	Days        map[string]DaySchedule `dynamodbav:"days,omitempty" json:"days,omitempty"`
	// Optional validity window, "YYYY-MM-DD". Outside it the staff member has
	// no working hours at all.
	ScheduleStartDate string `dynamodbav:"scheduleStartDate,omitempty" json:"scheduleStartDate,omitempty"`
	ScheduledUntil    string `dynamodbav:"scheduledUntil,omitempty" json:"scheduledUntil,omitempty"`
	UpdatedAt         string `dynamodbav:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// DayFor returns the day schedule for the weekday of date, if configured.
func (w *Weekly) DayFor(date time.Time) (DaySchedule, bool) {
	if w == nil || w.Days == nil {
		return DaySchedule{}, false
	}
	day, ok := w.Days[WeekdayKey(date.Weekday())]
	return day, ok
}

// WeekdayKey maps a time.Weekday to the map key used in Weekly.Days.
func WeekdayKey(d time.Weekday) string {
	return strings.ToLower(d.String())
}
