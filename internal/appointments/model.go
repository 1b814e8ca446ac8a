// Package appointments owns the appointment document model, its DynamoDB
// persistence, the per-staff conflict detector, and the booking service that
// ties availability checks, slot locks, recurrence, and lifecycle events
// together.
package appointments

import (
	"time"

	"github.com/glowdesk/glowdesk-api/internal/timeutil"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusArrived    Status = "arrived"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusArrived, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// PaymentStatus tracks how much of the appointment has been paid. The engine
// carries it as data only; ledger arithmetic lives elsewhere.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPartial  PaymentStatus = "partial"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// ServiceLine is one booked service on an appointment.
type ServiceLine struct {
	Name            string `dynamodbav:"name" json:"name"`
	DurationMinutes int    `dynamodbav:"durationMinutes" json:"durationMinutes"`
	PriceCents      int64  `dynamodbav:"priceCents" json:"priceCents"`
}

// RepeatType enumerates recurrence cadences.
type RepeatType string

const (
	RepeatDaily   RepeatType = "daily"
	RepeatWeekly  RepeatType = "weekly"
	RepeatMonthly RepeatType = "monthly"
)

// RepeatRule describes how an appointment recurs. Exactly one of EndDate and
// MaxOccurrences is expected to bound the series; with neither, expansion is
// capped at a hard default so it always terminates.
type RepeatRule struct {
	Type           RepeatType `dynamodbav:"type" json:"type"`
	Interval       int        `dynamodbav:"interval" json:"interval"`
	EndDate        string     `dynamodbav:"endDate,omitempty" json:"endDate,omitempty"`
	MaxOccurrences int        `dynamodbav:"maxOccurrences,omitempty" json:"maxOccurrences,omitempty"`
	ExcludeDates   []string   `dynamodbav:"excludeDates,omitempty" json:"excludeDates,omitempty"`
}

// ChangeLogEntry records one mutation of an appointment document.
type ChangeLogEntry struct {
	ChangedBy string   `dynamodbav:"changedBy" json:"changedBy"`
	ChangedAt string   `dynamodbav:"changedAt" json:"changedAt"`
	Fields    []string `dynamodbav:"fields,omitempty" json:"fields,omitempty"`
	Note      string   `dynamodbav:"note,omitempty" json:"note,omitempty"`
}

// Appointment is the persisted booking document. Times-of-day are "HH:MM"
// strings anchored on Date ("YYYY-MM-DD"); EndTime is always StartTime plus
// the summed service durations.
type Appointment struct {
	CompanyID     string `dynamodbav:"companyId" json:"companyId"`
	AppointmentID string `dynamodbav:"appointmentId" json:"appointmentId"`
	BranchID      string `dynamodbav:"branchId,omitempty" json:"branchId,omitempty"`
	ClientID      string `dynamodbav:"clientId,omitempty" json:"clientId,omitempty"`
	StaffID       string `dynamodbav:"staffId" json:"staffId"`

	Services []ServiceLine `dynamodbav:"services" json:"services"`

	Date      string `dynamodbav:"date" json:"date"`
	StartTime string `dynamodbav:"startTime" json:"startTime"`
	EndTime   string `dynamodbav:"endTime" json:"endTime"`

	ResourceIDs []string `dynamodbav:"resourceIds,omitempty" json:"resourceIds,omitempty"`

	Status        Status        `dynamodbav:"status" json:"status"`
	PaymentStatus PaymentStatus `dynamodbav:"paymentStatus,omitempty" json:"paymentStatus,omitempty"`

	Repeat        *RepeatRule `dynamodbav:"repeat,omitempty" json:"repeat,omitempty"`
	RepeatGroupID string      `dynamodbav:"repeatGroupId,omitempty" json:"repeatGroupId,omitempty"`

	Notes string `dynamodbav:"notes,omitempty" json:"notes,omitempty"`

	CreatedAt string           `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt string           `dynamodbav:"updatedAt" json:"updatedAt"`
	ChangeLog []ChangeLogEntry `dynamodbav:"changeLog,omitempty" json:"changeLog,omitempty"`

	// Composite query keys, maintained by the repository.
	StaffDayKey string `dynamodbav:"staffDayKey" json:"-"`
	DateKey     string `dynamodbav:"dateKey" json:"-"`
}

// DurationMinutes sums the durations of all service lines.
func (a *Appointment) DurationMinutes() int {
	total := 0
	for _, line := range a.Services {
		total += line.DurationMinutes
	}
	return total
}

// Interval parses the appointment's stored date and times into a concrete
// interval in loc. Returns timeutil.ErrInvalidTime on malformed fields.
func (a *Appointment) Interval(loc *time.Location) (timeutil.Interval, error) {
	date, err := timeutil.ParseDate(a.Date, loc)
	if err != nil {
		return timeutil.Interval{}, err
	}
	return timeutil.IntervalAt(date, a.StartTime, a.EndTime)
}

// HasResource reports whether the appointment references the resource.
func (a *Appointment) HasResource(resourceID string) bool {
	for _, id := range a.ResourceIDs {
		if id == resourceID {
			return true
		}
	}
	return false
}

// AppendChange adds a change-log entry stamped now.
func (a *Appointment) AppendChange(actorID, note string, fields ...string) {
	a.ChangeLog = append(a.ChangeLog, ChangeLogEntry{
		ChangedBy: actorID,
		ChangedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Fields:    fields,
		Note:      note,
	})
}
