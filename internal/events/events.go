// Package events defines the booking lifecycle event envelope and the
// publisher that puts events on the queue for downstream consumers
// (notifications, analytics).
package events

// Event types carried on the booking events queue. Versioned so consumers
// can evolve independently of the API.
const (
	TypeAppointmentCreated   = "appointment.created.v1"
	TypeAppointmentUpdated   = "appointment.updated.v1"
	TypeAppointmentCancelled = "appointment.cancelled.v1"
	TypeSeriesCreated        = "appointment.series_created.v1"
)

// Envelope wraps every published event.
type Envelope struct {
	Type       string `json:"type"`
	OccurredAt string `json:"occurredAt"`
	CompanyID  string `json:"companyId"`
	Payload    any    `json:"payload"`
}

// AppointmentPayload is the body of single-appointment events.
type AppointmentPayload struct {
	AppointmentID string `json:"appointmentId"`
	BranchID      string `json:"branchId,omitempty"`
	ClientID      string `json:"clientId,omitempty"`
	StaffID       string `json:"staffId"`
	Date          string `json:"date"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	Status        string `json:"status"`
}

// SeriesPayload is the body of series-creation events.
type SeriesPayload struct {
	RepeatGroupID   string `json:"repeatGroupId"`
	OriginalID      string `json:"originalId"`
	OccurrenceCount int    `json:"occurrenceCount"`
}
