package appointments

import "errors"

var (
	// ErrNotFound indicates the referenced appointment does not exist.
	ErrNotFound = errors.New("appointments: not found")

	// ErrSlotUnavailable is the explicit booking rejection: the availability
	// check said no. Surfaced to the caller as a definite refusal, never a
	// transient failure.
	ErrSlotUnavailable = errors.New("appointments: slot unavailable")

	// ErrSlotTaken indicates the conditional slot-lock write lost a race with
	// a concurrent booking for the same staff member and start time.
	ErrSlotTaken = errors.New("appointments: slot already taken")

	// ErrInvalidAppointment indicates a document that fails basic validation.
	ErrInvalidAppointment = errors.New("appointments: invalid appointment")
)
