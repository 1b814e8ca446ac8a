package appointments

import (
	"context"
	"fmt"

	"github.com/glowdesk/glowdesk-api/internal/timeutil"
	"github.com/glowdesk/glowdesk-api/pkg/logging"
)

// staffDayLister is the slice of Repository the detector needs.
type staffDayLister interface {
	ListForStaffDay(ctx context.Context, companyID, staffID, date string) ([]Appointment, error)
}

// Detector answers whether a proposed interval collides with an existing
// booking for the same staff member.
type Detector struct {
	repo   staffDayLister
	logger *logging.Logger
}

// NewDetector creates a conflict detector over the appointment repository.
func NewDetector(repo staffDayLister, logger *logging.Logger) *Detector {
	if repo == nil {
		panic("appointments: repository cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Detector{repo: repo, logger: logger}
}

// HasConflict reports whether any non-cancelled appointment for the staff
// member overlaps iv on its day. The excluded appointment (edit flows) is
// skipped. Cancelled appointments never block a slot. Stored records whose
// times fail to parse are logged and skipped so one corrupt document cannot
// block an entire day.
func (d *Detector) HasConflict(ctx context.Context, companyID, staffID string, iv timeutil.Interval, excludeAppointmentID string) (bool, error) {
	date := iv.Start.Format(timeutil.DateLayout)
	appts, err := d.repo.ListForStaffDay(ctx, companyID, staffID, date)
	if err != nil {
		return false, fmt.Errorf("appointments: conflict scan failed: %w", err)
	}

	for i := range appts {
		appt := &appts[i]
		if appt.AppointmentID == excludeAppointmentID {
			continue
		}
		if appt.Status == StatusCancelled {
			continue
		}
		stored, perr := appt.Interval(iv.Start.Location())
		if perr != nil {
			d.logger.Warn("skipping appointment with unparseable times in conflict scan",
				"appointment_id", appt.AppointmentID, "error", perr)
			continue
		}
		if stored.Overlaps(iv) {
			return true, nil
		}
	}
	return false, nil
}
