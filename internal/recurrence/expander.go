package recurrence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glowdesk/glowdesk-api/internal/appointments"
	"github.com/glowdesk/glowdesk-api/internal/availability"
	"github.com/glowdesk/glowdesk-api/internal/timeutil"
	"github.com/glowdesk/glowdesk-api/pkg/logging"
	"github.com/google/uuid"
)

// SeriesWriter persists a recurring series in one shot. Implemented by the
// appointment repository.
type SeriesWriter interface {
	CreateSeries(ctx context.Context, original *appointments.Appointment, occurrences []appointments.Appointment) error
}

// Expander turns one appointment with a repeat rule into a persisted series.
type Expander struct {
	writer         SeriesWriter
	checker        appointments.AvailabilityChecker
	maxOccurrences int
	revalidate     bool
	loc            *time.Location
	logger         *logging.Logger
}

// ExpanderOption customizes an Expander.
type ExpanderOption func(*Expander)

// WithMaxOccurrences overrides the series cap.
func WithMaxOccurrences(n int) ExpanderOption {
	return func(e *Expander) {
		if n > 0 {
			e.maxOccurrences = n
		}
	}
}

// WithRevalidation makes the expander run the availability check against
// every occurrence and drop the ones that fail. Off by default: occurrences
// inherit the original slot's validation, and the conflict detector treats
// each one individually once booked.
func WithRevalidation(checker appointments.AvailabilityChecker) ExpanderOption {
	return func(e *Expander) {
		e.revalidate = checker != nil
		e.checker = checker
	}
}

// WithLocation sets the timezone occurrence dates are computed in.
func WithLocation(loc *time.Location) ExpanderOption {
	return func(e *Expander) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// NewExpander wires a series expander.
func NewExpander(writer SeriesWriter, logger *logging.Logger, opts ...ExpanderOption) *Expander {
	if writer == nil {
		panic("recurrence: series writer cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	e := &Expander{
		writer:         writer,
		maxOccurrences: DefaultMaxOccurrences,
		loc:            time.UTC,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExpandSeries tags the original with a fresh repeat group, generates its
// occurrences, and persists the whole series atomically. Returns the number
// of additional occurrences written.
func (e *Expander) ExpandSeries(ctx context.Context, original *appointments.Appointment, actorID string) (int, error) {
	if original == nil || original.Repeat == nil {
		return 0, errors.New("recurrence: appointment has no repeat rule")
	}

	start, err := timeutil.ParseDate(original.Date, e.loc)
	if err != nil {
		return 0, fmt.Errorf("recurrence: bad series start date %q: %w", original.Date, err)
	}

	original.RepeatGroupID = uuid.NewString()

	dates := NextDates(start, *original.Repeat, e.maxOccurrences)
	occurrences := make([]appointments.Appointment, 0, len(dates))
	skipped := 0
	for _, date := range dates {
		occ := e.occurrenceOn(original, date, actorID)

		if e.revalidate {
			iv, ierr := occ.Interval(e.loc)
			if ierr != nil {
				return 0, fmt.Errorf("recurrence: bad occurrence times: %w", ierr)
			}
			decision := e.checker.CheckAvailability(ctx, availability.Request{
				CompanyID:   occ.CompanyID,
				BranchID:    occ.BranchID,
				StaffID:     occ.StaffID,
				Interval:    iv,
				ResourceIDs: occ.ResourceIDs,
			})
			if !decision.Available {
				e.logger.Warn("dropping unavailable occurrence from series",
					"company_id", occ.CompanyID,
					"repeat_group_id", original.RepeatGroupID,
					"date", occ.Date,
					"reason", string(decision.Reason),
				)
				skipped++
				continue
			}
		}
		occurrences = append(occurrences, *occ)
	}

	if err := e.writer.CreateSeries(ctx, original, occurrences); err != nil {
		return 0, err
	}

	e.logger.Info("recurring series created",
		"company_id", original.CompanyID,
		"repeat_group_id", original.RepeatGroupID,
		"occurrences", len(occurrences),
		"skipped", skipped,
	)
	return len(occurrences), nil
}

// occurrenceOn copies the original onto another date with a fresh identity.
// Occurrences carry the group ID but not the rule itself, so editing one
// never re-expands the series.
func (e *Expander) occurrenceOn(original *appointments.Appointment, date time.Time, actorID string) *appointments.Appointment {
	occ := *original
	occ.AppointmentID = uuid.NewString()
	occ.Date = date.Format(timeutil.DateLayout)
	occ.Repeat = nil
	occ.RepeatGroupID = original.RepeatGroupID
	occ.ChangeLog = nil
	occ.AppendChange(actorID, "Recurring appointment created.")

	occ.Services = make([]appointments.ServiceLine, len(original.Services))
	copy(occ.Services, original.Services)
	if len(original.ResourceIDs) > 0 {
		occ.ResourceIDs = make([]string, len(original.ResourceIDs))
		copy(occ.ResourceIDs, original.ResourceIDs)
	}
	return &occ
}
