package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/glowdesk/glowdesk-api/internal/availability"
	"github.com/glowdesk/glowdesk-api/internal/events"
	"github.com/glowdesk/glowdesk-api/internal/timeutil"
	"github.com/glowdesk/glowdesk-api/pkg/logging"
	"github.com/google/uuid"
)

// AvailabilityChecker is the slot decision the service consults before any
// write that places an appointment in time.
type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, req availability.Request) availability.Decision
}

// RecurrenceExpander turns an appointment carrying a repeat rule into a
// persisted series. Returns the number of additional occurrences created.
type RecurrenceExpander interface {
	ExpandSeries(ctx context.Context, original *Appointment, actorID string) (int, error)
}

// EventPublisher emits booking lifecycle events. Publishing is best-effort:
// failures are logged, never surfaced to the caller.
type EventPublisher interface {
	Publish(ctx context.Context, companyID, eventType string, payload any) error
}

// ChangeArchiver snapshots mutated appointment documents to long-term
// storage. Best-effort, like event publishing.
type ChangeArchiver interface {
	ArchiveChange(ctx context.Context, companyID, date, appointmentID string, doc any) error
}

// Service owns the appointment lifecycle: create, edit, status transitions,
// cancellation. Every write that moves an appointment in time runs the
// availability check first and claims the slot lock in the same transaction
// as the document write.
type Service struct {
	repo      *Repository
	checker   AvailabilityChecker
	expander  RecurrenceExpander
	publisher EventPublisher
	archiver  ChangeArchiver
	loc       *time.Location
	logger    *logging.Logger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithExpander enables recurring-series creation.
func WithExpander(e RecurrenceExpander) ServiceOption {
	return func(s *Service) { s.expander = e }
}

// WithPublisher enables lifecycle event publishing.
func WithPublisher(p EventPublisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

// WithArchiver enables change-log archiving.
func WithArchiver(a ChangeArchiver) ServiceOption {
	return func(s *Service) { s.archiver = a }
}

// WithLocation sets the timezone appointment times are interpreted in.
func WithLocation(loc *time.Location) ServiceOption {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewService wires the appointment service.
func NewService(repo *Repository, checker AvailabilityChecker, logger *logging.Logger, opts ...ServiceOption) *Service {
	if repo == nil {
		panic("appointments: repository cannot be nil")
	}
	if checker == nil {
		panic("appointments: availability checker cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{repo: repo, checker: checker, loc: time.UTC, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest carries a new booking.
type CreateRequest struct {
	BranchID    string        `json:"branchId,omitempty"`
	ClientID    string        `json:"clientId,omitempty"`
	StaffID     string        `json:"staffId,omitempty"`
	Services    []ServiceLine `json:"services"`
	Date        string        `json:"date"`
	StartTime   string        `json:"startTime"`
	ResourceIDs []string      `json:"resourceIds,omitempty"`
	Notes       string        `json:"notes,omitempty"`
	Repeat      *RepeatRule   `json:"repeat,omitempty"`
}

// CreateResult reports what a create produced.
type CreateResult struct {
	Appointment *Appointment `json:"appointment"`
	// OccurrencesCreated counts additional appointments generated from a
	// repeat rule, not including the original.
	OccurrencesCreated int `json:"occurrencesCreated,omitempty"`
}

func (s *Service) buildInterval(date, startTime string, durationMinutes int) (timeutil.Interval, error) {
	day, err := timeutil.ParseDate(date, s.loc)
	if err != nil {
		return timeutil.Interval{}, fmt.Errorf("%w: bad date %q", ErrInvalidAppointment, date)
	}
	start, err := timeutil.At(day, startTime)
	if err != nil {
		return timeutil.Interval{}, fmt.Errorf("%w: bad start time %q", ErrInvalidAppointment, startTime)
	}
	iv, err := timeutil.NewInterval(start, durationMinutes)
	if err != nil {
		return timeutil.Interval{}, fmt.Errorf("%w: bad duration %d", ErrInvalidAppointment, durationMinutes)
	}
	_, dayEnd := timeutil.DayBounds(start)
	if iv.End.After(dayEnd) || iv.End.Equal(dayEnd) {
		return timeutil.Interval{}, fmt.Errorf("%w: appointment may not cross midnight", ErrInvalidAppointment)
	}
	return iv, nil
}

func validateServices(lines []ServiceLine) (int, error) {
	if len(lines) == 0 {
		return 0, fmt.Errorf("%w: at least one service is required", ErrInvalidAppointment)
	}
	total := 0
	for _, line := range lines {
		if line.DurationMinutes <= 0 {
			return 0, fmt.Errorf("%w: service %q has non-positive duration", ErrInvalidAppointment, line.Name)
		}
		total += line.DurationMinutes
	}
	return total, nil
}

// Create books a new appointment, expanding recurring series when a repeat
// rule is present. Returns ErrSlotUnavailable when the availability check
// refuses and ErrSlotTaken when a concurrent booking wins the slot.
func (s *Service) Create(ctx context.Context, companyID, actorID string, req CreateRequest) (*CreateResult, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: companyID is required", ErrInvalidAppointment)
	}
	duration, err := validateServices(req.Services)
	if err != nil {
		return nil, err
	}
	iv, err := s.buildInterval(req.Date, req.StartTime, duration)
	if err != nil {
		return nil, err
	}

	decision := s.checker.CheckAvailability(ctx, availability.Request{
		CompanyID:   companyID,
		BranchID:    req.BranchID,
		StaffID:     req.StaffID,
		Interval:    iv,
		ResourceIDs: req.ResourceIDs,
	})
	if !decision.Available {
		return nil, fmt.Errorf("%w: %s", ErrSlotUnavailable, decision.Reason)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	appt := &Appointment{
		CompanyID:     companyID,
		AppointmentID: uuid.NewString(),
		BranchID:      req.BranchID,
		ClientID:      req.ClientID,
		StaffID:       req.StaffID,
		Services:      req.Services,
		Date:          req.Date,
		StartTime:     iv.Start.Format(timeutil.ClockLayout),
		EndTime:       iv.End.Format(timeutil.ClockLayout),
		ResourceIDs:   req.ResourceIDs,
		Status:        StatusConfirmed,
		PaymentStatus: PaymentUnpaid,
		Repeat:        req.Repeat,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	appt.AppendChange(actorID, "Appointment created.")

	result := &CreateResult{Appointment: appt}

	if req.Repeat != nil && s.expander != nil {
		created, err := s.expander.ExpandSeries(ctx, appt, actorID)
		if err != nil {
			return nil, err
		}
		result.OccurrencesCreated = created
		s.emit(ctx, companyID, events.TypeSeriesCreated, events.SeriesPayload{
			RepeatGroupID:   appt.RepeatGroupID,
			OriginalID:      appt.AppointmentID,
			OccurrenceCount: created + 1,
		})
	} else {
		if err := s.repo.Create(ctx, appt); err != nil {
			return nil, err
		}
	}

	s.emit(ctx, companyID, events.TypeAppointmentCreated, payloadFor(appt))
	s.archive(ctx, appt)

	s.logger.Info("appointment created",
		"company_id", companyID,
		"appointment_id", appt.AppointmentID,
		"staff_id", appt.StaffID,
		"date", appt.Date,
		"occurrences", result.OccurrencesCreated,
	)
	return result, nil
}

// Get fetches one appointment.
func (s *Service) Get(ctx context.Context, companyID, appointmentID string) (*Appointment, error) {
	return s.repo.Get(ctx, companyID, appointmentID)
}

// ListForDay returns a company's appointments on one calendar day.
func (s *Service) ListForDay(ctx context.Context, companyID, date string) ([]Appointment, error) {
	if _, err := timeutil.ParseDate(date, s.loc); err != nil {
		return nil, fmt.Errorf("%w: bad date %q", ErrInvalidAppointment, date)
	}
	return s.repo.ListForDay(ctx, companyID, date)
}

// UpdateRequest carries a partial edit. Nil fields are left unchanged.
type UpdateRequest struct {
	StaffID       *string        `json:"staffId,omitempty"`
	Services      *[]ServiceLine `json:"services,omitempty"`
	Date          *string        `json:"date,omitempty"`
	StartTime     *string        `json:"startTime,omitempty"`
	ResourceIDs   *[]string      `json:"resourceIds,omitempty"`
	Notes         *string        `json:"notes,omitempty"`
	PaymentStatus *PaymentStatus `json:"paymentStatus,omitempty"`
}

// Update applies a partial edit. The availability check reruns only when the
// edit moves the appointment in time or changes who or what it occupies;
// note-only edits never fail on a full calendar.
func (s *Service) Update(ctx context.Context, companyID, appointmentID, actorID string, req UpdateRequest) (*Appointment, error) {
	appt, err := s.repo.Get(ctx, companyID, appointmentID)
	if err != nil {
		return nil, err
	}
	previousLockKey := lockKeyFor(appt)

	var changed []string
	timingChanged := false

	if req.StaffID != nil && *req.StaffID != appt.StaffID {
		appt.StaffID = *req.StaffID
		changed = append(changed, "staffId")
		timingChanged = true
	}
	if req.Services != nil {
		appt.Services = *req.Services
		changed = append(changed, "services")
		timingChanged = true
	}
	if req.Date != nil && *req.Date != appt.Date {
		appt.Date = *req.Date
		changed = append(changed, "date")
		timingChanged = true
	}
	if req.StartTime != nil && *req.StartTime != appt.StartTime {
		appt.StartTime = *req.StartTime
		changed = append(changed, "startTime")
		timingChanged = true
	}
	if req.ResourceIDs != nil {
		appt.ResourceIDs = *req.ResourceIDs
		changed = append(changed, "resourceIds")
		timingChanged = true
	}
	if req.Notes != nil && *req.Notes != appt.Notes {
		appt.Notes = *req.Notes
		changed = append(changed, "notes")
	}
	if req.PaymentStatus != nil && *req.PaymentStatus != appt.PaymentStatus {
		appt.PaymentStatus = *req.PaymentStatus
		changed = append(changed, "paymentStatus")
	}

	if len(changed) == 0 {
		return appt, nil
	}

	duration, err := validateServices(appt.Services)
	if err != nil {
		return nil, err
	}
	iv, err := s.buildInterval(appt.Date, appt.StartTime, duration)
	if err != nil {
		return nil, err
	}
	appt.EndTime = iv.End.Format(timeutil.ClockLayout)

	if timingChanged {
		decision := s.checker.CheckAvailability(ctx, availability.Request{
			CompanyID:            companyID,
			BranchID:             appt.BranchID,
			StaffID:              appt.StaffID,
			Interval:             iv,
			ResourceIDs:          appt.ResourceIDs,
			ExcludeAppointmentID: appt.AppointmentID,
		})
		if !decision.Available {
			return nil, fmt.Errorf("%w: %s", ErrSlotUnavailable, decision.Reason)
		}
	}

	appt.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	appt.AppendChange(actorID, "", changed...)

	if timingChanged {
		err = s.repo.Reschedule(ctx, appt, previousLockKey)
	} else {
		err = s.repo.Put(ctx, appt)
	}
	if err != nil {
		return nil, err
	}

	s.emit(ctx, companyID, events.TypeAppointmentUpdated, payloadFor(appt))
	s.archive(ctx, appt)

	s.logger.Info("appointment updated",
		"company_id", companyID,
		"appointment_id", appointmentID,
		"fields", changed,
	)
	return appt, nil
}

// UpdateStatus transitions an appointment's lifecycle state. Cancelling
// releases the slot lock so the time becomes bookable again; moving back out
// of cancelled re-runs the availability check and reclaims the lock, since
// the slot may have been taken in the meantime.
func (s *Service) UpdateStatus(ctx context.Context, companyID, appointmentID, actorID string, status Status) (*Appointment, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidAppointment, status)
	}
	appt, err := s.repo.Get(ctx, companyID, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status == status {
		return appt, nil
	}
	reactivating := appt.Status == StatusCancelled && status != StatusCancelled

	if reactivating {
		iv, ierr := appt.Interval(s.loc)
		if ierr != nil {
			return nil, fmt.Errorf("%w: stored times are invalid", ErrInvalidAppointment)
		}
		decision := s.checker.CheckAvailability(ctx, availability.Request{
			CompanyID:            companyID,
			BranchID:             appt.BranchID,
			StaffID:              appt.StaffID,
			Interval:             iv,
			ResourceIDs:          appt.ResourceIDs,
			ExcludeAppointmentID: appt.AppointmentID,
		})
		if !decision.Available {
			return nil, fmt.Errorf("%w: %s", ErrSlotUnavailable, decision.Reason)
		}
	}

	appt.Status = status
	appt.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	appt.AppendChange(actorID, "", "status")

	if reactivating {
		// Reschedule with no previous lock claims the slot conditionally.
		if err := s.repo.Reschedule(ctx, appt, ""); err != nil {
			return nil, err
		}
	} else if err := s.repo.Put(ctx, appt); err != nil {
		return nil, err
	}

	eventType := events.TypeAppointmentUpdated
	if status == StatusCancelled {
		eventType = events.TypeAppointmentCancelled
		if err := s.repo.ReleaseLock(ctx, lockKeyFor(appt)); err != nil {
			s.logger.Error("failed to release slot lock on cancel",
				"company_id", companyID, "appointment_id", appointmentID, "error", err)
		}
	}

	s.emit(ctx, companyID, eventType, payloadFor(appt))
	s.archive(ctx, appt)

	s.logger.Info("appointment status changed",
		"company_id", companyID,
		"appointment_id", appointmentID,
		"status", string(status),
	)
	return appt, nil
}

// Cancel is shorthand for a cancellation status transition.
func (s *Service) Cancel(ctx context.Context, companyID, appointmentID, actorID string) (*Appointment, error) {
	return s.UpdateStatus(ctx, companyID, appointmentID, actorID, StatusCancelled)
}

// Delete hard-removes an appointment and its slot lock.
func (s *Service) Delete(ctx context.Context, companyID, appointmentID string) error {
	appt, err := s.repo.Get(ctx, companyID, appointmentID)
	if err != nil {
		return err
	}
	lockKey := ""
	if appt.Status != StatusCancelled {
		lockKey = lockKeyFor(appt)
	}
	if err := s.repo.Delete(ctx, companyID, appointmentID, lockKey); err != nil {
		return err
	}
	s.logger.Info("appointment deleted", "company_id", companyID, "appointment_id", appointmentID)
	return nil
}

func (s *Service) emit(ctx context.Context, companyID, eventType string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, companyID, eventType, payload); err != nil {
		s.logger.Error("failed to publish event", "type", eventType, "company_id", companyID, "error", err)
	}
}

func (s *Service) archive(ctx context.Context, appt *Appointment) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.ArchiveChange(ctx, appt.CompanyID, appt.Date, appt.AppointmentID, appt); err != nil {
		s.logger.Error("failed to archive appointment change",
			"company_id", appt.CompanyID, "appointment_id", appt.AppointmentID, "error", err)
	}
}

func lockKeyFor(appt *Appointment) string {
	if appt.StaffID == "" {
		return ""
	}
	return SlotLockKey(appt.CompanyID, appt.StaffID, appt.Date, appt.StartTime)
}

func payloadFor(appt *Appointment) events.AppointmentPayload {
	return events.AppointmentPayload{
		AppointmentID: appt.AppointmentID,
		BranchID:      appt.BranchID,
		ClientID:      appt.ClientID,
		StaffID:       appt.StaffID,
		Date:          appt.Date,
		StartTime:     appt.StartTime,
		EndTime:       appt.EndTime,
		Status:        string(appt.Status),
	}
}
