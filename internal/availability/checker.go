// Package availability implements the slot availability decision: the
// ordered gauntlet of business-hours, working-hours, staff-conflict, and
// resource checks that every booking and every generated slot runs through.
package availability

import (
	"context"
	"time"

	"github.com/glowdesk/glowdesk-api/internal/timeutil"
	"github.com/glowdesk/glowdesk-api/pkg/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Policy decides what a failed dependency read means for availability.
type Policy string

const (
	// PolicyPermit treats infrastructure errors as "available" so a flaky
	// dependency cannot freeze the booking calendar.
	PolicyPermit Policy = "permit"
	// PolicyDeny treats infrastructure errors as "unavailable".
	PolicyDeny Policy = "deny"
)

// Reason explains an availability decision.
type Reason string

const (
	ReasonAvailable            Reason = "available"
	ReasonOutsideBusinessHours Reason = "outside_business_hours"
	ReasonOutsideWorkingHours  Reason = "outside_working_hours"
	ReasonStaffConflict        Reason = "staff_conflict"
	ReasonResourceUnavailable  Reason = "resource_unavailable"
	ReasonCheckFailed          Reason = "check_failed"
)

// Request describes one slot to evaluate.
type Request struct {
	CompanyID string
	BranchID  string
	// StaffID may be empty for unassigned bookings; staff-dependent checks
	// are then skipped.
	StaffID  string
	Interval timeutil.Interval
	// ResourceIDs lists equipment or rooms the slot would occupy.
	ResourceIDs []string
	// ExcludeAppointmentID removes one appointment from conflict and
	// resource counting, so an edit never collides with itself.
	ExcludeAppointmentID string
}

// Decision is the outcome of an availability check.
type Decision struct {
	Available bool   `json:"available"`
	Reason    Reason `json:"reason"`
}

// HoursGate answers whether an interval falls inside a branch's configured
// opening hours.
type HoursGate interface {
	AllowsInterval(ctx context.Context, companyID, branchID string, iv timeutil.Interval) (bool, error)
}

// ScheduleSource resolves a staff member's working intervals for a day,
// breaks already subtracted.
type ScheduleSource interface {
	WorkingIntervals(ctx context.Context, companyID, staffID string, date time.Time) ([]timeutil.Interval, error)
}

// ConflictDetector reports whether an interval collides with an existing
// booking for the staff member.
type ConflictDetector interface {
	HasConflict(ctx context.Context, companyID, staffID string, iv timeutil.Interval, excludeAppointmentID string) (bool, error)
}

// ResourceChecker reports whether a resource can absorb one more concurrent
// booking over the interval.
type ResourceChecker interface {
	Available(ctx context.Context, companyID, resourceID string, iv timeutil.Interval, excludeAppointmentID string) (bool, error)
}

// Checker runs the availability gauntlet. Checks are ordered cheapest first
// and short-circuit on the first refusal.
type Checker struct {
	hours     HoursGate
	schedules ScheduleSource
	conflicts ConflictDetector
	resources ResourceChecker
	policy    Policy
	logger    *logging.Logger
	tracer    trace.Tracer
	metrics   *Metrics
}

// NewChecker wires the availability checker. Any gate may be nil, in which
// case its check is skipped; policy defaults to PolicyPermit.
func NewChecker(hours HoursGate, schedules ScheduleSource, conflicts ConflictDetector, resources ResourceChecker, policy Policy, logger *logging.Logger, opts ...CheckerOption) *Checker {
	if policy != PolicyDeny {
		policy = PolicyPermit
	}
	if logger == nil {
		logger = logging.Default()
	}
	c := &Checker{
		hours:     hours,
		schedules: schedules,
		conflicts: conflicts,
		resources: resources,
		policy:    policy,
		logger:    logger,
		tracer:    noop.NewTracerProvider().Tracer("availability"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckerOption customizes a Checker.
type CheckerOption func(*Checker)

// WithTracer attaches an OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) CheckerOption {
	return func(c *Checker) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *Metrics) CheckerOption {
	return func(c *Checker) { c.metrics = m }
}

// onError converts a dependency failure into a decision per the configured
// policy. The error itself is logged, never surfaced as availability truth.
func (c *Checker) onError(check string, req Request, err error) Decision {
	c.logger.Error("availability check failed",
		"check", check,
		"company_id", req.CompanyID,
		"staff_id", req.StaffID,
		"policy", string(c.policy),
		"error", err,
	)
	c.metrics.RecordCheckError(check)
	if c.policy == PolicyDeny {
		return Decision{Available: false, Reason: ReasonCheckFailed}
	}
	return Decision{Available: true, Reason: ReasonAvailable}
}

// CheckAvailability evaluates a slot request. It never returns an error:
// dependency failures resolve through the configured Policy, so callers
// always get a definite yes or no.
func (c *Checker) CheckAvailability(ctx context.Context, req Request) Decision {
	ctx, span := c.tracer.Start(ctx, "availability.Check", trace.WithAttributes(
		attribute.String("company_id", req.CompanyID),
		attribute.String("staff_id", req.StaffID),
	))
	defer span.End()

	decision := c.check(ctx, req)
	span.SetAttributes(
		attribute.Bool("available", decision.Available),
		attribute.String("reason", string(decision.Reason)),
	)
	c.metrics.RecordDecision(decision)
	return decision
}

func (c *Checker) check(ctx context.Context, req Request) Decision {
	iv := req.Interval

	if c.hours != nil && req.BranchID != "" {
		open, err := c.hours.AllowsInterval(ctx, req.CompanyID, req.BranchID, iv)
		if err != nil {
			return c.onError("business_hours", req, err)
		}
		if !open {
			return Decision{Available: false, Reason: ReasonOutsideBusinessHours}
		}
	}

	// Unassigned bookings skip the staff-dependent checks entirely.
	if req.StaffID != "" {
		if c.schedules != nil {
			day, _ := timeutil.DayBounds(iv.Start)
			working, err := c.schedules.WorkingIntervals(ctx, req.CompanyID, req.StaffID, day)
			if err != nil {
				return c.onError("working_hours", req, err)
			}
			if !intervalWithinAny(iv, working) {
				return Decision{Available: false, Reason: ReasonOutsideWorkingHours}
			}
		}

		if c.conflicts != nil {
			conflict, err := c.conflicts.HasConflict(ctx, req.CompanyID, req.StaffID, iv, req.ExcludeAppointmentID)
			if err != nil {
				return c.onError("staff_conflict", req, err)
			}
			if conflict {
				return Decision{Available: false, Reason: ReasonStaffConflict}
			}
		}
	}

	if c.resources != nil {
		for _, resourceID := range req.ResourceIDs {
			ok, err := c.resources.Available(ctx, req.CompanyID, resourceID, iv, req.ExcludeAppointmentID)
			if err != nil {
				return c.onError("resource", req, err)
			}
			if !ok {
				return Decision{Available: false, Reason: ReasonResourceUnavailable}
			}
		}
	}

	return Decision{Available: true, Reason: ReasonAvailable}
}

// intervalWithinAny reports whether iv fits entirely inside one of the
// working sub-intervals. A slot straddling a break fails even though both
// halves are individually working time.
func intervalWithinAny(iv timeutil.Interval, working []timeutil.Interval) bool {
	for _, w := range working {
		if w.Contains(iv) {
			return true
		}
	}
	return false
}
