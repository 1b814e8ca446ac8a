package resources

import (
	"context"
	"errors"
	"fmt"

	"github.com/glowdesk/glowdesk-api/internal/schedule"
	"github.com/glowdesk/glowdesk-api/internal/timeutil"
	"github.com/glowdesk/glowdesk-api/pkg/logging"
)

// AppointmentCounter counts existing bookings holding a resource over an
// interval. Implemented by the appointment repository.
type AppointmentCounter interface {
	CountResourceOverlaps(ctx context.Context, companyID, resourceID string, iv timeutil.Interval, excludeAppointmentID string) (int, error)
}

// resourceGetter is the slice of Store the checker needs.
type resourceGetter interface {
	Get(ctx context.Context, companyID, resourceID string) (*Resource, error)
}

// Checker decides whether a resource can take one more concurrent booking.
type Checker struct {
	store    resourceGetter
	counter  AppointmentCounter
	resolver *schedule.Resolver
	logger   *logging.Logger
}

// NewChecker wires a resource availability checker.
func NewChecker(store resourceGetter, counter AppointmentCounter, logger *logging.Logger) *Checker {
	if store == nil {
		panic("resources: store cannot be nil")
	}
	if counter == nil {
		panic("resources: appointment counter cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Checker{store: store, counter: counter, resolver: schedule.NewResolver(logger), logger: logger}
}

// Available reports whether the resource can absorb one more booking over
// iv. An unknown or inactive resource is unavailable. A resource with its
// own schedule is only usable inside those hours. Otherwise the answer is a
// head count against capacity.
func (c *Checker) Available(ctx context.Context, companyID, resourceID string, iv timeutil.Interval, excludeAppointmentID string) (bool, error) {
	res, err := c.store.Get(ctx, companyID, resourceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.logger.Warn("availability requested for unknown resource",
				"company_id", companyID, "resource_id", resourceID)
			return false, nil
		}
		return false, fmt.Errorf("resources: availability lookup failed: %w", err)
	}
	if !res.Active {
		return false, nil
	}

	// Resources without a schedule of their own are usable any time the
	// rest of the checks allow. The 09:00-18:00 default working day applies
	// only to staff, so a missing or disabled schedule means no hours
	// restriction at all.
	if res.Schedule != nil && res.Schedule.IsScheduled {
		day, _ := timeutil.DayBounds(iv.Start)
		working := c.resolver.WorkingIntervals(res.Schedule, day)
		fits := false
		for _, w := range working {
			if w.Contains(iv) {
				fits = true
				break
			}
		}
		if !fits {
			return false, nil
		}
	}

	count, err := c.counter.CountResourceOverlaps(ctx, companyID, resourceID, iv, excludeAppointmentID)
	if err != nil {
		return false, fmt.Errorf("resources: overlap count failed: %w", err)
	}
	return count < res.EffectiveCapacity(), nil
}
