package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/glowdesk/glowdesk-api/internal/timeutil"
	"github.com/glowdesk/glowdesk-api/pkg/logging"
)

const (
	// DefaultGranularityMinutes is the slot step when none is configured.
	DefaultGranularityMinutes = 30
	// minGranularityMinutes floors the step so a misconfigured granularity
	// cannot explode a day into thousands of candidates.
	minGranularityMinutes = 5
)

// TimeSlot is one bookable candidate on the calendar grid.
type TimeSlot struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Available bool   `json:"available"`
	StaffID   string `json:"staffId,omitempty"`
}

// SlotRequest describes a day of slots to generate.
type SlotRequest struct {
	CompanyID       string
	BranchID        string
	StaffID         string
	Date            time.Time
	DurationMinutes int
	ResourceIDs     []string
}

// SlotGenerator walks a staff member's working intervals on a granularity
// grid and marks each candidate with the full availability decision.
type SlotGenerator struct {
	checker     *Checker
	schedules   ScheduleSource
	granularity int
	logger      *logging.Logger
}

// NewSlotGenerator wires a slot generator. granularityMinutes <= 0 selects
// the default.
func NewSlotGenerator(checker *Checker, schedules ScheduleSource, granularityMinutes int, logger *logging.Logger) *SlotGenerator {
	if checker == nil {
		panic("availability: checker cannot be nil")
	}
	if schedules == nil {
		panic("availability: schedule source cannot be nil")
	}
	if granularityMinutes <= 0 {
		granularityMinutes = DefaultGranularityMinutes
	}
	if granularityMinutes < minGranularityMinutes {
		granularityMinutes = minGranularityMinutes
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SlotGenerator{checker: checker, schedules: schedules, granularity: granularityMinutes, logger: logger}
}

// DaySlots generates every candidate slot for the request's day. Candidates
// start on granularity steps inside each working sub-interval; a candidate
// exists only where the full duration fits before the sub-interval ends, so
// slots never straddle a break or spill past end of shift.
func (g *SlotGenerator) DaySlots(ctx context.Context, req SlotRequest) ([]TimeSlot, error) {
	if req.DurationMinutes <= 0 {
		return nil, fmt.Errorf("availability: duration must be positive, got %d", req.DurationMinutes)
	}
	if req.StaffID == "" {
		return nil, fmt.Errorf("availability: staffID is required for slot generation")
	}

	day, _ := timeutil.DayBounds(req.Date)
	working, err := g.schedules.WorkingIntervals(ctx, req.CompanyID, req.StaffID, day)
	if err != nil {
		return nil, fmt.Errorf("availability: failed to resolve working hours: %w", err)
	}

	date := day.Format(timeutil.DateLayout)
	step := time.Duration(g.granularity) * time.Minute
	duration := time.Duration(req.DurationMinutes) * time.Minute

	var slots []TimeSlot
	for _, w := range working {
		for start := w.Start; !start.Add(duration).After(w.End); start = start.Add(step) {
			candidate := timeutil.Interval{Start: start, End: start.Add(duration)}
			decision := g.checker.CheckAvailability(ctx, Request{
				CompanyID:   req.CompanyID,
				BranchID:    req.BranchID,
				StaffID:     req.StaffID,
				Interval:    candidate,
				ResourceIDs: req.ResourceIDs,
			})
			slots = append(slots, TimeSlot{
				Date:      date,
				StartTime: candidate.Start.Format(timeutil.ClockLayout),
				EndTime:   candidate.End.Format(timeutil.ClockLayout),
				Available: decision.Available,
				StaffID:   req.StaffID,
			})
		}
	}
	return slots, nil
}
