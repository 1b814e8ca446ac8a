package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glowdesk/glowdesk-api/internal/timeutil"
	"github.com/glowdesk/glowdesk-api/pkg/logging"
)

var testDay = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func iv(t *testing.T, start, end string) timeutil.Interval {
	t.Helper()
	out, err := timeutil.IntervalAt(testDay, start, end)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

type stubHours struct {
	open  bool
	err   error
	calls int
}

func (s *stubHours) AllowsInterval(_ context.Context, _, _ string, _ timeutil.Interval) (bool, error) {
	s.calls++
	return s.open, s.err
}

type stubSchedules struct {
	working []timeutil.Interval
	err     error
	calls   int
}

func (s *stubSchedules) WorkingIntervals(_ context.Context, _, _ string, _ time.Time) ([]timeutil.Interval, error) {
	s.calls++
	return s.working, s.err
}

type stubConflicts struct {
	conflict bool
	err      error
	calls    int
	exclude  string
}

func (s *stubConflicts) HasConflict(_ context.Context, _, _ string, _ timeutil.Interval, excludeID string) (bool, error) {
	s.calls++
	s.exclude = excludeID
	return s.conflict, s.err
}

type stubResources struct {
	available bool
	err       error
	calls     int
}

func (s *stubResources) Available(_ context.Context, _, _ string, _ timeutil.Interval, _ string) (bool, error) {
	s.calls++
	return s.available, s.err
}

func workingDay(t *testing.T) []timeutil.Interval {
	return []timeutil.Interval{iv(t, "09:00", "13:00"), iv(t, "14:00", "18:00")}
}

func request(t *testing.T, start, end string) Request {
	return Request{
		CompanyID: "co-1",
		BranchID:  "branch-1",
		StaffID:   "staff-1",
		Interval:  iv(t, start, end),
	}
}

func TestCheckAvailable(t *testing.T) {
	checker := NewChecker(
		&stubHours{open: true},
		&stubSchedules{working: workingDay(t)},
		&stubConflicts{},
		&stubResources{available: true},
		PolicyPermit, logging.NewText("error"),
	)

	d := checker.CheckAvailability(context.Background(), request(t, "10:00", "11:00"))
	if !d.Available || d.Reason != ReasonAvailable {
		t.Errorf("decision = %+v", d)
	}
}

func TestCheckShortCircuitsOnClosedBranch(t *testing.T) {
	schedules := &stubSchedules{working: workingDay(t)}
	conflicts := &stubConflicts{}
	checker := NewChecker(&stubHours{open: false}, schedules, conflicts, nil, PolicyPermit, logging.NewText("error"))

	d := checker.CheckAvailability(context.Background(), request(t, "10:00", "11:00"))
	if d.Available || d.Reason != ReasonOutsideBusinessHours {
		t.Errorf("decision = %+v", d)
	}
	if schedules.calls != 0 || conflicts.calls != 0 {
		t.Error("later checks must not run after a refusal")
	}
}

func TestCheckOutsideWorkingHours(t *testing.T) {
	cases := []struct {
		name  string
		start string
		end   string
		want  Reason
	}{
		{"before shift", "08:00", "09:00", ReasonOutsideWorkingHours},
		{"straddles break", "12:30", "14:30", ReasonOutsideWorkingHours},
		{"after shift", "17:30", "18:30", ReasonOutsideWorkingHours},
		{"exactly a sub-interval", "14:00", "18:00", ReasonAvailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			checker := NewChecker(
				&stubHours{open: true},
				&stubSchedules{working: workingDay(t)},
				&stubConflicts{},
				nil,
				PolicyPermit, logging.NewText("error"),
			)
			d := checker.CheckAvailability(context.Background(), request(t, tc.start, tc.end))
			if d.Reason != tc.want {
				t.Errorf("reason = %q, want %q", d.Reason, tc.want)
			}
		})
	}
}

func TestCheckStaffConflict(t *testing.T) {
	conflicts := &stubConflicts{conflict: true}
	checker := NewChecker(&stubHours{open: true}, &stubSchedules{working: workingDay(t)}, conflicts, nil, PolicyPermit, logging.NewText("error"))

	req := request(t, "10:00", "11:00")
	req.ExcludeAppointmentID = "appt-9"
	d := checker.CheckAvailability(context.Background(), req)
	if d.Available || d.Reason != ReasonStaffConflict {
		t.Errorf("decision = %+v", d)
	}
	if conflicts.exclude != "appt-9" {
		t.Error("exclusion must flow through to the conflict detector")
	}
}

func TestCheckUnassignedSkipsStaffChecks(t *testing.T) {
	schedules := &stubSchedules{}
	conflicts := &stubConflicts{conflict: true}
	checker := NewChecker(&stubHours{open: true}, schedules, conflicts, nil, PolicyPermit, logging.NewText("error"))

	req := request(t, "10:00", "11:00")
	req.StaffID = ""
	d := checker.CheckAvailability(context.Background(), req)
	if !d.Available {
		t.Errorf("decision = %+v", d)
	}
	if schedules.calls != 0 || conflicts.calls != 0 {
		t.Error("staff checks must be skipped without a staff ID")
	}
}

func TestCheckResourceUnavailable(t *testing.T) {
	checker := NewChecker(
		&stubHours{open: true},
		&stubSchedules{working: workingDay(t)},
		&stubConflicts{},
		&stubResources{available: false},
		PolicyPermit, logging.NewText("error"),
	)

	req := request(t, "10:00", "11:00")
	req.ResourceIDs = []string{"room-1"}
	d := checker.CheckAvailability(context.Background(), req)
	if d.Available || d.Reason != ReasonResourceUnavailable {
		t.Errorf("decision = %+v", d)
	}
}

func TestCheckPolicyOnDependencyFailure(t *testing.T) {
	boom := errors.New("redis down")

	t.Run("permit", func(t *testing.T) {
		checker := NewChecker(&stubHours{err: boom}, nil, nil, nil, PolicyPermit, logging.NewText("error"))
		d := checker.CheckAvailability(context.Background(), request(t, "10:00", "11:00"))
		if !d.Available {
			t.Errorf("permit policy must fail open, got %+v", d)
		}
	})

	t.Run("deny", func(t *testing.T) {
		checker := NewChecker(&stubHours{err: boom}, nil, nil, nil, PolicyDeny, logging.NewText("error"))
		d := checker.CheckAvailability(context.Background(), request(t, "10:00", "11:00"))
		if d.Available || d.Reason != ReasonCheckFailed {
			t.Errorf("deny policy must fail closed, got %+v", d)
		}
	})

	t.Run("conflict scan failure", func(t *testing.T) {
		checker := NewChecker(
			&stubHours{open: true},
			&stubSchedules{working: workingDay(t)},
			&stubConflicts{err: boom},
			nil,
			PolicyDeny, logging.NewText("error"),
		)
		d := checker.CheckAvailability(context.Background(), request(t, "10:00", "11:00"))
		if d.Available {
			t.Errorf("decision = %+v", d)
		}
	})
}

func TestCheckNilGatesAreSkipped(t *testing.T) {
	checker := NewChecker(nil, nil, nil, nil, PolicyPermit, logging.NewText("error"))

	d := checker.CheckAvailability(context.Background(), request(t, "03:00", "04:00"))
	if !d.Available {
		t.Errorf("decision = %+v", d)
	}
}
