package appointments

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/glowdesk/glowdesk-api/internal/availability"
	"github.com/glowdesk/glowdesk-api/pkg/logging"
)

type stubChecker struct {
	decision availability.Decision
	requests []availability.Request
}

func (s *stubChecker) CheckAvailability(_ context.Context, req availability.Request) availability.Decision {
	s.requests = append(s.requests, req)
	return s.decision
}

func availableChecker() *stubChecker {
	return &stubChecker{decision: availability.Decision{Available: true, Reason: availability.ReasonAvailable}}
}

type stubPublisher struct {
	types    []string
	payloads []any
}

func (s *stubPublisher) Publish(_ context.Context, _ string, eventType string, payload any) error {
	s.types = append(s.types, eventType)
	s.payloads = append(s.payloads, payload)
	return nil
}

type stubExpander struct {
	created int
	err     error
	calls   int
}

func (s *stubExpander) ExpandSeries(_ context.Context, original *Appointment, _ string) (int, error) {
	s.calls++
	original.RepeatGroupID = "group-1"
	return s.created, s.err
}

func validCreateRequest() CreateRequest {
	return CreateRequest{
		StaffID:   "staff-1",
		Services:  []ServiceLine{{Name: "Haircut", DurationMinutes: 45, PriceCents: 5500}},
		Date:      "2026-03-02",
		StartTime: "10:00",
	}
}

func TestServiceCreate(t *testing.T) {
	client := &mockDynamo{}
	checker := availableChecker()
	publisher := &stubPublisher{}
	svc := NewService(newTestRepo(client), checker, logging.NewText("error"),
		WithPublisher(publisher))

	result, err := svc.Create(context.Background(), "co-1", "owner", validCreateRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	appt := result.Appointment
	if appt.AppointmentID == "" {
		t.Error("expected a generated appointment ID")
	}
	if appt.EndTime != "10:45" {
		t.Errorf("EndTime = %q, want 10:45", appt.EndTime)
	}
	if appt.Status != StatusConfirmed {
		t.Errorf("Status = %q", appt.Status)
	}
	if len(appt.ChangeLog) != 1 || appt.ChangeLog[0].Note != "Appointment created." {
		t.Errorf("unexpected change log: %+v", appt.ChangeLog)
	}
	if len(checker.requests) != 1 {
		t.Fatalf("expected one availability check, got %d", len(checker.requests))
	}
	if got := checker.requests[0].Interval.Minutes(); got != 45 {
		t.Errorf("checked interval %d minutes, want 45", got)
	}
	if client.transactInput == nil {
		t.Error("expected a transactional write")
	}
	if len(publisher.types) != 1 || publisher.types[0] != "appointment.created.v1" {
		t.Errorf("published events = %v", publisher.types)
	}
}

func TestServiceCreateRefusedSlot(t *testing.T) {
	client := &mockDynamo{}
	checker := &stubChecker{decision: availability.Decision{Available: false, Reason: availability.ReasonStaffConflict}}
	svc := NewService(newTestRepo(client), checker, logging.NewText("error"))

	_, err := svc.Create(context.Background(), "co-1", "owner", validCreateRequest())
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
	if client.transactInput != nil {
		t.Error("refused booking must not write anything")
	}
}

func TestServiceCreateValidation(t *testing.T) {
	svc := NewService(newTestRepo(&mockDynamo{}), availableChecker(), logging.NewText("error"))

	cases := []struct {
		name   string
		mutate func(*CreateRequest)
	}{
		{"no services", func(r *CreateRequest) { r.Services = nil }},
		{"zero duration", func(r *CreateRequest) { r.Services[0].DurationMinutes = 0 }},
		{"bad date", func(r *CreateRequest) { r.Date = "03/02/2026" }},
		{"bad start time", func(r *CreateRequest) { r.StartTime = "25:00" }},
		{"crosses midnight", func(r *CreateRequest) { r.StartTime = "23:30" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreateRequest()
			tc.mutate(&req)
			if _, err := svc.Create(context.Background(), "co-1", "owner", req); !errors.Is(err, ErrInvalidAppointment) {
				t.Errorf("expected ErrInvalidAppointment, got %v", err)
			}
		})
	}
}

func TestServiceCreateRecurring(t *testing.T) {
	expander := &stubExpander{created: 3}
	publisher := &stubPublisher{}
	svc := NewService(newTestRepo(&mockDynamo{}), availableChecker(), logging.NewText("error"),
		WithExpander(expander), WithPublisher(publisher))

	req := validCreateRequest()
	req.Repeat = &RepeatRule{Type: RepeatWeekly, Interval: 1, MaxOccurrences: 4}

	result, err := svc.Create(context.Background(), "co-1", "owner", req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if expander.calls != 1 {
		t.Errorf("expander calls = %d", expander.calls)
	}
	if result.OccurrencesCreated != 3 {
		t.Errorf("OccurrencesCreated = %d, want 3", result.OccurrencesCreated)
	}
	if result.Appointment.RepeatGroupID != "group-1" {
		t.Errorf("RepeatGroupID = %q", result.Appointment.RepeatGroupID)
	}
	if len(publisher.types) != 2 || publisher.types[0] != "appointment.series_created.v1" {
		t.Errorf("published events = %v", publisher.types)
	}
}

func existingItem(t *testing.T) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(testAppointment())
	if err != nil {
		t.Fatal(err)
	}
	return item
}

func TestServiceUpdateNotesSkipsAvailability(t *testing.T) {
	client := &mockDynamo{getOutput: &dynamodb.GetItemOutput{Item: existingItem(t)}}
	checker := availableChecker()
	svc := NewService(newTestRepo(client), checker, logging.NewText("error"))

	notes := "bring own products"
	appt, err := svc.Update(context.Background(), "co-1", "appt-1", "owner", UpdateRequest{Notes: &notes})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if appt.Notes != notes {
		t.Errorf("Notes = %q", appt.Notes)
	}
	if len(checker.requests) != 0 {
		t.Error("note-only edit must not run the availability check")
	}
	if client.putInput == nil {
		t.Error("expected a plain document put")
	}
	if client.transactInput != nil {
		t.Error("note-only edit must not touch slot locks")
	}
}

func TestServiceUpdateRescheduleRunsAvailability(t *testing.T) {
	client := &mockDynamo{getOutput: &dynamodb.GetItemOutput{Item: existingItem(t)}}
	checker := availableChecker()
	svc := NewService(newTestRepo(client), checker, logging.NewText("error"))

	start := "14:00"
	appt, err := svc.Update(context.Background(), "co-1", "appt-1", "owner", UpdateRequest{StartTime: &start})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if appt.EndTime != "14:45" {
		t.Errorf("EndTime = %q, want recomputed 14:45", appt.EndTime)
	}
	if len(checker.requests) != 1 {
		t.Fatalf("expected one availability check, got %d", len(checker.requests))
	}
	if checker.requests[0].ExcludeAppointmentID != "appt-1" {
		t.Error("reschedule must exclude the appointment from its own conflict scan")
	}
	if client.transactInput == nil {
		t.Error("reschedule must move the slot lock transactionally")
	}
}

func TestServiceUpdateRefusedReschedule(t *testing.T) {
	client := &mockDynamo{getOutput: &dynamodb.GetItemOutput{Item: existingItem(t)}}
	checker := &stubChecker{decision: availability.Decision{Available: false, Reason: availability.ReasonOutsideWorkingHours}}
	svc := NewService(newTestRepo(client), checker, logging.NewText("error"))

	start := "22:00"
	_, err := svc.Update(context.Background(), "co-1", "appt-1", "owner", UpdateRequest{StartTime: &start})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
	if client.putInput != nil || client.transactInput != nil {
		t.Error("refused reschedule must not write")
	}
}

func TestServiceUpdateStatusCancelReleasesLock(t *testing.T) {
	client := &mockDynamo{getOutput: &dynamodb.GetItemOutput{Item: existingItem(t)}}
	publisher := &stubPublisher{}
	svc := NewService(newTestRepo(client), availableChecker(), logging.NewText("error"),
		WithPublisher(publisher))

	appt, err := svc.UpdateStatus(context.Background(), "co-1", "appt-1", "owner", StatusCancelled)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if appt.Status != StatusCancelled {
		t.Errorf("Status = %q", appt.Status)
	}
	if client.deleteInput == nil {
		t.Fatal("cancel must release the slot lock")
	}
	if got := client.deleteInput.Key["lockKey"].(*types.AttributeValueMemberS).Value; got != "co-1#staff-1#2026-03-02#10:00" {
		t.Errorf("released lock %q", got)
	}
	if len(publisher.types) != 1 || publisher.types[0] != "appointment.cancelled.v1" {
		t.Errorf("published events = %v", publisher.types)
	}
}

func cancelledItem(t *testing.T) map[string]types.AttributeValue {
	t.Helper()
	appt := testAppointment()
	appt.Status = StatusCancelled
	item, err := attributevalue.MarshalMap(appt)
	if err != nil {
		t.Fatal(err)
	}
	return item
}

func TestServiceUpdateStatusReactivationReclaimsLock(t *testing.T) {
	client := &mockDynamo{getOutput: &dynamodb.GetItemOutput{Item: cancelledItem(t)}}
	checker := availableChecker()
	svc := NewService(newTestRepo(client), checker, logging.NewText("error"))

	appt, err := svc.UpdateStatus(context.Background(), "co-1", "appt-1", "owner", StatusConfirmed)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if appt.Status != StatusConfirmed {
		t.Errorf("Status = %q", appt.Status)
	}
	if len(checker.requests) != 1 {
		t.Fatalf("expected one availability check, got %d", len(checker.requests))
	}
	if checker.requests[0].ExcludeAppointmentID != "appt-1" {
		t.Error("reactivation must exclude the appointment from its own conflict scan")
	}
	if client.transactInput == nil {
		t.Fatal("reactivation must reclaim the slot lock transactionally")
	}
	items := client.transactInput.TransactItems
	lock := items[len(items)-1].Put
	if lock == nil {
		t.Fatal("expected a lock put")
	}
	if got := lock.Item["lockKey"].(*types.AttributeValueMemberS).Value; got != "co-1#staff-1#2026-03-02#10:00" {
		t.Errorf("reclaimed lock %q", got)
	}
	if client.putInput != nil {
		t.Error("reactivation must not fall back to a plain put")
	}
}

func TestServiceUpdateStatusReactivationRefused(t *testing.T) {
	client := &mockDynamo{getOutput: &dynamodb.GetItemOutput{Item: cancelledItem(t)}}
	checker := &stubChecker{decision: availability.Decision{Available: false, Reason: availability.ReasonStaffConflict}}
	svc := NewService(newTestRepo(client), checker, logging.NewText("error"))

	_, err := svc.UpdateStatus(context.Background(), "co-1", "appt-1", "owner", StatusConfirmed)
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
	if client.putInput != nil || client.transactInput != nil {
		t.Error("refused reactivation must not write")
	}
}

func TestServiceUpdateStatusReactivationLostRace(t *testing.T) {
	client := &mockDynamo{
		getOutput: &dynamodb.GetItemOutput{Item: cancelledItem(t)},
		transactErr: &types.TransactionCanceledException{
			CancellationReasons: []types.CancellationReason{
				{Code: aws.String("None")},
				{Code: aws.String("ConditionalCheckFailed")},
			},
		},
	}
	svc := NewService(newTestRepo(client), availableChecker(), logging.NewText("error"))

	_, err := svc.UpdateStatus(context.Background(), "co-1", "appt-1", "owner", StatusConfirmed)
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}

func TestServiceUpdateStatusRejectsUnknown(t *testing.T) {
	svc := NewService(newTestRepo(&mockDynamo{}), availableChecker(), logging.NewText("error"))

	if _, err := svc.UpdateStatus(context.Background(), "co-1", "appt-1", "owner", Status("snoozed")); !errors.Is(err, ErrInvalidAppointment) {
		t.Errorf("expected ErrInvalidAppointment, got %v", err)
	}
}
