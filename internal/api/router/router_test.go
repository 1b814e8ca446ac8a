package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/glowdesk/glowdesk-api/internal/appointments"
	"github.com/glowdesk/glowdesk-api/internal/availability"
	"github.com/glowdesk/glowdesk-api/internal/branch"
	"github.com/glowdesk/glowdesk-api/internal/resources"
	"github.com/glowdesk/glowdesk-api/internal/schedule"
	"github.com/glowdesk/glowdesk-api/pkg/logging"
	"github.com/redis/go-redis/v9"
)

type stubDynamo struct{}

func (stubDynamo) GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{}, nil
}

func (stubDynamo) PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return &dynamodb.PutItemOutput{}, nil
}

func (stubDynamo) DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return &dynamodb.DeleteItemOutput{}, nil
}

func (stubDynamo) Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return &dynamodb.QueryOutput{}, nil
}

func (stubDynamo) TransactWriteItems(context.Context, *dynamodb.TransactWriteItemsInput, ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func testConfig(t *testing.T, adminSecret string) *Config {
	t.Helper()
	logger := logging.NewText("error")
	client := stubDynamo{}

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	scheduleStore := schedule.NewStore(client, "staff_schedules", logger)
	scheduleService := schedule.NewService(scheduleStore, schedule.NewResolver(logger), logger)

	branchStore := branch.NewStore(redisClient)

	apptRepo := appointments.NewRepository(client, "appointments", "slot_locks", logger)
	conflicts := appointments.NewDetector(apptRepo, logger)

	resourceStore := resources.NewStore(client, "resources", logger)
	resourceChecker := resources.NewChecker(resourceStore, apptRepo, logger)

	checker := availability.NewChecker(branch.NewGate(branchStore), scheduleService, conflicts, resourceChecker,
		availability.PolicyPermit, logger)
	slots := availability.NewSlotGenerator(checker, scheduleService, 30, logger)

	apptService := appointments.NewService(apptRepo, checker, logger)

	return &Config{
		Logger:              logger,
		AppointmentsHandler: appointments.NewHandler(apptService, logger),
		AvailabilityHandler: availability.NewHandler(checker, slots, logger),
		ScheduleHandler:     schedule.NewHandler(scheduleStore, logger),
		BranchHandler:       branch.NewHandler(branchStore, logger),
		ResourcesHandler:    resources.NewHandler(resourceStore, logger),
		AdminAuthSecret:     adminSecret,
	}
}

func TestRouterHealth(t *testing.T) {
	r := New(testConfig(t, ""))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("health returned %d", rec.Code)
	}
}

func TestRouterAvailabilityRouteWired(t *testing.T) {
	r := New(testConfig(t, ""))

	req := httptest.NewRequest(http.MethodGet,
		"/companies/co-1/scheduling/availability?date=2026-03-02&startTime=10:00&duration=30&staffId=staff-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("availability returned %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouterAdminProtectedWhenSecretSet(t *testing.T) {
	r := New(testConfig(t, "secret"))

	req := httptest.NewRequest(http.MethodGet, "/admin/companies/co-1/branches/b-1/settings", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}
}

func TestRouterAdminOpenWithoutSecret(t *testing.T) {
	r := New(testConfig(t, ""))

	req := httptest.NewRequest(http.MethodGet, "/admin/companies/co-1/branches/b-1/settings", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected branch defaults, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	r := New(testConfig(t, ""))

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
