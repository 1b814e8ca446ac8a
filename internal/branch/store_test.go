package branch

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glowdesk/glowdesk-api/internal/timeutil"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client)
}

func salonHours() BusinessHours {
	return BusinessHours{Days: map[string][]OpenPeriod{
		"monday":   {{Open: "09:00", Close: "18:00"}},
		"tuesday":  {{Open: "09:00", Close: "13:00"}, {Open: "15:00", Close: "20:00"}},
		"saturday": {{Open: "10:00", Close: "16:00"}},
	}}
}

func ivOn(t *testing.T, date time.Time, start, end string) timeutil.Interval {
	t.Helper()
	iv, err := timeutil.IntervalAt(date, start, end)
	if err != nil {
		t.Fatalf("IntervalAt(%s, %s): %v", start, end, err)
	}
	return iv
}

func TestStoreGetReturnsDefaultsWhenMissing(t *testing.T) {
	store := newTestStore(t)

	settings, err := store.Get(context.Background(), "co-1", "branch-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if settings.CompanyID != "co-1" || settings.BranchID != "branch-1" {
		t.Errorf("unexpected identity: %+v", settings)
	}
	if settings.Hours.HasAnyHours() {
		t.Error("default settings must carry no hours")
	}
}

func TestStoreSetGetRoundTrip(t *testing.T) {
	store := newTestStore(t)

	in := &Settings{
		CompanyID: "co-1",
		BranchID:  "branch-1",
		Name:      "Downtown",
		Timezone:  "Europe/Berlin",
		Hours:     salonHours(),
	}
	if err := store.Set(context.Background(), in); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if in.UpdatedAt == "" {
		t.Error("expected UpdatedAt to be stamped")
	}

	out, err := store.Get(context.Background(), "co-1", "branch-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Name != "Downtown" || len(out.Hours.Days["tuesday"]) != 2 {
		t.Errorf("round trip lost data: %+v", out)
	}
}

func TestStoreSetValidation(t *testing.T) {
	store := newTestStore(t)

	if err := store.Set(context.Background(), nil); err == nil {
		t.Error("expected error for nil settings")
	}
	if err := store.Set(context.Background(), &Settings{CompanyID: "co-1"}); err == nil {
		t.Error("expected error for missing branchId")
	}
}

func TestSettingsAllowsInterval(t *testing.T) {
	monday := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)
	sunday := monday.AddDate(0, 0, -1)

	settings := &Settings{CompanyID: "co-1", BranchID: "b-1", Hours: salonHours()}

	cases := []struct {
		name string
		iv   timeutil.Interval
		want bool
	}{
		{"inside single period", ivOn(t, monday, "10:00", "11:00"), true},
		{"exactly the period", ivOn(t, monday, "09:00", "18:00"), true},
		{"spills past close", ivOn(t, monday, "17:30", "18:30"), false},
		{"closed weekday", ivOn(t, sunday, "10:00", "11:00"), false},
		{"inside second period", ivOn(t, tuesday, "15:30", "16:30"), true},
		{"straddles the two periods", ivOn(t, tuesday, "12:30", "15:30"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := settings.AllowsInterval(tc.iv); got != tc.want {
				t.Errorf("AllowsInterval(%s) = %v, want %v", tc.iv, got, tc.want)
			}
		})
	}
}

func TestGateUnconfiguredBranchIsOpen(t *testing.T) {
	gate := NewGate(newTestStore(t))

	iv := ivOn(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), "03:00", "04:00")
	open, err := gate.AllowsInterval(context.Background(), "co-1", "branch-1", iv)
	if err != nil {
		t.Fatalf("AllowsInterval: %v", err)
	}
	if !open {
		t.Error("unconfigured branch must be treated as always open")
	}
}

func TestGateUsesStoredHours(t *testing.T) {
	store := newTestStore(t)
	gate := NewGate(store)

	if err := store.Set(context.Background(), &Settings{
		CompanyID: "co-1", BranchID: "branch-1", Hours: salonHours(),
	}); err != nil {
		t.Fatal(err)
	}

	monday := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	open, err := gate.AllowsInterval(context.Background(), "co-1", "branch-1", ivOn(t, monday, "08:00", "09:30"))
	if err != nil {
		t.Fatalf("AllowsInterval: %v", err)
	}
	if open {
		t.Error("interval before opening must be rejected")
	}
}
