package availability

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/glowdesk/glowdesk-api/internal/timeutil"
	"github.com/glowdesk/glowdesk-api/pkg/logging"
	"github.com/go-chi/chi/v5"
)

// Handler provides HTTP endpoints for availability checks and slot listings.
type Handler struct {
	checker *Checker
	slots   *SlotGenerator
	logger  *logging.Logger
}

// NewHandler creates an availability HTTP handler.
func NewHandler(checker *Checker, slots *SlotGenerator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{checker: checker, slots: slots, logger: logger}
}

// Routes returns a chi router with availability routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/availability", h.CheckAvailability)
	r.Get("/slots", h.ListSlots)
	return r
}

// CheckAvailability evaluates one candidate slot.
// GET /companies/{companyID}/scheduling/availability?date=&startTime=&duration=&staffId=&branchId=&resourceIds=&excludeAppointmentId=
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	if companyID == "" {
		http.Error(w, `{"error": "companyID required"}`, http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	date, err := timeutil.ParseDate(q.Get("date"), time.UTC)
	if err != nil {
		http.Error(w, `{"error": "invalid or missing date, expected YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}
	duration, err := strconv.Atoi(q.Get("duration"))
	if err != nil || duration <= 0 {
		http.Error(w, `{"error": "duration must be a positive number of minutes"}`, http.StatusBadRequest)
		return
	}
	start := q.Get("startTime")
	clock, err := timeutil.At(date, start)
	if err != nil {
		http.Error(w, `{"error": "invalid or missing startTime, expected HH:MM"}`, http.StatusBadRequest)
		return
	}
	iv, err := timeutil.NewInterval(clock, duration)
	if err != nil {
		http.Error(w, `{"error": "invalid slot"}`, http.StatusBadRequest)
		return
	}

	decision := h.checker.CheckAvailability(r.Context(), Request{
		CompanyID:            companyID,
		BranchID:             q.Get("branchId"),
		StaffID:              q.Get("staffId"),
		Interval:             iv,
		ResourceIDs:          splitIDs(q.Get("resourceIds")),
		ExcludeAppointmentID: q.Get("excludeAppointmentId"),
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(decision); err != nil {
		h.logger.Error("failed to encode availability decision", "company_id", companyID, "error", err)
	}
}

// ListSlots generates the day's candidate slots for one staff member.
// GET /companies/{companyID}/scheduling/slots?date=&duration=&staffId=&branchId=&resourceIds=
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	if companyID == "" {
		http.Error(w, `{"error": "companyID required"}`, http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	date, err := timeutil.ParseDate(q.Get("date"), time.UTC)
	if err != nil {
		http.Error(w, `{"error": "invalid or missing date, expected YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}
	duration, err := strconv.Atoi(q.Get("duration"))
	if err != nil || duration <= 0 {
		http.Error(w, `{"error": "duration must be a positive number of minutes"}`, http.StatusBadRequest)
		return
	}
	staffID := q.Get("staffId")
	if staffID == "" {
		http.Error(w, `{"error": "staffId required"}`, http.StatusBadRequest)
		return
	}

	slots, err := h.slots.DaySlots(r.Context(), SlotRequest{
		CompanyID:       companyID,
		BranchID:        q.Get("branchId"),
		StaffID:         staffID,
		Date:            date,
		DurationMinutes: duration,
		ResourceIDs:     splitIDs(q.Get("resourceIds")),
	})
	if err != nil {
		h.logger.Error("failed to generate slots", "company_id", companyID, "staff_id", staffID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	if slots == nil {
		slots = []TimeSlot{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"slots": slots}); err != nil {
		h.logger.Error("failed to encode slots", "company_id", companyID, "error", err)
	}
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
