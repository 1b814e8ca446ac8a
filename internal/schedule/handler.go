package schedule

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/glowdesk/glowdesk-api/pkg/logging"
	"github.com/go-chi/chi/v5"
)

// Handler provides HTTP endpoints for staff schedule management.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a staff schedule HTTP handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// Routes returns a chi router with schedule routes, mounted under a company scope.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{staffID}", h.GetSchedule)
	r.Put("/{staffID}", h.PutSchedule)
	return r
}

// GetSchedule returns a staff member's weekly schedule.
// GET /companies/{companyID}/schedules/{staffID}
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	staffID := chi.URLParam(r, "staffID")
	if companyID == "" || staffID == "" {
		http.Error(w, `{"error": "companyID and staffID required"}`, http.StatusBadRequest)
		return
	}

	sched, err := h.store.Get(r.Context(), companyID, staffID)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, `{"error": "schedule not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to get schedule", "company_id", companyID, "staff_id", staffID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sched); err != nil {
		h.logger.Error("failed to encode schedule", "staff_id", staffID, "error", err)
	}
}

// PutSchedule creates or replaces a staff member's weekly schedule.
// PUT /companies/{companyID}/schedules/{staffID}
func (h *Handler) PutSchedule(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	staffID := chi.URLParam(r, "staffID")
	if companyID == "" || staffID == "" {
		http.Error(w, `{"error": "companyID and staffID required"}`, http.StatusBadRequest)
		return
	}

	var sched Weekly
	if err := json.NewDecoder(r.Body).Decode(&sched); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	sched.CompanyID = companyID
	sched.StaffID = staffID

	if err := h.store.Put(r.Context(), &sched); err != nil {
		h.logger.Error("failed to save schedule", "company_id", companyID, "staff_id", staffID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sched); err != nil {
		h.logger.Error("failed to encode schedule", "staff_id", staffID, "error", err)
	}
}
