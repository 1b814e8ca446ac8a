package appointments

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/glowdesk/glowdesk-api/pkg/logging"
	"github.com/go-chi/chi/v5"
)

// Handler provides HTTP endpoints for appointment lifecycle operations.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates an appointments HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes returns a chi router with appointment routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.ListForDay)
	r.Get("/{appointmentID}", h.Get)
	r.Patch("/{appointmentID}", h.Update)
	r.Put("/{appointmentID}/status", h.UpdateStatus)
	r.Delete("/{appointmentID}", h.Delete)
	return r
}

// actorID identifies who made the change for the change log. Defaults to
// "system" when the caller does not say.
func actorID(r *http.Request) string {
	if id := r.Header.Get("X-Actor-Id"); id != "" {
		return id
	}
	return "system"
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidAppointment):
		http.Error(w, fmt.Sprintf(`{"error": %q}`, err.Error()), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, `{"error": "appointment not found"}`, http.StatusNotFound)
	case errors.Is(err, ErrSlotUnavailable), errors.Is(err, ErrSlotTaken):
		http.Error(w, fmt.Sprintf(`{"error": %q}`, err.Error()), http.StatusConflict)
	default:
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// Create books a new appointment.
// POST /companies/{companyID}/appointments
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	if companyID == "" {
		http.Error(w, `{"error": "companyID required"}`, http.StatusBadRequest)
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	result, err := h.service.Create(r.Context(), companyID, actorID(r), req)
	if err != nil {
		if !errors.Is(err, ErrInvalidAppointment) && !errors.Is(err, ErrSlotUnavailable) && !errors.Is(err, ErrSlotTaken) {
			h.logger.Error("failed to create appointment", "company_id", companyID, "error", err)
		}
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, result)
}

// Get fetches one appointment.
// GET /companies/{companyID}/appointments/{appointmentID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	appointmentID := chi.URLParam(r, "appointmentID")

	appt, err := h.service.Get(r.Context(), companyID, appointmentID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			h.logger.Error("failed to get appointment", "company_id", companyID, "appointment_id", appointmentID, "error", err)
		}
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, appt)
}

// ListForDay lists a company's appointments on one day.
// GET /companies/{companyID}/appointments?date=YYYY-MM-DD
func (h *Handler) ListForDay(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	date := r.URL.Query().Get("date")

	appts, err := h.service.ListForDay(r.Context(), companyID, date)
	if err != nil {
		if !errors.Is(err, ErrInvalidAppointment) {
			h.logger.Error("failed to list appointments", "company_id", companyID, "date", date, "error", err)
		}
		h.writeError(w, err)
		return
	}
	if appts == nil {
		appts = []Appointment{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

// Update applies a partial edit.
// PATCH /companies/{companyID}/appointments/{appointmentID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	appointmentID := chi.URLParam(r, "appointmentID")

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	appt, err := h.service.Update(r.Context(), companyID, appointmentID, actorID(r), req)
	if err != nil {
		if !errors.Is(err, ErrInvalidAppointment) && !errors.Is(err, ErrNotFound) &&
			!errors.Is(err, ErrSlotUnavailable) && !errors.Is(err, ErrSlotTaken) {
			h.logger.Error("failed to update appointment", "company_id", companyID, "appointment_id", appointmentID, "error", err)
		}
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, appt)
}

// UpdateStatusRequest is the body of a status transition.
type UpdateStatusRequest struct {
	Status Status `json:"status"`
}

// UpdateStatus transitions lifecycle state.
// PUT /companies/{companyID}/appointments/{appointmentID}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	appointmentID := chi.URLParam(r, "appointmentID")

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	appt, err := h.service.UpdateStatus(r.Context(), companyID, appointmentID, actorID(r), req.Status)
	if err != nil {
		if !errors.Is(err, ErrInvalidAppointment) && !errors.Is(err, ErrNotFound) {
			h.logger.Error("failed to update status", "company_id", companyID, "appointment_id", appointmentID, "error", err)
		}
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, appt)
}

// Delete hard-removes an appointment.
// DELETE /companies/{companyID}/appointments/{appointmentID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	appointmentID := chi.URLParam(r, "appointmentID")

	if err := h.service.Delete(r.Context(), companyID, appointmentID); err != nil {
		if !errors.Is(err, ErrNotFound) {
			h.logger.Error("failed to delete appointment", "company_id", companyID, "appointment_id", appointmentID, "error", err)
		}
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
