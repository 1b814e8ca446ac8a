package branch

import (
	"encoding/json"
	"net/http"

	"github.com/glowdesk/glowdesk-api/pkg/logging"
	"github.com/go-chi/chi/v5"
)

// Handler provides HTTP endpoints for branch settings management.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a branch settings HTTP handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// Routes returns a chi router with branch settings routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{branchID}/settings", h.GetSettings)
	r.Put("/{branchID}/settings", h.UpdateSettings)
	return r
}

// GetSettings returns branch settings (defaults when unconfigured).
// GET /companies/{companyID}/branches/{branchID}/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	branchID := chi.URLParam(r, "branchID")
	if companyID == "" || branchID == "" {
		http.Error(w, `{"error": "companyID and branchID required"}`, http.StatusBadRequest)
		return
	}

	settings, err := h.store.Get(r.Context(), companyID, branchID)
	if err != nil {
		h.logger.Error("failed to get branch settings", "company_id", companyID, "branch_id", branchID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(settings); err != nil {
		h.logger.Error("failed to encode branch settings", "branch_id", branchID, "error", err)
	}
}

// UpdateSettingsRequest is the request body for updating branch settings.
type UpdateSettingsRequest struct {
	Name     string         `json:"name,omitempty"`
	Timezone string         `json:"timezone,omitempty"`
	Hours    *BusinessHours `json:"hours,omitempty"`
}

// UpdateSettings creates or updates branch settings.
// PUT /companies/{companyID}/branches/{branchID}/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	branchID := chi.URLParam(r, "branchID")
	if companyID == "" || branchID == "" {
		http.Error(w, `{"error": "companyID and branchID required"}`, http.StatusBadRequest)
		return
	}

	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	settings, err := h.store.Get(r.Context(), companyID, branchID)
	if err != nil {
		h.logger.Error("failed to get branch settings", "company_id", companyID, "branch_id", branchID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	if req.Name != "" {
		settings.Name = req.Name
	}
	if req.Timezone != "" {
		settings.Timezone = req.Timezone
	}
	if req.Hours != nil {
		settings.Hours = *req.Hours
	}

	if err := h.store.Set(r.Context(), settings); err != nil {
		h.logger.Error("failed to save branch settings", "company_id", companyID, "branch_id", branchID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(settings); err != nil {
		h.logger.Error("failed to encode branch settings", "branch_id", branchID, "error", err)
	}
}
