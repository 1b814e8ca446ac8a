package resources

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/glowdesk/glowdesk-api/pkg/logging"
	"github.com/go-chi/chi/v5"
)

// Handler provides HTTP endpoints for resource management.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a resources HTTP handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// Routes returns a chi router with resource routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{resourceID}", h.Get)
	r.Put("/{resourceID}", h.Put)
	return r
}

// List returns all of a company's resources.
// GET /companies/{companyID}/resources
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	if companyID == "" {
		http.Error(w, `{"error": "companyID required"}`, http.StatusBadRequest)
		return
	}

	items, err := h.store.List(r.Context(), companyID)
	if err != nil {
		h.logger.Error("failed to list resources", "company_id", companyID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"resources": items}); err != nil {
		h.logger.Error("failed to encode resources", "company_id", companyID, "error", err)
	}
}

// Get returns one resource.
// GET /companies/{companyID}/resources/{resourceID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	resourceID := chi.URLParam(r, "resourceID")

	res, err := h.store.Get(r.Context(), companyID, resourceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, `{"error": "resource not found"}`, http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get resource", "company_id", companyID, "resource_id", resourceID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		h.logger.Error("failed to encode resource", "resource_id", resourceID, "error", err)
	}
}

// Put creates or updates a resource.
// PUT /companies/{companyID}/resources/{resourceID}
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	resourceID := chi.URLParam(r, "resourceID")
	if companyID == "" || resourceID == "" {
		http.Error(w, `{"error": "companyID and resourceID required"}`, http.StatusBadRequest)
		return
	}

	var res Resource
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	res.CompanyID = companyID
	res.ResourceID = resourceID

	if err := h.store.Put(r.Context(), &res); err != nil {
		h.logger.Error("failed to save resource", "company_id", companyID, "resource_id", resourceID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&res); err != nil {
		h.logger.Error("failed to encode resource", "resource_id", resourceID, "error", err)
	}
}
