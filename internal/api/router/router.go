// Package router assembles the HTTP surface from the feature handlers.
package router

import (
	"net/http"

	"github.com/glowdesk/glowdesk-api/internal/appointments"
	"github.com/glowdesk/glowdesk-api/internal/availability"
	"github.com/glowdesk/glowdesk-api/internal/branch"
	httpmiddleware "github.com/glowdesk/glowdesk-api/internal/http/middleware"
	"github.com/glowdesk/glowdesk-api/internal/resources"
	"github.com/glowdesk/glowdesk-api/internal/schedule"
	"github.com/glowdesk/glowdesk-api/pkg/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	AppointmentsHandler *appointments.Handler
	AvailabilityHandler *availability.Handler
	ScheduleHandler     *schedule.Handler
	BranchHandler       *branch.Handler
	ResourcesHandler    *resources.Handler
	MetricsHandler      http.Handler
	AdminAuthSecret     string
	CORSAllowedOrigins  []string
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Booking surface used by the dashboard calendar.
	r.Route("/companies/{companyID}", func(company chi.Router) {
		if cfg.AppointmentsHandler != nil {
			company.Mount("/appointments", cfg.AppointmentsHandler.Routes())
		}
		if cfg.AvailabilityHandler != nil {
			company.Mount("/scheduling", cfg.AvailabilityHandler.Routes())
		}
	})

	// Configuration surface: schedules, branch settings, resources. Behind
	// admin JWT when a secret is configured, open for local development
	// otherwise.
	r.Route("/admin/companies/{companyID}", func(admin chi.Router) {
		if cfg.AdminAuthSecret != "" {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		}
		if cfg.ScheduleHandler != nil {
			admin.Mount("/schedules", cfg.ScheduleHandler.Routes())
		}
		if cfg.BranchHandler != nil {
			admin.Mount("/branches", cfg.BranchHandler.Routes())
		}
		if cfg.ResourcesHandler != nil {
			admin.Mount("/resources", cfg.ResourcesHandler.Routes())
		}
	})

	return r
}
