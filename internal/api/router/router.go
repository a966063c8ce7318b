// Package router wires the desk HTTP surface onto a chi router.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agendadental/clinicdesk/internal/appointments"
	"github.com/agendadental/clinicdesk/internal/http/handlers"
	httpmiddleware "github.com/agendadental/clinicdesk/internal/http/middleware"
	"github.com/agendadental/clinicdesk/internal/patients"
	"github.com/agendadental/clinicdesk/internal/professionals"
	"github.com/agendadental/clinicdesk/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger *logging.Logger

	Appointments  *appointments.Service
	Availability  *appointments.Checker
	Patients      *patients.Service
	Professionals *professionals.Service
	Agenda        handlers.AgendaAPI

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates the chi router with middleware and every desk route mounted.
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

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/desk", func(desk chi.Router) {
		handlers.RegisterDeskRoutes(
			desk,
			cfg.Appointments,
			cfg.Availability,
			cfg.Patients,
			cfg.Professionals,
			cfg.Agenda,
			cfg.Logger,
		)
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
