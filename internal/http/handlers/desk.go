// Package handlers exposes the clinic desk over HTTP: the agenda, the
// appointment dialog flow, patient intake and search, the professional
// roster and the billing follow-up table.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agendadental/clinicdesk/internal/appointments"
	"github.com/agendadental/clinicdesk/internal/clinicapi"
	"github.com/agendadental/clinicdesk/internal/errmsg"
	"github.com/agendadental/clinicdesk/internal/patients"
	"github.com/agendadental/clinicdesk/internal/professionals"
	"github.com/agendadental/clinicdesk/pkg/logging"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondBackendError translates a backend failure into a desk response:
// the classified Spanish message plus the backend status, with 502 standing
// in for transport failures that never produced a status.
func respondBackendError(w http.ResponseWriter, err error, action string) {
	status := clinicapi.StatusOf(err)
	if status == 0 {
		status = http.StatusBadGateway
	}
	respondError(w, status, errmsg.For(err, action))
}

// RegisterDeskRoutes mounts every desk endpoint under the given router.
func RegisterDeskRoutes(
	r chi.Router,
	appointmentsSvc *appointments.Service,
	checker *appointments.Checker,
	patientsSvc *patients.Service,
	professionalsSvc *professionals.Service,
	agenda AgendaAPI,
	logger *logging.Logger,
) {
	apptHandler := NewAppointmentsHandler(appointmentsSvc, checker, agenda, logger)
	patientHandler := NewPatientsHandler(patientsSvc, logger)
	profHandler := NewProfessionalsHandler(professionalsSvc, logger)
	followupHandler := NewFollowUpHandler(appointmentsSvc, logger)

	r.Route("/agenda", func(r chi.Router) {
		r.Get("/", apptHandler.GetAgenda)
		r.Get("/counts", apptHandler.GetCalendarCounts)
	})

	r.Route("/appointments", func(r chi.Router) {
		r.Get("/availability", apptHandler.CheckAvailability)
		r.Post("/", apptHandler.SubmitDialog)
		r.Patch("/{id}", apptHandler.UpdateAppointment)
		r.Patch("/{id}/estado", apptHandler.ChangeStatus)
		r.Post("/{id}/payments", apptHandler.AddPayment)
		r.Delete("/{id}", apptHandler.DeleteAppointment)
	})

	r.Route("/patients", func(r chi.Router) {
		r.Get("/", patientHandler.FilterPatients)
		r.Get("/search", patientHandler.SearchPatients)
		r.Get("/dni/{dni}", patientHandler.GetByDNI)
		r.Post("/", patientHandler.CreatePatient)
		r.Put("/{id}", patientHandler.UpdatePatient)
		r.Delete("/{id}", patientHandler.DeletePatient)
	})

	r.Route("/professionals", func(r chi.Router) {
		r.Get("/", profHandler.ListProfessionals)
		r.Get("/estados", profHandler.ListEstados)
		r.Post("/", profHandler.CreateProfessional)
		r.Put("/{id}", profHandler.UpdateProfessional)
		r.Patch("/{id}/toggle", profHandler.ToggleActive)
		r.Delete("/{id}", profHandler.DeleteProfessional)
	})

	r.Get("/followup", followupHandler.GetFollowUp)
}
