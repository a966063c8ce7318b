package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agendadental/clinicdesk/internal/clinicapi"
	"github.com/agendadental/clinicdesk/internal/patients"
	"github.com/agendadental/clinicdesk/pkg/logging"
)

// PatientsHandler serves patient intake, search and the combobox filter.
type PatientsHandler struct {
	svc    *patients.Service
	logger *logging.Logger
}

func NewPatientsHandler(svc *patients.Service, logger *logging.Logger) *PatientsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PatientsHandler{svc: svc, logger: logger}
}

// PatientView is a patient plus the derived display fields the desk shows.
type PatientView struct {
	clinicapi.Patient
	Edad string `json:"edad,omitempty"`
}

func toView(p clinicapi.Patient) PatientView {
	return PatientView{Patient: p, Edad: patients.DerivedAge(p, time.Now())}
}

func toViews(list []clinicapi.Patient) []PatientView {
	out := make([]PatientView, 0, len(list))
	for _, p := range list {
		out = append(out, toView(p))
	}
	return out
}

// FilterPatients narrows the cached patients for the dialog combobox.
// Queries under two characters return nothing, mirroring the combobox rule.
// GET /desk/patients?query=
func (h *PatientsHandler) FilterPatients(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	respondJSON(w, http.StatusOK, toViews(h.svc.FilterLocal(query)))
}

// SearchPatients queries the backend directly, bypassing the cache.
// GET /desk/patients/search?query=
func (h *PatientsHandler) SearchPatients(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		respondError(w, http.StatusBadRequest, "query es obligatorio")
		return
	}
	found, err := h.svc.Search(r.Context(), query)
	if err != nil {
		respondBackendError(w, err, "buscar pacientes")
		return
	}
	respondJSON(w, http.StatusOK, toViews(found))
}

// GetByDNI fetches a single patient by document number.
// GET /desk/patients/dni/{dni}
func (h *PatientsHandler) GetByDNI(w http.ResponseWriter, r *http.Request) {
	dni := chi.URLParam(r, "dni")
	p, err := h.svc.ByDNI(r.Context(), dni)
	if err != nil {
		respondBackendError(w, err, "buscar el paciente")
		return
	}
	respondJSON(w, http.StatusOK, toView(*p))
}

// CreatePatient registers a patient from the intake form.
// POST /desk/patients
func (h *PatientsHandler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var in clinicapi.Patient
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "cuerpo de la solicitud inválido")
		return
	}
	created, err := h.svc.Create(r.Context(), in, false)
	if err != nil {
		if errors.Is(err, patients.ErrInvalidPatient) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondBackendError(w, err, "crear el paciente")
		return
	}
	respondJSON(w, http.StatusCreated, toView(*created))
}

// UpdatePatient replaces the full patient record.
// PUT /desk/patients/{id}
func (h *PatientsHandler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "id inválido")
		return
	}
	var in clinicapi.Patient
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "cuerpo de la solicitud inválido")
		return
	}
	updated, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		if errors.Is(err, patients.ErrInvalidPatient) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondBackendError(w, err, "actualizar el paciente")
		return
	}
	respondJSON(w, http.StatusOK, toView(*updated))
}

// DeletePatient removes a patient record.
// DELETE /desk/patients/{id}
func (h *PatientsHandler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "id inválido")
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		respondBackendError(w, err, "eliminar el paciente")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
