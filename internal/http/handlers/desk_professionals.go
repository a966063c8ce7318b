package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/agendadental/clinicdesk/internal/clinicapi"
	"github.com/agendadental/clinicdesk/internal/professionals"
	"github.com/agendadental/clinicdesk/pkg/logging"
)

// ProfessionalsHandler serves the roster and its status taxonomy.
type ProfessionalsHandler struct {
	svc    *professionals.Service
	logger *logging.Logger
}

func NewProfessionalsHandler(svc *professionals.Service, logger *logging.Logger) *ProfessionalsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ProfessionalsHandler{svc: svc, logger: logger}
}

// ProfessionalView is a roster entry plus the status display color.
type ProfessionalView struct {
	clinicapi.Profesional
	EstadoColor string `json:"estadoColor,omitempty"`
}

// ListProfessionals returns the roster. With scheduling=true only the
// professionals offered in the appointment dialog come back.
// GET /desk/professionals?scheduling=true
func (h *ProfessionalsHandler) ListProfessionals(w http.ResponseWriter, r *http.Request) {
	var list []clinicapi.Profesional
	if r.URL.Query().Get("scheduling") == "true" {
		list = h.svc.ForScheduling()
	} else {
		list = h.svc.Cache().Items()
	}

	out := make([]ProfessionalView, 0, len(list))
	for _, p := range list {
		out = append(out, ProfessionalView{Profesional: p, EstadoColor: h.svc.ColorFor(p.Estado)})
	}
	respondJSON(w, http.StatusOK, out)
}

// ListEstados returns the professional status taxonomy with display colors.
// GET /desk/professionals/estados
func (h *ProfessionalsHandler) ListEstados(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Estados())
}

// CreateProfessional adds a roster entry.
// POST /desk/professionals
func (h *ProfessionalsHandler) CreateProfessional(w http.ResponseWriter, r *http.Request) {
	var in clinicapi.Profesional
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "cuerpo de la solicitud inválido")
		return
	}
	created, err := h.svc.Create(r.Context(), in, false)
	if err != nil {
		if _, ok := clinicapi.AsAPIError(err); !ok {
			respondError(w, http.StatusUnprocessableEntity, "El nombre del profesional es obligatorio.")
			return
		}
		respondBackendError(w, err, "crear el profesional")
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// UpdateProfessional replaces a roster entry.
// PUT /desk/professionals/{id}
func (h *ProfessionalsHandler) UpdateProfessional(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "id inválido")
		return
	}
	var in clinicapi.Profesional
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "cuerpo de la solicitud inválido")
		return
	}
	updated, err := h.svc.Update(r.Context(), id, in, false)
	if err != nil {
		respondBackendError(w, err, "actualizar el profesional")
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// ToggleActive flips a professional's active flag.
// PATCH /desk/professionals/{id}/toggle
func (h *ProfessionalsHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "id inválido")
		return
	}
	if err := h.svc.ToggleActive(r.Context(), id, false); err != nil {
		respondBackendError(w, err, "cambiar el estado del profesional")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// DeleteProfessional removes a roster entry.
// DELETE /desk/professionals/{id}
func (h *ProfessionalsHandler) DeleteProfessional(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "id inválido")
		return
	}
	if err := h.svc.Delete(r.Context(), id, false); err != nil {
		respondBackendError(w, err, "eliminar el profesional")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
