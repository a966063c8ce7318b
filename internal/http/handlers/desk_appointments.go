package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/agendadental/clinicdesk/internal/appointments"
	"github.com/agendadental/clinicdesk/internal/clinicapi"
	"github.com/agendadental/clinicdesk/internal/dates"
	"github.com/agendadental/clinicdesk/internal/errmsg"
	"github.com/agendadental/clinicdesk/pkg/logging"
)

const slotOccupiedMessage = "Este horario ya está ocupado. Por favor, seleccione otro horario."

// AgendaAPI is the slice of the backend client the agenda views read from.
type AgendaAPI interface {
	AppointmentsByDate(ctx context.Context, fecha string) ([]clinicapi.Appointment, error)
	CountByDate(ctx context.Context, from, to string) (map[string]int, error)
}

// AppointmentsHandler serves the agenda and the appointment dialog flow.
type AppointmentsHandler struct {
	svc     *appointments.Service
	checker *appointments.Checker
	agenda  AgendaAPI
	logger  *logging.Logger
}

func NewAppointmentsHandler(svc *appointments.Service, checker *appointments.Checker, agenda AgendaAPI, logger *logging.Logger) *AppointmentsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{svc: svc, checker: checker, agenda: agenda, logger: logger}
}

// GetAgenda returns the appointments of one day, defaulting to today.
// GET /desk/agenda?fecha=YYYY-MM-DD
func (h *AppointmentsHandler) GetAgenda(w http.ResponseWriter, r *http.Request) {
	fecha := r.URL.Query().Get("fecha")
	if fecha == "" {
		fecha = dates.Today()
	}
	if _, err := dates.ParseYMD(fecha); err != nil {
		respondError(w, http.StatusBadRequest, "fecha inválida, se espera YYYY-MM-DD")
		return
	}

	appts, err := h.agenda.AppointmentsByDate(r.Context(), fecha)
	if err != nil {
		// The cached snapshot keeps the agenda readable through backend blips.
		if errmsg.IsNetwork(err) {
			h.logger.Warn("agenda read fell back to cached snapshot", "fecha", fecha, "error", err)
			respondJSON(w, http.StatusOK, h.svc.ForDate(fecha))
			return
		}
		respondBackendError(w, err, "cargar la agenda")
		return
	}
	respondJSON(w, http.StatusOK, appts)
}

// GetCalendarCounts returns per-day appointment totals for calendar badges.
// GET /desk/agenda/counts?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *AppointmentsHandler) GetCalendarCounts(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		respondError(w, http.StatusBadRequest, "from y to son obligatorios")
		return
	}
	counts, err := h.agenda.CountByDate(r.Context(), from, to)
	if err != nil {
		respondBackendError(w, err, "cargar el calendario")
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

type availabilityResult struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

// CheckAvailability probes one slot. This is the endpoint the dialog polls
// while the receptionist edits the time field.
// GET /desk/appointments/availability?profesionalId=&fecha=&hora=
func (h *AppointmentsHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	profesionalID, err := strconv.ParseInt(r.URL.Query().Get("profesionalId"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "profesionalId inválido")
		return
	}
	fecha := r.URL.Query().Get("fecha")
	hora := r.URL.Query().Get("hora")
	if _, err := dates.NormalizeTime(hora); err != nil {
		respondError(w, http.StatusBadRequest, "hora inválida, se espera HH:mm o HH:mm:ss")
		return
	}

	available, err := h.checker.Check(r.Context(), profesionalID, fecha, hora)
	if err != nil {
		// A failed probe reads as occupied so a dead backend never lets a
		// double booking through.
		h.logger.Warn("availability probe failed", "error", err)
		respondJSON(w, http.StatusOK, availabilityResult{Available: false, Message: slotOccupiedMessage})
		return
	}
	result := availabilityResult{Available: available}
	if !available {
		result.Message = slotOccupiedMessage
	}
	respondJSON(w, http.StatusOK, result)
}

// DialogSubmission is the appointment dialog payload: the patient record as
// filled in the form plus the appointment itself.
type DialogSubmission struct {
	Patient     clinicapi.Patient           `json:"patient"`
	Appointment clinicapi.AppointmentCreate `json:"appointment"`
}

// SubmitDialog runs the full dialog submit: a fresh availability check on
// the requested slot, then the patient-then-appointment creation sequence.
// An occupied slot fails with the inline dialog message and touches nothing.
// POST /desk/appointments
func (h *AppointmentsHandler) SubmitDialog(w http.ResponseWriter, r *http.Request) {
	var in DialogSubmission
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "cuerpo de la solicitud inválido")
		return
	}
	hora, err := dates.NormalizeTime(in.Appointment.Hora)
	if err != nil {
		respondError(w, http.StatusBadRequest, "hora inválida, se espera HH:mm o HH:mm:ss")
		return
	}
	in.Appointment.Hora = hora

	available, err := h.checker.Check(r.Context(), in.Appointment.ProfesionalID, in.Appointment.Fecha, in.Appointment.Hora)
	if err != nil {
		respondBackendError(w, err, "verificar la disponibilidad")
		return
	}
	if !available {
		respondError(w, http.StatusConflict, slotOccupiedMessage)
		return
	}

	created, err := h.svc.Create(r.Context(), in.Patient, in.Appointment, false)
	if err != nil {
		respondBackendError(w, err, "crear el turno")
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// updateRequest is the typed partial-update body. Each entry names its
// variant so an unknown field combination cannot slip through.
type updateRequest struct {
	Updates []json.RawMessage `json:"updates"`
}

type updateVariant struct {
	Type string `json:"type"`

	// prices
	PrecioBono        *float64 `json:"precioBono,omitempty"`
	PrecioTratamiento *float64 `json:"precioTratamiento,omitempty"`
	Extras            *float64 `json:"extras,omitempty"`

	// notes
	Observaciones      *string `json:"observaciones,omitempty"`
	ObservacionesTurno *string `json:"observacionesTurno,omitempty"`

	// status
	Estado clinicapi.AppointmentStatus `json:"estado,omitempty"`

	// time
	Hora string `json:"hora,omitempty"`
}

func decodeUpdates(raw []json.RawMessage) ([]appointments.Update, error) {
	var out []appointments.Update
	for _, msg := range raw {
		var v updateVariant
		if err := json.Unmarshal(msg, &v); err != nil {
			return nil, err
		}
		switch v.Type {
		case "prices":
			out = append(out, appointments.PriceUpdate{
				PrecioBono:        v.PrecioBono,
				PrecioTratamiento: v.PrecioTratamiento,
				Extras:            v.Extras,
			})
		case "notes":
			out = append(out, appointments.NoteUpdate{
				Observaciones:      v.Observaciones,
				ObservacionesTurno: v.ObservacionesTurno,
			})
		case "status":
			out = append(out, appointments.StatusUpdate{Estado: v.Estado})
		case "time":
			out = append(out, appointments.TimeUpdate{Hora: v.Hora})
		default:
			return nil, &unknownUpdateError{v.Type}
		}
	}
	return out, nil
}

type unknownUpdateError struct{ kind string }

func (e *unknownUpdateError) Error() string { return "unknown update type " + strconv.Quote(e.kind) }

// UpdateAppointment applies one or more typed partial updates.
// PATCH /desk/appointments/{id}
func (h *AppointmentsHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "id inválido")
		return
	}
	var in updateRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || len(in.Updates) == 0 {
		respondError(w, http.StatusBadRequest, "cuerpo de la solicitud inválido")
		return
	}
	updates, err := decodeUpdates(in.Updates)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.svc.Update(r.Context(), id, updates...)
	if err != nil {
		if _, ok := clinicapi.AsAPIError(err); !ok {
			// Rejected before any network call: an empty or malformed variant.
			respondError(w, http.StatusUnprocessableEntity, "Los datos ingresados no son válidos. Verifique el formato e intente nuevamente.")
			return
		}
		respondBackendError(w, err, "actualizar el turno")
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

type statusRequest struct {
	Estado clinicapi.AppointmentStatus `json:"estado"`
}

// ChangeStatus moves an appointment through its lifecycle.
// PATCH /desk/appointments/{id}/estado
func (h *AppointmentsHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "id inválido")
		return
	}
	var in statusRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Estado == "" {
		respondError(w, http.StatusBadRequest, "estado es obligatorio")
		return
	}

	if err := h.svc.ChangeStatus(r.Context(), id, in.Estado); err != nil {
		if errors.Is(err, appointments.ErrIllegalTransition) {
			respondError(w, http.StatusConflict, "No se puede realizar ese cambio de estado.")
			return
		}
		respondBackendError(w, err, "actualizar el estado del turno")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type paymentRequest struct {
	Monto float64 `json:"monto"`
}

// AddPayment registers a payment against an appointment.
// POST /desk/appointments/{id}/payments
func (h *AppointmentsHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "id inválido")
		return
	}
	var in paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "cuerpo de la solicitud inválido")
		return
	}

	if err := h.svc.AddPayment(r.Context(), id, in.Monto); err != nil {
		if errors.Is(err, appointments.ErrInvalidAmount) {
			respondError(w, http.StatusUnprocessableEntity, "El monto del pago debe ser mayor a cero.")
			return
		}
		respondBackendError(w, err, "registrar el pago")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// DeleteAppointment removes an appointment. The caller signals the
// receptionist confirmed the dialog with confirm=true.
// DELETE /desk/appointments/{id}?confirm=true
func (h *AppointmentsHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "id inválido")
		return
	}
	confirmed := r.URL.Query().Get("confirm") == "true"

	if err := h.svc.Delete(r.Context(), id, confirmed); err != nil {
		if errors.Is(err, appointments.ErrNotConfirmed) {
			respondError(w, http.StatusPreconditionRequired, "La eliminación requiere confirmación.")
			return
		}
		respondBackendError(w, err, "eliminar el turno")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
