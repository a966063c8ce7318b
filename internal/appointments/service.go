package appointments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/agendadental/clinicdesk/internal/cache"
	"github.com/agendadental/clinicdesk/internal/clinicapi"
	"github.com/agendadental/clinicdesk/internal/errmsg"
	"github.com/agendadental/clinicdesk/internal/notify"
	"github.com/agendadental/clinicdesk/internal/observability/metrics"
	"github.com/agendadental/clinicdesk/pkg/logging"
)

// Errors surfaced before any network call.
var (
	ErrInvalidAmount     = errors.New("appointments: payment amount must be positive")
	ErrNotConfirmed      = errors.New("appointments: delete requires prior confirmation")
	ErrIllegalTransition = errors.New("appointments: status transition not allowed")
)

// API is the slice of the backend client the coordinator needs.
type API interface {
	ListAppointments(ctx context.Context, pendingOnly bool) ([]clinicapi.Appointment, error)
	CreateAppointment(ctx context.Context, in clinicapi.AppointmentCreate) (*clinicapi.Appointment, error)
	UpdateAppointment(ctx context.Context, id int64, fields map[string]any) (*clinicapi.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id int64, estado clinicapi.AppointmentStatus) error
	AddPayment(ctx context.Context, id int64, amount float64) error
	DeleteAppointment(ctx context.Context, id int64) error
	CreatePatient(ctx context.Context, in clinicapi.Patient) (*clinicapi.Patient, error)
}

// Service coordinates appointment mutations: every successful mutation
// refreshes the snapshot wholesale, every failure is classified into a user
// notification unless the caller opted into component-level handling or the
// status is one the backend owns (401/403/404).
const mirrorCollection = "appointments"

type Service struct {
	api      API
	cache    *cache.Snapshot[clinicapi.Appointment]
	notifier notify.Notifier
	metrics  *metrics.DeskMetrics
	logger   *logging.Logger
	mirror   *cache.Mirror

	// Advisory transition graph enforcement (off by default; the backend is
	// authoritative either way).
	enforceTransitions bool

	mu       sync.Mutex
	inFlight map[string]int
}

type ServiceOption func(*Service)

// WithTransitionEnforcement blocks illegal status transitions client-side
// instead of leaving them entirely to the backend.
func WithTransitionEnforcement() ServiceOption {
	return func(s *Service) { s.enforceTransitions = true }
}

func WithMetrics(m *metrics.DeskMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithMirror persists each refreshed snapshot to Redis and allows serving the
// last mirrored copy when the backend is unreachable on a cold start.
func WithMirror(m *cache.Mirror) ServiceOption {
	return func(s *Service) { s.mirror = m }
}

func NewService(api API, notifier notify.Notifier, logger *logging.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		api:      api,
		notifier: notifier,
		logger:   logger,
		inFlight: make(map[string]int),
	}
	s.cache = cache.NewSnapshot(func(ctx context.Context) ([]clinicapi.Appointment, error) {
		return api.ListAppointments(ctx, false)
	})
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cache exposes the appointments snapshot.
func (s *Service) Cache() *cache.Snapshot[clinicapi.Appointment] { return s.cache }

// Refresh reloads the snapshot from the backend. 404 on a list load means
// "no data yet", not a failure worth a toast. On success the mirror (when
// configured) gets the new copy; a network failure with an empty local
// snapshot serves the mirror copy instead.
func (s *Service) Refresh(ctx context.Context) error {
	err := s.cache.Refresh(ctx)
	s.metrics.ObserveCacheRefresh(mirrorCollection, err)
	if err == nil {
		s.saveMirror(ctx)
		return nil
	}
	if clinicapi.StatusOf(err) == http.StatusNotFound {
		s.cache.Replace(nil)
		return nil
	}
	if errmsg.IsNetwork(err) && len(s.cache.Items()) == 0 && s.restoreFromMirror(ctx) {
		s.logger.Warn("backend unreachable, serving mirrored appointments snapshot")
		return nil
	}
	return err
}

func (s *Service) saveMirror(ctx context.Context) {
	if s.mirror == nil {
		return
	}
	if err := cache.Save(ctx, s.mirror, mirrorCollection, s.cache.Items()); err != nil {
		s.logger.Warn("appointments mirror save failed", "error", err)
	}
}

func (s *Service) restoreFromMirror(ctx context.Context) bool {
	if s.mirror == nil {
		return false
	}
	items, err := cache.Load[clinicapi.Appointment](ctx, s.mirror, mirrorCollection)
	if err != nil {
		s.logger.Warn("appointments mirror load failed", "error", err)
		return false
	}
	if len(items) == 0 {
		return false
	}
	s.cache.Replace(items)
	return true
}

// ForDate returns the cached appointments for one calendar day.
func (s *Service) ForDate(fecha string) []clinicapi.Appointment {
	var out []clinicapi.Appointment
	for _, a := range s.cache.Items() {
		if a.Fecha == fecha {
			out = append(out, a)
		}
	}
	return out
}

// Lookup returns the cached appointment with the given id.
func (s *Service) Lookup(id int64) (clinicapi.Appointment, bool) {
	for _, a := range s.cache.Items() {
		if a.ID == id {
			return a, true
		}
	}
	return clinicapi.Appointment{}, false
}

// InFlight reports whether an operation of the given kind is currently
// running. The UI consults this to disable duplicate submission; the
// coordinator itself neither queues nor cancels concurrent calls.
func (s *Service) InFlight(operation string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[operation] > 0
}

func (s *Service) begin(operation string) {
	s.mu.Lock()
	s.inFlight[operation]++
	s.mu.Unlock()
}

func (s *Service) end(operation string) {
	s.mu.Lock()
	s.inFlight[operation]--
	s.mu.Unlock()
}

// Create creates an appointment, creating the patient first when the draft
// has no identifier yet. If patient creation fails the appointment is never
// attempted. The cache is refreshed only on success; a failed create leaves
// the dialog open with the previous snapshot intact.
func (s *Service) Create(ctx context.Context, patient clinicapi.Patient, appt clinicapi.AppointmentCreate, notifyOnError bool) (*clinicapi.Appointment, error) {
	s.begin("create")
	defer s.end("create")

	patientID := patient.ID
	if patientID == 0 {
		created, err := s.api.CreatePatient(ctx, patient)
		if err != nil {
			s.metrics.ObserveMutation("create", err)
			s.notifyError(err, "crear el paciente", notifyOnError)
			return nil, fmt.Errorf("appointments: create patient: %w", err)
		}
		patientID = created.ID
	}
	appt.PatientID = patientID

	created, err := s.api.CreateAppointment(ctx, appt)
	s.metrics.ObserveMutation("create", err)
	if err != nil {
		s.notifyError(err, "crear el turno", notifyOnError)
		return nil, fmt.Errorf("appointments: create: %w", err)
	}

	s.refreshAfterMutation(ctx)
	s.notifier.Success("Turno creado correctamente.")
	return created, nil
}

// Update applies one or more typed partial updates.
func (s *Service) Update(ctx context.Context, id int64, updates ...Update) (*clinicapi.Appointment, error) {
	fields, err := buildUpdatePayload(updates...)
	if err != nil {
		s.notifier.Warning("Los datos ingresados no son válidos. Verifique el formato e intente nuevamente.")
		return nil, err
	}

	s.begin("update")
	defer s.end("update")

	updated, err := s.api.UpdateAppointment(ctx, id, fields)
	s.metrics.ObserveMutation("update", err)
	if err != nil {
		s.notifyError(err, "actualizar el turno", true)
		return nil, fmt.Errorf("appointments: update %d: %w", id, err)
	}

	s.refreshAfterMutation(ctx)
	s.notifier.Success("Turno actualizado correctamente.")
	return updated, nil
}

// ChangeStatus requests a status transition. With enforcement enabled an
// illegal transition is rejected locally; otherwise the graph is advisory
// coloring only and the backend decides.
func (s *Service) ChangeStatus(ctx context.Context, id int64, estado clinicapi.AppointmentStatus) error {
	if s.enforceTransitions {
		if current, ok := s.Lookup(id); ok && !CanTransition(current.Estado, estado) {
			s.notifier.Warning(fmt.Sprintf("No se puede pasar un turno de %s a %s.", current.Estado, estado))
			return ErrIllegalTransition
		}
	}

	s.begin("status")
	defer s.end("status")

	err := s.api.UpdateAppointmentStatus(ctx, id, estado)
	s.metrics.ObserveMutation("status", err)
	if err != nil {
		s.notifyError(err, "actualizar el estado del turno", true)
		return fmt.Errorf("appointments: change status %d: %w", id, err)
	}

	s.refreshAfterMutation(ctx)
	s.notifier.Success("Estado del turno actualizado.")
	return nil
}

// AddPayment registers a payment. Non-positive amounts are rejected locally,
// before any network call.
func (s *Service) AddPayment(ctx context.Context, id int64, amount float64) error {
	if amount <= 0 {
		s.notifier.Warning("El monto del pago debe ser mayor a cero.")
		return ErrInvalidAmount
	}

	s.begin("payment")
	defer s.end("payment")

	err := s.api.AddPayment(ctx, id, amount)
	s.metrics.ObserveMutation("payment", err)
	if err != nil {
		s.notifyError(err, "agregar el pago", true)
		return fmt.Errorf("appointments: add payment %d: %w", id, err)
	}

	s.refreshAfterMutation(ctx)
	s.notifier.Success("Pago registrado correctamente.")
	return nil
}

// Delete removes an appointment. The caller must have run an explicit confirm
// step first. A 404 means someone else already removed it: the outcome the
// user wanted, so the delete is treated as resolved without a notification.
func (s *Service) Delete(ctx context.Context, id int64, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}

	s.begin("delete")
	defer s.end("delete")

	err := s.api.DeleteAppointment(ctx, id)
	s.metrics.ObserveMutation("delete", err)
	if err != nil {
		if clinicapi.StatusOf(err) == http.StatusNotFound {
			s.refreshAfterMutation(ctx)
			return nil
		}
		s.notifyError(err, "eliminar el turno", true)
		return fmt.Errorf("appointments: delete %d: %w", id, err)
	}

	s.refreshAfterMutation(ctx)
	s.notifier.Success("Turno eliminado correctamente.")
	return nil
}

// PendingOnly fetches the appointments with an outstanding balance straight
// from the backend; the server computes the balance, so this never goes
// through the snapshot.
func (s *Service) PendingOnly(ctx context.Context) ([]clinicapi.Appointment, error) {
	return s.api.ListAppointments(ctx, true)
}

func (s *Service) refreshAfterMutation(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		// The mutation itself succeeded; a failed refresh only delays the
		// snapshot until the next load.
		s.logger.Warn("cache refresh after mutation failed", "error", err)
	}
}

// notifyError surfaces a classified error message unless the caller handles
// errors itself, or the status is backend-owned (401/403/404 carry their own
// handling paths).
func (s *Service) notifyError(err error, action string, notifyOnError bool) {
	if !notifyOnError {
		return
	}
	switch clinicapi.StatusOf(err) {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return
	}
	s.notifier.Error(errmsg.For(err, action))
}
