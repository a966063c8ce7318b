// Package patients keeps the desk's patient collection and the intake rules
// the patient form enforces before anything reaches the backend.
package patients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/agendadental/clinicdesk/internal/cache"
	"github.com/agendadental/clinicdesk/internal/clinicapi"
	"github.com/agendadental/clinicdesk/internal/dates"
	"github.com/agendadental/clinicdesk/internal/errmsg"
	"github.com/agendadental/clinicdesk/internal/notify"
	"github.com/agendadental/clinicdesk/internal/observability/metrics"
	"github.com/agendadental/clinicdesk/pkg/logging"
)

const mirrorCollection = "patients"

// minSearchLen is the minimum query length before local filtering kicks in,
// matching the combobox behavior of the intake dialog.
const minSearchLen = 2

var ErrInvalidPatient = errors.New("patients: invalid patient data")

// API is the slice of the backend client the patient service needs.
type API interface {
	ListPatients(ctx context.Context) ([]clinicapi.Patient, error)
	GetPatient(ctx context.Context, id int64) (*clinicapi.Patient, error)
	PatientByDNI(ctx context.Context, dni string) (*clinicapi.Patient, error)
	SearchPatients(ctx context.Context, query string) ([]clinicapi.Patient, error)
	CreatePatient(ctx context.Context, in clinicapi.Patient) (*clinicapi.Patient, error)
	UpdatePatient(ctx context.Context, id int64, in clinicapi.Patient) (*clinicapi.Patient, error)
	DeletePatient(ctx context.Context, id int64) error
}

// Service owns the patient snapshot and the intake validation rules.
type Service struct {
	api      API
	cache    *cache.Snapshot[clinicapi.Patient]
	notifier notify.Notifier
	metrics  *metrics.DeskMetrics
	mirror   *cache.Mirror
	logger   *logging.Logger
}

type Option func(*Service)

func WithMetrics(m *metrics.DeskMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithMirror persists each refreshed snapshot to Redis and allows serving the
// last-known copy while the backend is unreachable at startup.
func WithMirror(m *cache.Mirror) Option {
	return func(s *Service) { s.mirror = m }
}

func NewService(api API, notifier notify.Notifier, logger *logging.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{api: api, notifier: notifier, logger: logger}
	s.cache = cache.NewSnapshot(api.ListPatients)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Cache() *cache.Snapshot[clinicapi.Patient] { return s.cache }

// Refresh reloads the snapshot. A 404 list response means an empty collection.
// On success the mirror (when configured) gets the new copy; on a network
// failure with an empty local snapshot the mirror copy is served instead.
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
		s.logger.Warn("backend unreachable, serving mirrored patients snapshot")
		return nil
	}
	return err
}

func (s *Service) saveMirror(ctx context.Context) {
	if s.mirror == nil {
		return
	}
	if err := cache.Save(ctx, s.mirror, mirrorCollection, s.cache.Items()); err != nil {
		s.logger.Warn("patients mirror save failed", "error", err)
	}
}

func (s *Service) restoreFromMirror(ctx context.Context) bool {
	if s.mirror == nil {
		return false
	}
	items, err := cache.Load[clinicapi.Patient](ctx, s.mirror, mirrorCollection)
	if err != nil {
		s.logger.Warn("patients mirror load failed", "error", err)
		return false
	}
	if len(items) == 0 {
		return false
	}
	s.cache.Replace(items)
	return true
}

// FilterLocal narrows the cached patients by name, DNI or email substring.
// Queries shorter than two characters return no matches, like the combobox.
func (s *Service) FilterLocal(query string) []clinicapi.Patient {
	q := strings.ToLower(strings.TrimSpace(query))
	if len(q) < minSearchLen {
		return nil
	}
	var out []clinicapi.Patient
	for _, p := range s.cache.Items() {
		if strings.Contains(strings.ToLower(p.NombreApellido), q) ||
			strings.Contains(p.DNI, q) ||
			(p.Email != "" && strings.Contains(strings.ToLower(p.Email), q)) {
			out = append(out, p)
		}
	}
	return out
}

// Search queries the backend text search.
func (s *Service) Search(ctx context.Context, query string) ([]clinicapi.Patient, error) {
	return s.api.SearchPatients(ctx, query)
}

// ByDNI looks one patient up by national ID.
func (s *Service) ByDNI(ctx context.Context, dni string) (*clinicapi.Patient, error) {
	return s.api.PatientByDNI(ctx, dni)
}

// Create validates and creates a patient, then refreshes the snapshot.
func (s *Service) Create(ctx context.Context, p clinicapi.Patient, notifyOnError bool) (*clinicapi.Patient, error) {
	p = Normalize(p)
	if err := Validate(p); err != nil {
		s.notifier.Warning(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatient, err)
	}

	created, err := s.api.CreatePatient(ctx, p)
	if err != nil {
		if notifyOnError {
			s.notifier.Error(errmsg.For(err, "crear el paciente"))
		}
		return nil, fmt.Errorf("patients: create: %w", err)
	}

	s.refreshAfterMutation(ctx)
	s.notifier.Success("Paciente creado correctamente.")
	return created, nil
}

// Update replaces the full patient record; the form always submits the
// complete record, so partial merges never happen client-side.
func (s *Service) Update(ctx context.Context, id int64, p clinicapi.Patient) (*clinicapi.Patient, error) {
	p = Normalize(p)
	if err := Validate(p); err != nil {
		s.notifier.Warning(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatient, err)
	}

	updated, err := s.api.UpdatePatient(ctx, id, p)
	if err != nil {
		s.notifier.Error(errmsg.For(err, "gestionar el paciente"))
		return nil, fmt.Errorf("patients: update %d: %w", id, err)
	}

	s.refreshAfterMutation(ctx)
	s.notifier.Success("Paciente actualizado correctamente.")
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.api.DeletePatient(ctx, id); err != nil {
		s.notifier.Error(errmsg.For(err, "gestionar el paciente"))
		return fmt.Errorf("patients: delete %d: %w", id, err)
	}
	s.refreshAfterMutation(ctx)
	s.notifier.Success("Paciente eliminado correctamente.")
	return nil
}

func (s *Service) refreshAfterMutation(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("patients refresh after mutation failed", "error", err)
	}
}

// Normalize trims the free-text personal fields, the way the form does before
// submit.
func Normalize(p clinicapi.Patient) clinicapi.Patient {
	p.NombreApellido = strings.TrimSpace(p.NombreApellido)
	p.DNI = strings.TrimSpace(p.DNI)
	p.Telefono = strings.TrimSpace(p.Telefono)
	p.Email = strings.TrimSpace(p.Email)
	p.Domicilio = strings.TrimSpace(p.Domicilio)
	p.Localidad = strings.TrimSpace(p.Localidad)
	return p
}

// Validate applies the intake rules: the identity fields are required, a
// birth date must be plausible, and when the patient is not the policy
// holder the holder's name, DNI and relationship become required.
func Validate(p clinicapi.Patient) error {
	if p.NombreApellido == "" {
		return errors.New("El nombre y apellido del paciente es obligatorio.")
	}
	if p.DNI == "" {
		return errors.New("El DNI del paciente es obligatorio.")
	}
	if p.FechaNacimiento != "" {
		if _, ok := dates.Age(p.FechaNacimiento, time.Now()); !ok {
			return errors.New("La fecha de nacimiento no es válida.")
		}
	}
	if p.EsTitular != nil && !*p.EsTitular {
		if strings.TrimSpace(p.NombreTitular) == "" ||
			strings.TrimSpace(p.DNITitular) == "" ||
			strings.TrimSpace(p.Parentesco) == "" {
			return errors.New("Complete los datos del titular de la obra social (nombre, DNI y parentesco).")
		}
	}
	return nil
}

// DerivedAge returns the display age for a patient, empty when unknown.
func DerivedAge(p clinicapi.Patient, now time.Time) string {
	if p.FechaNacimiento == "" {
		return ""
	}
	age, ok := dates.Age(p.FechaNacimiento, now)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%d", age)
}
