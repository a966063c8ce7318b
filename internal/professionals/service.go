// Package professionals keeps the professional roster and its status
// taxonomy cached for scheduling dropdowns and roster management.
package professionals

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/agendadental/clinicdesk/internal/cache"
	"github.com/agendadental/clinicdesk/internal/clinicapi"
	"github.com/agendadental/clinicdesk/internal/errmsg"
	"github.com/agendadental/clinicdesk/internal/notify"
	"github.com/agendadental/clinicdesk/internal/observability/metrics"
	"github.com/agendadental/clinicdesk/pkg/logging"
)

// API is the slice of the backend client this service needs.
type API interface {
	ListProfesionales(ctx context.Context) ([]clinicapi.Profesional, error)
	GetProfesional(ctx context.Context, id int64) (*clinicapi.Profesional, error)
	CreateProfesional(ctx context.Context, in clinicapi.Profesional) (*clinicapi.Profesional, error)
	UpdateProfesional(ctx context.Context, id int64, in clinicapi.Profesional) (*clinicapi.Profesional, error)
	DeleteProfesional(ctx context.Context, id int64) error
	ToggleProfesionalActive(ctx context.Context, id int64) error
	ListEstadosProfesional(ctx context.Context) ([]clinicapi.EstadoProfesional, error)
}

const mirrorCollection = "professionals"

type Service struct {
	api      API
	notifier notify.Notifier
	metrics  *metrics.DeskMetrics
	logger   *logging.Logger
	mirror   *cache.Mirror

	cache   *cache.Snapshot[clinicapi.Profesional]
	estados *cache.Snapshot[clinicapi.EstadoProfesional]
}

type Option func(*Service)

func WithMetrics(m *metrics.DeskMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithMirror persists each refreshed roster snapshot to Redis and allows
// serving the last mirrored copy when the backend is unreachable on a cold
// start.
func WithMirror(m *cache.Mirror) Option {
	return func(s *Service) { s.mirror = m }
}

func NewService(api API, notifier notify.Notifier, logger *logging.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{api: api, notifier: notifier, logger: logger}
	s.cache = cache.NewSnapshot(api.ListProfesionales)
	s.estados = cache.NewSnapshot(api.ListEstadosProfesional)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Cache() *cache.Snapshot[clinicapi.Profesional] { return s.cache }

// Refresh reloads the roster snapshot. A 404 means an empty roster. On
// success the mirror (when configured) gets the new copy; a network failure
// with an empty local snapshot serves the mirror copy instead.
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
		s.logger.Warn("backend unreachable, serving mirrored professionals snapshot")
		return nil
	}
	return err
}

func (s *Service) saveMirror(ctx context.Context) {
	if s.mirror == nil {
		return
	}
	if err := cache.Save(ctx, s.mirror, mirrorCollection, s.cache.Items()); err != nil {
		s.logger.Warn("professionals mirror save failed", "error", err)
	}
}

func (s *Service) restoreFromMirror(ctx context.Context) bool {
	if s.mirror == nil {
		return false
	}
	items, err := cache.Load[clinicapi.Profesional](ctx, s.mirror, mirrorCollection)
	if err != nil {
		s.logger.Warn("professionals mirror load failed", "error", err)
		return false
	}
	if len(items) == 0 {
		return false
	}
	s.cache.Replace(items)
	return true
}

// RefreshEstados reloads the status taxonomy. The taxonomy changes rarely,
// so callers load it once at startup and after taxonomy edits.
func (s *Service) RefreshEstados(ctx context.Context) error {
	err := s.estados.Refresh(ctx)
	s.metrics.ObserveCacheRefresh("estados_profesional", err)
	if clinicapi.StatusOf(err) == http.StatusNotFound {
		s.estados.Replace(nil)
		return nil
	}
	return err
}

// ForScheduling returns the professionals offered in the appointment dialog.
// Anyone not explicitly deactivated is schedulable.
func (s *Service) ForScheduling() []clinicapi.Profesional {
	var out []clinicapi.Profesional
	for _, p := range s.cache.Items() {
		if p.Activo == nil || *p.Activo {
			out = append(out, p)
		}
	}
	return out
}

// Lookup finds a cached professional by id.
func (s *Service) Lookup(id int64) (clinicapi.Profesional, bool) {
	for _, p := range s.cache.Items() {
		if p.ID == id {
			return p, true
		}
	}
	return clinicapi.Profesional{}, false
}

// Estados returns the cached status taxonomy.
func (s *Service) Estados() []clinicapi.EstadoProfesional {
	return s.estados.Items()
}

// ColorFor resolves the display color of a professional status name.
// Unknown statuses get no color rather than a wrong one.
func (s *Service) ColorFor(estado string) string {
	for _, e := range s.estados.Items() {
		if strings.EqualFold(e.Nombre, estado) {
			return e.Color
		}
	}
	return ""
}

func (s *Service) Create(ctx context.Context, in clinicapi.Profesional, notifyOnError bool) (*clinicapi.Profesional, error) {
	in.Nombre = strings.TrimSpace(in.Nombre)
	if in.Nombre == "" {
		s.notifier.Warning("El nombre del profesional es obligatorio.")
		return nil, fmt.Errorf("professionals: create: missing name")
	}
	created, err := s.api.CreateProfesional(ctx, in)
	if err != nil {
		s.notifyError(err, "crear el profesional", notifyOnError)
		return nil, fmt.Errorf("professionals: create: %w", err)
	}
	s.refreshAfterMutation(ctx)
	s.notifier.Success("Profesional creado correctamente.")
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, in clinicapi.Profesional, notifyOnError bool) (*clinicapi.Profesional, error) {
	updated, err := s.api.UpdateProfesional(ctx, id, in)
	if err != nil {
		s.notifyError(err, "actualizar el profesional", notifyOnError)
		return nil, fmt.Errorf("professionals: update %d: %w", id, err)
	}
	s.refreshAfterMutation(ctx)
	s.notifier.Success("Profesional actualizado correctamente.")
	return updated, nil
}

// ToggleActive flips the active flag; the backend owns the new value, so the
// snapshot is reloaded rather than patched locally.
func (s *Service) ToggleActive(ctx context.Context, id int64, notifyOnError bool) error {
	if err := s.api.ToggleProfesionalActive(ctx, id); err != nil {
		s.notifyError(err, "cambiar el estado del profesional", notifyOnError)
		return fmt.Errorf("professionals: toggle %d: %w", id, err)
	}
	s.refreshAfterMutation(ctx)
	s.notifier.Success("Estado del profesional actualizado correctamente.")
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64, notifyOnError bool) error {
	if err := s.api.DeleteProfesional(ctx, id); err != nil {
		s.notifyError(err, "eliminar el profesional", notifyOnError)
		return fmt.Errorf("professionals: delete %d: %w", id, err)
	}
	s.refreshAfterMutation(ctx)
	s.notifier.Success("Profesional eliminado correctamente.")
	return nil
}

func (s *Service) refreshAfterMutation(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("professionals refresh after mutation failed", "error", err)
	}
}

func (s *Service) notifyError(err error, action string, notifyOnError bool) {
	if !notifyOnError || errmsg.RequiresReauth(err) || errmsg.IsForbidden(err) ||
		clinicapi.StatusOf(err) == http.StatusNotFound {
		return
	}
	s.notifier.Error(errmsg.For(err, action))
}
