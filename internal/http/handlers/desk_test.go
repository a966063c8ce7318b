package handlers

import (
	"context"
	"net/http/httptest"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/agendadental/clinicdesk/internal/appointments"
	"github.com/agendadental/clinicdesk/internal/clinicapi"
	"github.com/agendadental/clinicdesk/internal/notify"
	"github.com/agendadental/clinicdesk/internal/patients"
	"github.com/agendadental/clinicdesk/internal/professionals"
)

// fakeBackend stands in for the clinic backend client across every desk
// handler test. Call names are recorded in order.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	appointments []clinicapi.Appointment
	patients     []clinicapi.Patient
	profs        []clinicapi.Profesional
	estados      []clinicapi.EstadoProfesional
	counts       map[string]int

	available  bool
	byDateErr  error
	createErr  error
	pendingErr error
	updated    map[string]any
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeBackend) callNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) ListAppointments(ctx context.Context, pendingOnly bool) ([]clinicapi.Appointment, error) {
	if pendingOnly {
		f.record("list_pending")
		if f.pendingErr != nil {
			return nil, f.pendingErr
		}
		var out []clinicapi.Appointment
		for _, a := range f.appointments {
			if a.PrecioBono+a.PrecioTratamiento+a.Extras-a.MontoPago > 0 {
				out = append(out, a)
			}
		}
		return out, nil
	}
	f.record("list_appointments")
	return f.appointments, nil
}

func (f *fakeBackend) AppointmentsByDate(ctx context.Context, fecha string) ([]clinicapi.Appointment, error) {
	f.record("by_date")
	if f.byDateErr != nil {
		return nil, f.byDateErr
	}
	var out []clinicapi.Appointment
	for _, a := range f.appointments {
		if a.Fecha == fecha {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeBackend) CountByDate(ctx context.Context, from, to string) (map[string]int, error) {
	f.record("counts")
	return f.counts, nil
}

func (f *fakeBackend) CheckAvailability(ctx context.Context, profesionalID int64, fecha, hora string) (bool, error) {
	f.record("availability")
	return f.available, nil
}

func (f *fakeBackend) CreateAppointment(ctx context.Context, in clinicapi.AppointmentCreate) (*clinicapi.Appointment, error) {
	f.record("create_appointment")
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &clinicapi.Appointment{ID: 42, PatientID: in.PatientID, Fecha: in.Fecha, Hora: in.Hora}, nil
}

func (f *fakeBackend) UpdateAppointment(ctx context.Context, id int64, fields map[string]any) (*clinicapi.Appointment, error) {
	f.record("update_appointment")
	f.mu.Lock()
	f.updated = fields
	f.mu.Unlock()
	return &clinicapi.Appointment{ID: id}, nil
}

func (f *fakeBackend) UpdateAppointmentStatus(ctx context.Context, id int64, estado clinicapi.AppointmentStatus) error {
	f.record("update_status")
	return nil
}

func (f *fakeBackend) AddPayment(ctx context.Context, id int64, amount float64) error {
	f.record("add_payment")
	return nil
}

func (f *fakeBackend) DeleteAppointment(ctx context.Context, id int64) error {
	f.record("delete_appointment")
	return nil
}

func (f *fakeBackend) ListPatients(ctx context.Context) ([]clinicapi.Patient, error) {
	f.record("list_patients")
	return f.patients, nil
}

func (f *fakeBackend) GetPatient(ctx context.Context, id int64) (*clinicapi.Patient, error) {
	return &clinicapi.Patient{ID: id}, nil
}

func (f *fakeBackend) PatientByDNI(ctx context.Context, dni string) (*clinicapi.Patient, error) {
	f.record("by_dni")
	return &clinicapi.Patient{ID: 1, DNI: dni, NombreApellido: "María González"}, nil
}

func (f *fakeBackend) SearchPatients(ctx context.Context, query string) ([]clinicapi.Patient, error) {
	f.record("search_patients")
	return f.patients, nil
}

func (f *fakeBackend) CreatePatient(ctx context.Context, in clinicapi.Patient) (*clinicapi.Patient, error) {
	f.record("create_patient")
	out := in
	out.ID = 7
	return &out, nil
}

func (f *fakeBackend) UpdatePatient(ctx context.Context, id int64, in clinicapi.Patient) (*clinicapi.Patient, error) {
	f.record("update_patient")
	out := in
	out.ID = id
	return &out, nil
}

func (f *fakeBackend) DeletePatient(ctx context.Context, id int64) error {
	f.record("delete_patient")
	return nil
}

func (f *fakeBackend) ListProfesionales(ctx context.Context) ([]clinicapi.Profesional, error) {
	f.record("list_profs")
	return f.profs, nil
}

func (f *fakeBackend) GetProfesional(ctx context.Context, id int64) (*clinicapi.Profesional, error) {
	return &clinicapi.Profesional{ID: id}, nil
}

func (f *fakeBackend) CreateProfesional(ctx context.Context, in clinicapi.Profesional) (*clinicapi.Profesional, error) {
	f.record("create_prof")
	out := in
	out.ID = 9
	return &out, nil
}

func (f *fakeBackend) UpdateProfesional(ctx context.Context, id int64, in clinicapi.Profesional) (*clinicapi.Profesional, error) {
	f.record("update_prof")
	out := in
	out.ID = id
	return &out, nil
}

func (f *fakeBackend) DeleteProfesional(ctx context.Context, id int64) error {
	f.record("delete_prof")
	return nil
}

func (f *fakeBackend) ToggleProfesionalActive(ctx context.Context, id int64) error {
	f.record("toggle_prof")
	return nil
}

func (f *fakeBackend) ListEstadosProfesional(ctx context.Context) ([]clinicapi.EstadoProfesional, error) {
	f.record("list_estados")
	return f.estados, nil
}

// newDeskServer wires the full desk surface over the fake backend.
func newDeskServer(backend *fakeBackend) (*httptest.Server, *notify.Recorder) {
	rec := &notify.Recorder{}
	apptSvc := appointments.NewService(backend, rec, nil)
	checker := appointments.NewChecker(backend, 0, nil)
	patientSvc := patients.NewService(backend, rec, nil)
	profSvc := professionals.NewService(backend, rec, nil)

	r := chi.NewRouter()
	r.Route("/desk", func(r chi.Router) {
		RegisterDeskRoutes(r, apptSvc, checker, patientSvc, profSvc, backend, nil)
	})
	return httptest.NewServer(r), rec
}
