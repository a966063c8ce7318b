package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendadental/clinicdesk/internal/clinicapi"
)

func TestFilterPatientsCombobox(t *testing.T) {
	backend := &fakeBackend{patients: []clinicapi.Patient{
		{ID: 1, NombreApellido: "María González", DNI: "30456789"},
		{ID: 2, NombreApellido: "Juan Pérez", DNI: "28123456"},
	}}
	srv, _ := newDeskServer(backend)
	defer srv.Close()

	// Warm the patient snapshot via a create.
	resp := doJSON(t, http.MethodPost, srv.URL+"/desk/patients", clinicapi.Patient{NombreApellido: "Ana Ruiz", DNI: "33111222"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/desk/patients?query=gonz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	found := decodeBody[[]PatientView](t, resp)
	require.Len(t, found, 1)
	assert.Equal(t, "María González", found[0].NombreApellido)

	resp = doJSON(t, http.MethodGet, srv.URL+"/desk/patients?query=g", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeBody[[]PatientView](t, resp), "single-character queries match nothing")
}

func TestCreatePatientInvalidIntake(t *testing.T) {
	backend := &fakeBackend{}
	srv, _ := newDeskServer(backend)
	defer srv.Close()

	resp := doJSON(t, http.MethodPost, srv.URL+"/desk/patients", clinicapi.Patient{DNI: "30456789"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.NotContains(t, backend.callNames(), "create_patient")
}

func TestCreatePatientHolderRule(t *testing.T) {
	backend := &fakeBackend{}
	srv, _ := newDeskServer(backend)
	defer srv.Close()

	notHolder := false
	resp := doJSON(t, http.MethodPost, srv.URL+"/desk/patients", clinicapi.Patient{
		NombreApellido: "María González",
		DNI:            "30456789",
		EsTitular:      &notHolder,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestGetByDNI(t *testing.T) {
	backend := &fakeBackend{}
	srv, _ := newDeskServer(backend)
	defer srv.Close()

	resp := doJSON(t, http.MethodGet, srv.URL+"/desk/patients/dni/30456789", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decodeBody[PatientView](t, resp)
	assert.Equal(t, "30456789", p.DNI)
}

func TestSearchPatientsRequiresQuery(t *testing.T) {
	srv, _ := newDeskServer(&fakeBackend{})
	defer srv.Close()

	resp := doJSON(t, http.MethodGet, srv.URL+"/desk/patients/search", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPatientViewCarriesDerivedAge(t *testing.T) {
	backend := &fakeBackend{}
	srv, _ := newDeskServer(backend)
	defer srv.Close()

	resp := doJSON(t, http.MethodPost, srv.URL+"/desk/patients", clinicapi.Patient{
		NombreApellido:  "María González",
		DNI:             "30456789",
		FechaNacimiento: "1989-11-15",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	p := decodeBody[PatientView](t, resp)
	assert.NotEmpty(t, p.Edad)
}

func TestListProfessionalsScheduling(t *testing.T) {
	inactive := false
	backend := &fakeBackend{
		profs: []clinicapi.Profesional{
			{ID: 1, Nombre: "Dra. López", Estado: "Disponible"},
			{ID: 2, Nombre: "Dr. Ramírez", Activo: &inactive},
		},
		estados: []clinicapi.EstadoProfesional{{ID: 1, Nombre: "Disponible", Color: "#4caf50"}},
	}
	srv, _ := newDeskServer(backend)
	defer srv.Close()

	// Warm both snapshots through mutations.
	doJSON(t, http.MethodPatch, srv.URL+"/desk/professionals/1/toggle", nil)

	resp := doJSON(t, http.MethodGet, srv.URL+"/desk/professionals?scheduling=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody[[]ProfessionalView](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].ID)
}

func TestFollowUpEndpoint(t *testing.T) {
	backend := &fakeBackend{appointments: []clinicapi.Appointment{
		{ID: 1, PatientName: "María González", PatientDNI: "30456789", Fecha: "2024-11-20", PrecioTratamiento: 300, MontoPago: 100},
		{ID: 2, PatientName: "Juan Pérez", PatientDNI: "28123456", Fecha: "2024-11-20", PrecioTratamiento: 100, MontoPago: 100},
	}}
	srv, _ := newDeskServer(backend)
	defer srv.Close()

	// Warm the appointment snapshot.
	doJSON(t, http.MethodPost, srv.URL+"/desk/appointments/1/payments", paymentRequest{Monto: 1})

	resp := doJSON(t, http.MethodGet, srv.URL+"/desk/followup?pending=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[FollowUpResponse](t, resp)
	require.Len(t, body.Entries, 1)
	assert.Equal(t, 200.0, body.Total)

	assert.Contains(t, backend.callNames(), "list_pending", "pending view asks the backend, not the snapshot")

	resp = doJSON(t, http.MethodGet, srv.URL+"/desk/followup?grouped=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	grouped := decodeBody[FollowUpResponse](t, resp)
	assert.Len(t, grouped.Groups, 2)
	assert.Empty(t, grouped.Entries)
}

func TestFollowUpPendingFallsBackToSnapshot(t *testing.T) {
	backend := &fakeBackend{appointments: []clinicapi.Appointment{
		{ID: 1, PatientName: "María González", PatientDNI: "30456789", Fecha: "2024-11-20", PrecioTratamiento: 300, MontoPago: 100},
	}}
	srv, _ := newDeskServer(backend)
	defer srv.Close()

	// Warm the appointment snapshot, then cut the pending query off.
	doJSON(t, http.MethodPost, srv.URL+"/desk/appointments/1/payments", paymentRequest{Monto: 1})
	backend.pendingErr = errors.New("dial tcp: connection refused")

	resp := doJSON(t, http.MethodGet, srv.URL+"/desk/followup?pending=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[FollowUpResponse](t, resp)
	require.Len(t, body.Entries, 1)
	assert.Equal(t, 200.0, body.Total)
}

func TestFollowUpPendingBackendError(t *testing.T) {
	backend := &fakeBackend{
		pendingErr: &clinicapi.APIError{Status: http.StatusInternalServerError},
	}
	srv, _ := newDeskServer(backend)
	defer srv.Close()

	resp := doJSON(t, http.MethodGet, srv.URL+"/desk/followup?pending=true", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
