package patients

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agendadental/clinicdesk/internal/cache"
	"github.com/agendadental/clinicdesk/internal/clinicapi"
	"github.com/agendadental/clinicdesk/internal/notify"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	calls   []string
	list    []clinicapi.Patient
	listErr error
	created *clinicapi.Patient
}

func (f *fakeAPI) ListPatients(ctx context.Context) ([]clinicapi.Patient, error) {
	f.calls = append(f.calls, "list")
	return f.list, f.listErr
}

func (f *fakeAPI) GetPatient(ctx context.Context, id int64) (*clinicapi.Patient, error) {
	return &clinicapi.Patient{ID: id}, nil
}

func (f *fakeAPI) PatientByDNI(ctx context.Context, dni string) (*clinicapi.Patient, error) {
	return &clinicapi.Patient{ID: 1, DNI: dni}, nil
}

func (f *fakeAPI) SearchPatients(ctx context.Context, query string) ([]clinicapi.Patient, error) {
	f.calls = append(f.calls, "search")
	return f.list, nil
}

func (f *fakeAPI) CreatePatient(ctx context.Context, in clinicapi.Patient) (*clinicapi.Patient, error) {
	f.calls = append(f.calls, "create")
	f.created = &in
	out := in
	out.ID = 7
	return &out, nil
}

func (f *fakeAPI) UpdatePatient(ctx context.Context, id int64, in clinicapi.Patient) (*clinicapi.Patient, error) {
	f.calls = append(f.calls, "update")
	out := in
	out.ID = id
	return &out, nil
}

func (f *fakeAPI) DeletePatient(ctx context.Context, id int64) error {
	f.calls = append(f.calls, "delete")
	return nil
}

func boolPtr(b bool) *bool { return &b }

func TestValidateRequiredFields(t *testing.T) {
	valid := clinicapi.Patient{NombreApellido: "María González", DNI: "30456789"}
	assert.NoError(t, Validate(valid))

	assert.Error(t, Validate(clinicapi.Patient{DNI: "30456789"}))
	assert.Error(t, Validate(clinicapi.Patient{NombreApellido: "María González"}))
}

func TestValidateHolderRule(t *testing.T) {
	base := clinicapi.Patient{NombreApellido: "María González", DNI: "30456789"}

	holder := base
	holder.EsTitular = boolPtr(true)
	assert.NoError(t, Validate(holder))

	notHolder := base
	notHolder.EsTitular = boolPtr(false)
	assert.Error(t, Validate(notHolder), "holder fields required when not the policy holder")

	notHolder.NombreTitular = "Carlos González"
	notHolder.DNITitular = "12345678"
	notHolder.Parentesco = "padre"
	assert.NoError(t, Validate(notHolder))
}

func TestValidateBirthDate(t *testing.T) {
	base := clinicapi.Patient{NombreApellido: "María González", DNI: "30456789"}

	base.FechaNacimiento = "1989-11-15"
	assert.NoError(t, Validate(base))

	base.FechaNacimiento = "2999-01-01"
	assert.Error(t, Validate(base), "future birth date")

	base.FechaNacimiento = "not-a-date"
	assert.Error(t, Validate(base))
}

func TestNormalizeTrimsPersonalFields(t *testing.T) {
	p := Normalize(clinicapi.Patient{
		NombreApellido: "  María González ",
		DNI:            " 30456789 ",
		Email:          " maria@example.com ",
	})
	assert.Equal(t, "María González", p.NombreApellido)
	assert.Equal(t, "30456789", p.DNI)
	assert.Equal(t, "maria@example.com", p.Email)
}

func TestFilterLocal(t *testing.T) {
	api := &fakeAPI{list: []clinicapi.Patient{
		{ID: 1, NombreApellido: "María González", DNI: "30456789", Email: "maria@example.com"},
		{ID: 2, NombreApellido: "Juan Pérez", DNI: "28123456", Email: "juan@example.com"},
	}}
	svc := NewService(api, &notify.Recorder{}, nil)
	require.NoError(t, svc.Refresh(t.Context()))

	assert.Len(t, svc.FilterLocal("gonz"), 1)
	assert.Len(t, svc.FilterLocal("28123"), 1)
	assert.Len(t, svc.FilterLocal("example.com"), 2)
	assert.Empty(t, svc.FilterLocal("m"), "single-character queries never match")
	assert.Empty(t, svc.FilterLocal("  "))
}

func TestCreateValidatesBeforeNetwork(t *testing.T) {
	api := &fakeAPI{}
	rec := &notify.Recorder{}
	svc := NewService(api, rec, nil)

	_, err := svc.Create(t.Context(), clinicapi.Patient{DNI: "123"}, true)
	assert.ErrorIs(t, err, ErrInvalidPatient)
	assert.Empty(t, api.calls)
	assert.Len(t, rec.ByLevel(notify.LevelWarning), 1)
}

func TestCreateRefreshesAndNotifies(t *testing.T) {
	api := &fakeAPI{}
	rec := &notify.Recorder{}
	svc := NewService(api, rec, nil)

	created, err := svc.Create(t.Context(), clinicapi.Patient{NombreApellido: " María González ", DNI: "30456789"}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.ID)
	assert.Equal(t, "María González", api.created.NombreApellido, "trimmed before submit")
	assert.Equal(t, []string{"create", "list"}, api.calls)
	assert.NotEmpty(t, rec.ByLevel(notify.LevelSuccess))
}

func TestRefreshFallsBackToMirror(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mirror := cache.NewMirror(rdb, time.Hour, nil)

	// First service run: backend up, snapshot mirrored.
	api := &fakeAPI{list: []clinicapi.Patient{{ID: 1, NombreApellido: "María González", DNI: "30456789"}}}
	svc := NewService(api, &notify.Recorder{}, nil, WithMirror(mirror))
	require.NoError(t, svc.Refresh(t.Context()))

	// Second run: backend unreachable, cold cache, mirror serves the copy.
	down := &fakeAPI{listErr: errors.New("connection refused")}
	svc2 := NewService(down, &notify.Recorder{}, nil, WithMirror(mirror))
	require.NoError(t, svc2.Refresh(t.Context()))
	require.Len(t, svc2.Cache().Items(), 1)
	assert.Equal(t, "María González", svc2.Cache().Items()[0].NombreApellido)
}

func TestDerivedAge(t *testing.T) {
	now := time.Date(2024, 11, 15, 0, 0, 0, 0, time.Local)
	assert.Equal(t, "35", DerivedAge(clinicapi.Patient{FechaNacimiento: "1989-11-15"}, now))
	assert.Equal(t, "", DerivedAge(clinicapi.Patient{}, now))
	assert.Equal(t, "", DerivedAge(clinicapi.Patient{FechaNacimiento: "2999-01-01"}, now))
}
