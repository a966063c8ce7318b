package appointments

import (
	"fmt"

	"github.com/agendadental/clinicdesk/internal/clinicapi"
	"github.com/agendadental/clinicdesk/internal/dates"
)

// Update is one typed partial-update variant for an appointment. The variants
// are a closed set so an invalid field combination cannot be expressed.
type Update interface {
	apply(fields map[string]any) error
}

// PriceUpdate edits the monetary fields. Nil pointers leave a field untouched.
type PriceUpdate struct {
	PrecioBono        *float64
	PrecioTratamiento *float64
	Extras            *float64
}

func (u PriceUpdate) apply(fields map[string]any) error {
	set := false
	if u.PrecioBono != nil {
		fields["precioBono"] = *u.PrecioBono
		set = true
	}
	if u.PrecioTratamiento != nil {
		fields["precioTratamiento"] = *u.PrecioTratamiento
		set = true
	}
	if u.Extras != nil {
		fields["extras"] = *u.Extras
		set = true
	}
	if !set {
		return fmt.Errorf("appointments: empty price update")
	}
	return nil
}

// NoteUpdate edits the free-text notes.
type NoteUpdate struct {
	Observaciones      *string // payment notes
	ObservacionesTurno *string // appointment notes
}

func (u NoteUpdate) apply(fields map[string]any) error {
	set := false
	if u.Observaciones != nil {
		fields["observaciones"] = *u.Observaciones
		set = true
	}
	if u.ObservacionesTurno != nil {
		fields["observacionesTurno"] = *u.ObservacionesTurno
		set = true
	}
	if !set {
		return fmt.Errorf("appointments: empty note update")
	}
	return nil
}

// StatusUpdate requests a status transition through the generic PATCH.
type StatusUpdate struct {
	Estado clinicapi.AppointmentStatus
}

func (u StatusUpdate) apply(fields map[string]any) error {
	if u.Estado == "" {
		return fmt.Errorf("appointments: empty status update")
	}
	fields["estado"] = u.Estado
	return nil
}

// TimeUpdate reschedules the time of day. The input may be HH:mm or HH:mm:ss
// and is normalized before it goes on the wire.
type TimeUpdate struct {
	Hora string
}

func (u TimeUpdate) apply(fields map[string]any) error {
	hora, err := dates.NormalizeTime(u.Hora)
	if err != nil {
		return fmt.Errorf("appointments: time update: %w", err)
	}
	fields["hora"] = hora
	return nil
}

// buildUpdatePayload folds one or more update variants into a PATCH body.
func buildUpdatePayload(updates ...Update) (map[string]any, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("appointments: no update given")
	}
	fields := make(map[string]any)
	for _, u := range updates {
		if err := u.apply(fields); err != nil {
			return nil, err
		}
	}
	return fields, nil
}
