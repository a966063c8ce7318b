package appointments

import "github.com/agendadental/clinicdesk/internal/clinicapi"

// transitions is the advisory status graph. The backend stays authoritative;
// the desk only consults this when transition enforcement is switched on.
var transitions = map[clinicapi.AppointmentStatus][]clinicapi.AppointmentStatus{
	clinicapi.StatusPendiente:  {clinicapi.StatusConfirmado, clinicapi.StatusCancelado, clinicapi.StatusNoAsistio},
	clinicapi.StatusConfirmado: {clinicapi.StatusEnCurso, clinicapi.StatusCancelado, clinicapi.StatusNoAsistio},
	clinicapi.StatusEnCurso:    {clinicapi.StatusCompletado},
	// COMPLETADO, CANCELADO and NO_ASISTIO are terminal.
}

// CanTransition reports whether from → to is a legal status change.
func CanTransition(from, to clinicapi.AppointmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition leaves the status.
func IsTerminal(s clinicapi.AppointmentStatus) bool {
	return len(transitions[s]) == 0
}
