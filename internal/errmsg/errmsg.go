// Package errmsg maps backend call failures to user-facing messages.
// Classification is a pure function of the error's HTTP status, the backend
// message in its body, and the action being performed ("crear el turno",
// "cargar los pacientes", ...).
package errmsg

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/agendadental/clinicdesk/internal/clinicapi"
)

// For returns the user-facing message for err in the context of action.
func For(err error, action string) string {
	apiErr, ok := clinicapi.AsAPIError(err)
	if !ok || apiErr.Status == 0 {
		return networkMessage(action)
	}

	backendMsg := strings.TrimSpace(apiErr.Message)

	switch apiErr.Status {
	case http.StatusUnauthorized:
		return "Su sesión ha expirado. Por favor, inicie sesión nuevamente."
	case http.StatusForbidden:
		return fmt.Sprintf("No tiene permisos para %s.", action)
	case http.StatusNotFound:
		if strings.Contains(action, "eliminar") {
			return "El turno que intenta eliminar no existe o ya fue eliminado."
		}
		if backendMsg != "" {
			return backendMsg
		}
		return "No se encontró el servicio. Contacte al administrador."
	case http.StatusRequestTimeout:
		return "La solicitud tardó demasiado tiempo. Por favor, intente nuevamente."
	case http.StatusConflict:
		return conflictMessage(backendMsg, action)
	case http.StatusUnprocessableEntity:
		if backendMsg != "" {
			return backendMsg
		}
		return "Los datos no son válidos. Verifique la información ingresada."
	case http.StatusInternalServerError:
		return "Error interno del servidor. Por favor, intente más tarde."
	case http.StatusBadGateway:
		return "El servidor no está disponible temporalmente. Intente nuevamente en unos momentos."
	case http.StatusServiceUnavailable:
		return "El servicio no está disponible en este momento. Intente más tarde."
	case http.StatusGatewayTimeout:
		return "El servidor tardó demasiado en responder. Por favor, intente nuevamente."
	default:
		if backendMsg != "" {
			return backendMsg
		}
		return fmt.Sprintf("Ocurrió un error inesperado al %s. Por favor, intente nuevamente.", action)
	}
}

func conflictMessage(backendMsg, action string) string {
	if backendMsg != "" {
		return backendMsg
	}
	if strings.Contains(action, "paciente") {
		return "Ya existe un paciente con este DNI. Por favor, verifique el número de documento."
	}
	if strings.Contains(action, "turno") {
		return "El horario seleccionado ya está ocupado. Por favor, elija otro horario."
	}
	return fmt.Sprintf("Error de conflicto al %s. Por favor, verifique los datos e intente nuevamente.", action)
}

func networkMessage(action string) string {
	if strings.Contains(action, "crear el paciente") {
		return "No se pudo crear el paciente. Verifique su conexión e intente nuevamente."
	}
	if strings.Contains(action, "crear el turno") {
		return "No se pudo crear el turno. Verifique su conexión e intente nuevamente."
	}
	if strings.Contains(action, "eliminar") {
		return "No se pudo eliminar el turno. Verifique su conexión e intente nuevamente."
	}
	return "Verifique su conexión a internet e intente nuevamente."
}

// IsNetwork reports whether err never produced an HTTP response.
func IsNetwork(err error) bool {
	apiErr, ok := clinicapi.AsAPIError(err)
	return !ok || apiErr.Status == 0
}

// RequiresReauth reports whether the user needs to log in again.
func RequiresReauth(err error) bool {
	return clinicapi.StatusOf(err) == http.StatusUnauthorized
}

// IsForbidden reports whether the backend rejected the action for lack of
// permissions.
func IsForbidden(err error) bool {
	return clinicapi.StatusOf(err) == http.StatusForbidden
}
