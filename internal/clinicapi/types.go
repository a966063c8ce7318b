package clinicapi

// AppointmentStatus mirrors the backend estado enumeration.
type AppointmentStatus string

const (
	StatusPendiente  AppointmentStatus = "PENDIENTE"
	StatusConfirmado AppointmentStatus = "CONFIRMADO"
	StatusEnCurso    AppointmentStatus = "EN_CURSO"
	StatusCompletado AppointmentStatus = "COMPLETADO"
	StatusCancelado  AppointmentStatus = "CANCELADO"
	StatusNoAsistio  AppointmentStatus = "NO_ASISTIO"
)

// Appointment mirrors the backend AppointmentDTO.
type Appointment struct {
	ID            int64 `json:"id,omitempty"`
	PatientID     int64 `json:"patientId"`
	ProfesionalID int64 `json:"profesionalId,omitempty"`

	// Read-only fields filled in by the backend.
	PatientName          string `json:"patientName,omitempty"`
	PatientDNI           string `json:"patientDni,omitempty"`
	PatientObraSocialNum string `json:"patientObraSocialNumero,omitempty"`
	ProfesionalName      string `json:"profesionalName,omitempty"`

	Fecha  string            `json:"fecha"`          // YYYY-MM-DD
	Hora   string            `json:"hora,omitempty"` // HH:mm:ss
	Estado AppointmentStatus `json:"estado,omitempty"`

	// Payment details.
	PrecioBono         float64 `json:"precioBono,omitempty"`
	PrecioTratamiento  float64 `json:"precioTratamiento,omitempty"`
	Extras             float64 `json:"extras,omitempty"`
	MontoPago          float64 `json:"montoPago,omitempty"`
	Observaciones      string  `json:"observaciones,omitempty"`
	ObservacionesTurno string  `json:"observacionesTurno,omitempty"`
}

// AppointmentCreate is the payload for POST /appointments.
type AppointmentCreate struct {
	PatientID          int64             `json:"patientId"`
	ProfesionalID      int64             `json:"profesionalId,omitempty"`
	Fecha              string            `json:"fecha"`
	Hora               string            `json:"hora,omitempty"`
	Estado             AppointmentStatus `json:"estado,omitempty"`
	PrecioBono         float64           `json:"precioBono,omitempty"`
	PrecioTratamiento  float64           `json:"precioTratamiento,omitempty"`
	Extras             float64           `json:"extras,omitempty"`
	MontoPago          float64           `json:"montoPago,omitempty"`
	Observaciones      string            `json:"observaciones,omitempty"`
	ObservacionesTurno string            `json:"observacionesTurno,omitempty"`
}

// Patient mirrors the backend PatientDTO.
type Patient struct {
	ID                 int64  `json:"id,omitempty"`
	NombreApellido     string `json:"nombreApellido"`
	FechaNacimiento    string `json:"fechaNacimiento,omitempty"` // YYYY-MM-DD
	DNI                string `json:"dni"`
	Telefono           string `json:"telefono,omitempty"`
	Email              string `json:"email,omitempty"`
	Domicilio          string `json:"domicilio,omitempty"`
	Localidad          string `json:"localidad,omitempty"`
	ContactoEmergencia string `json:"contactoEmergencia,omitempty"`
	Anamnesis          string `json:"anamnesis,omitempty"`

	// Obra social / coverage.
	ObraSocialNombre      string `json:"obraSocialNombre,omitempty"`
	PlanCategoria         string `json:"planCategoria,omitempty"`
	ObraSocialNumero      string `json:"obraSocialNumero,omitempty"`
	ObraSocialVencimiento string `json:"obraSocialVencimiento,omitempty"`
	EsTitular             *bool  `json:"esTitular,omitempty"`
	NombreTitular         string `json:"nombreTitular,omitempty"`
	DNITitular            string `json:"dniTitular,omitempty"`
	Parentesco            string `json:"parentesco,omitempty"`
}

// Profesional mirrors the backend ProfesionalDTO.
type Profesional struct {
	ID           int64  `json:"id,omitempty"`
	Nombre       string `json:"nombre"`
	DNI          string `json:"dni,omitempty"`
	Especialidad string `json:"especialidad,omitempty"`
	Matricula    string `json:"matricula,omitempty"`
	Email        string `json:"email,omitempty"`
	Telefono     string `json:"telefono,omitempty"`
	Activo       *bool  `json:"activo,omitempty"`
	Estado       string `json:"estado,omitempty"`
	Desde        string `json:"desde,omitempty"`
	Hasta        string `json:"hasta,omitempty"`
}

// EstadoProfesional is one entry of the professional status taxonomy,
// including the display color the UI uses for availability coding.
type EstadoProfesional struct {
	ID     int64  `json:"id,omitempty"`
	Nombre string `json:"nombre"`
	Color  string `json:"color,omitempty"`
}

type availabilityResponse struct {
	Available bool `json:"available"`
}
