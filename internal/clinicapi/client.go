package clinicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/agendadental/clinicdesk/pkg/logging"
	"github.com/google/uuid"
)

const defaultTimeout = 20 * time.Second

// maxErrorBody caps how much of an error response is read for message extraction.
const maxErrorBody = 64 << 10

// Observer receives one callback per finished backend request.
// A zero status means the request never reached the backend.
type Observer interface {
	ObserveRequest(endpoint, method string, status int, seconds float64)
}

// Client is a typed REST client for the clinic backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	observer   Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client (tests, custom timeouts).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithObserver attaches a request observer (metrics).
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a backend client rooted at baseURL (e.g. "http://host/api").
func NewClient(baseURL string, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- Appointments ---

// ListAppointments returns all appointments; pendingOnly restricts the list to
// appointments with an outstanding balance (server-computed).
func (c *Client) ListAppointments(ctx context.Context, pendingOnly bool) ([]Appointment, error) {
	q := url.Values{}
	if pendingOnly {
		q.Set("pendingOnly", "true")
	}
	var out []Appointment
	if err := c.do(ctx, http.MethodGet, "/appointments", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	var out Appointment
	if err := c.do(ctx, http.MethodGet, "/appointments/"+formatID(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AppointmentsByDate returns the appointments for one calendar day (YYYY-MM-DD).
func (c *Client) AppointmentsByDate(ctx context.Context, fecha string) ([]Appointment, error) {
	var out []Appointment
	if err := c.do(ctx, http.MethodGet, "/appointments/date/"+url.PathEscape(fecha), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AppointmentsInRange returns appointments between two dates, inclusive.
func (c *Client) AppointmentsInRange(ctx context.Context, from, to string) ([]Appointment, error) {
	q := url.Values{"from": {from}, "to": {to}}
	var out []Appointment
	if err := c.do(ctx, http.MethodGet, "/appointments/range", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByDate returns the per-day appointment counts for a date range,
// used to badge the month calendar.
func (c *Client) CountByDate(ctx context.Context, from, to string) (map[string]int, error) {
	q := url.Values{"from": {from}, "to": {to}}
	var out map[string]int
	if err := c.do(ctx, http.MethodGet, "/appointments/count", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AppointmentsByPatient(ctx context.Context, patientID int64) ([]Appointment, error) {
	var out []Appointment
	if err := c.do(ctx, http.MethodGet, "/appointments/patient/"+formatID(patientID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckAvailability asks the backend whether the professional is free at the
// given date and time. hora must already be normalized to HH:mm:ss.
func (c *Client) CheckAvailability(ctx context.Context, profesionalID int64, fecha, hora string) (bool, error) {
	q := url.Values{
		"profesionalId": {formatID(profesionalID)},
		"fecha":         {fecha},
		"hora":          {hora},
	}
	var out availabilityResponse
	if err := c.do(ctx, http.MethodGet, "/appointments/check-availability", q, nil, &out); err != nil {
		return false, err
	}
	return out.Available, nil
}

func (c *Client) CreateAppointment(ctx context.Context, in AppointmentCreate) (*Appointment, error) {
	var out Appointment
	if err := c.do(ctx, http.MethodPost, "/appointments", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAppointment applies a partial update. The payload carries only the
// fields being changed; callers build it through the coordinator's typed
// update variants.
func (c *Client) UpdateAppointment(ctx context.Context, id int64, fields map[string]any) (*Appointment, error) {
	var out Appointment
	if err := c.do(ctx, http.MethodPatch, "/appointments/"+formatID(id), nil, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateAppointmentStatus(ctx context.Context, id int64, estado AppointmentStatus) error {
	body := map[string]any{"estado": estado}
	return c.do(ctx, http.MethodPatch, "/appointments/"+formatID(id)+"/status", nil, body, nil)
}

// AddPayment registers a payment against an appointment. The backend owns the
// resulting outstanding balance.
func (c *Client) AddPayment(ctx context.Context, id int64, amount float64) error {
	body := map[string]any{"monto": amount}
	return c.do(ctx, http.MethodPatch, "/appointments/"+formatID(id)+"/addPayment", nil, body, nil)
}

func (c *Client) DeleteAppointment(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/appointments/"+formatID(id), nil, nil, nil)
}

// --- Patients ---

func (c *Client) ListPatients(ctx context.Context) ([]Patient, error) {
	var out []Patient
	if err := c.do(ctx, http.MethodGet, "/patients", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	var out Patient
	if err := c.do(ctx, http.MethodGet, "/patients/"+formatID(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PatientByDNI(ctx context.Context, dni string) (*Patient, error) {
	var out Patient
	if err := c.do(ctx, http.MethodGet, "/patients/dni/"+url.PathEscape(dni), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchPatients performs a backend text search over name, DNI and email.
func (c *Client) SearchPatients(ctx context.Context, query string) ([]Patient, error) {
	q := url.Values{"q": {query}}
	var out []Patient
	if err := c.do(ctx, http.MethodGet, "/patients/search", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreatePatient(ctx context.Context, in Patient) (*Patient, error) {
	var out Patient
	if err := c.do(ctx, http.MethodPost, "/patients", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePatient replaces the full patient record, matching the backend's PUT
// semantics: the form always submits the complete record.
func (c *Client) UpdatePatient(ctx context.Context, id int64, in Patient) (*Patient, error) {
	var out Patient
	if err := c.do(ctx, http.MethodPut, "/patients/"+formatID(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePatient(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/patients/"+formatID(id), nil, nil, nil)
}

// --- Professionals ---

func (c *Client) ListProfesionales(ctx context.Context) ([]Profesional, error) {
	var out []Profesional
	if err := c.do(ctx, http.MethodGet, "/profesionales", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ActiveProfesionales(ctx context.Context) ([]Profesional, error) {
	var out []Profesional
	if err := c.do(ctx, http.MethodGet, "/profesionales/active", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProfesional(ctx context.Context, id int64) (*Profesional, error) {
	var out Profesional
	if err := c.do(ctx, http.MethodGet, "/profesionales/"+formatID(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProfesional(ctx context.Context, in Profesional) (*Profesional, error) {
	var out Profesional
	if err := c.do(ctx, http.MethodPost, "/profesionales", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfesional(ctx context.Context, id int64, in Profesional) (*Profesional, error) {
	var out Profesional
	if err := c.do(ctx, http.MethodPut, "/profesionales/"+formatID(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProfesional(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/profesionales/"+formatID(id), nil, nil, nil)
}

func (c *Client) ToggleProfesionalActive(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPatch, "/profesionales/"+formatID(id)+"/toggle-active", nil, struct{}{}, nil)
}

// ListEstadosProfesional returns the status taxonomy with display colors.
func (c *Client) ListEstadosProfesional(ctx context.Context) ([]EstadoProfesional, error) {
	var out []EstadoProfesional
	if err := c.do(ctx, http.MethodGet, "/estado-profesional", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// do issues one backend request. Transport failures map to *APIError with
// Status 0; HTTP >= 400 maps to *APIError with the backend message extracted
// from the body when present.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("clinicapi: marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("clinicapi: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(path, method, 0, time.Since(start))
		c.logger.Warn("backend request failed",
			"method", method,
			"path", path,
			"error", err,
		)
		return &APIError{Status: 0, cause: err}
	}
	defer resp.Body.Close()
	c.observe(path, method, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{Status: resp.StatusCode, Message: extractBackendMessage(raw)}
		c.logger.Warn("backend returned error status",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
		)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("clinicapi: decode response: %w", err)
	}
	return nil
}

func (c *Client) observe(endpoint, method string, status int, elapsed time.Duration) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveRequest(endpoint, method, status, elapsed.Seconds())
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
