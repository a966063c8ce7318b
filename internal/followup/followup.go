// Package followup builds the billing follow-up view: per-appointment
// outstanding balances and per-patient groupings over the pending list.
package followup

import (
	"math"
	"sort"
	"strings"

	"github.com/agendadental/clinicdesk/internal/clinicapi"
)

// Entry is one follow-up row: an appointment annotated with its balance.
type Entry struct {
	Appointment clinicapi.Appointment `json:"appointment"`
	Charged     float64               `json:"charged"`
	Paid        float64               `json:"paid"`
	Outstanding float64               `json:"outstanding"`
}

// Group collects a patient's follow-up rows keyed by DNI.
type Group struct {
	DNI         string  `json:"dni"`
	PatientName string  `json:"patientName"`
	Entries     []Entry `json:"entries"`
	Outstanding float64 `json:"outstanding"`
}

// clampAmount guards against corrupt backend amounts. Negative, NaN and
// infinite values read as zero so a bad row never distorts a balance.
func clampAmount(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Charged is the total billed on an appointment.
func Charged(a clinicapi.Appointment) float64 {
	return clampAmount(a.PrecioBono) + clampAmount(a.PrecioTratamiento) + clampAmount(a.Extras)
}

// Outstanding is the remaining balance. Overpayment reads as zero, never
// as a credit.
func Outstanding(a clinicapi.Appointment) float64 {
	rest := Charged(a) - clampAmount(a.MontoPago)
	if rest < 0 {
		return 0
	}
	return rest
}

// NewEntry annotates an appointment with its computed balance.
func NewEntry(a clinicapi.Appointment) Entry {
	return Entry{
		Appointment: a,
		Charged:     Charged(a),
		Paid:        clampAmount(a.MontoPago),
		Outstanding: Outstanding(a),
	}
}

// Build turns the appointment list into follow-up rows. With pendingOnly
// set, settled rows (zero outstanding) are dropped.
func Build(appointments []clinicapi.Appointment, pendingOnly bool) []Entry {
	var out []Entry
	for _, a := range appointments {
		e := NewEntry(a)
		if pendingOnly && e.Outstanding == 0 {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Filter narrows rows by a case-insensitive substring over patient name
// and DNI. An empty query keeps everything.
func Filter(entries []Entry, query string) []Entry {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return entries
	}
	var out []Entry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Appointment.PatientName), query) ||
			strings.Contains(e.Appointment.PatientDNI, query) {
			out = append(out, e)
		}
	}
	return out
}

// GroupByPatient folds rows into per-patient groups keyed by DNI, sorted
// by highest outstanding balance first. Rows without a DNI group under
// the patient name alone.
func GroupByPatient(entries []Entry) []Group {
	index := make(map[string]*Group)
	var order []string
	for _, e := range entries {
		key := e.Appointment.PatientDNI
		if key == "" {
			key = e.Appointment.PatientName
		}
		g, ok := index[key]
		if !ok {
			g = &Group{DNI: e.Appointment.PatientDNI, PatientName: e.Appointment.PatientName}
			index[key] = g
			order = append(order, key)
		}
		g.Entries = append(g.Entries, e)
		g.Outstanding += e.Outstanding
	}

	out := make([]Group, 0, len(order))
	for _, key := range order {
		out = append(out, *index[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Outstanding > out[j].Outstanding
	})
	return out
}
