package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestDeskMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDeskMetrics(reg)
	m.ObserveRequest("/appointments", "GET", 200, 0.05)
	m.ObserveRequest("/appointments", "POST", 0, 0.01)
	m.ObserveMutation("create", nil)
	m.ObserveMutation("delete", errors.New("boom"))
	m.ObserveCacheRefresh("patients", nil)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got := counterValue(families, "clinicdesk_backend_requests_total", "status", "network_error"); got != 1 {
		t.Fatalf("expected one network_error request, got %v", got)
	}
	if got := counterValue(families, "clinicdesk_appointments_mutations_total", "outcome", "error"); got != 1 {
		t.Fatalf("expected one failed mutation, got %v", got)
	}
	if got := counterValue(families, "clinicdesk_cache_refresh_total", "collection", "patients"); got != 1 {
		t.Fatalf("expected one cache refresh, got %v", got)
	}
}

func TestDeskMetricsNilSafe(t *testing.T) {
	var m *DeskMetrics
	m.ObserveRequest("/patients", "GET", 500, 0.1)
	m.ObserveMutation("update", nil)
	m.ObserveCacheRefresh("profesionales", nil)
}

func counterValue(families []*dto.MetricFamily, name, labelName, labelValue string) float64 {
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == labelName && label.GetValue() == labelValue {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
