package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// DeskMetrics exposes counters/histograms for backend traffic and mutations.
type DeskMetrics struct {
	backendRequests *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	mutations       *prometheus.CounterVec
	cacheRefreshes  *prometheus.CounterVec
}

func NewDeskMetrics(reg prometheus.Registerer) *DeskMetrics {
	m := &DeskMetrics{
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total requests issued to the clinic backend",
		}, []string{"endpoint", "method", "status"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinicdesk",
			Subsystem: "backend",
			Name:      "request_latency_seconds",
			Help:      "Latency of clinic backend requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Subsystem: "appointments",
			Name:      "mutations_total",
			Help:      "Appointment mutations by operation and outcome",
		}, []string{"operation", "outcome"}),
		cacheRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Subsystem: "cache",
			Name:      "refresh_total",
			Help:      "Snapshot cache refreshes by collection and outcome",
		}, []string{"collection", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.backendRequests, m.backendLatency, m.mutations, m.cacheRefreshes)
	return m
}

// ObserveRequest satisfies the clinicapi.Observer contract. A zero status
// means the request never reached the backend.
func (m *DeskMetrics) ObserveRequest(endpoint, method string, status int, seconds float64) {
	if m == nil {
		return
	}
	label := "network_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.backendRequests.WithLabelValues(endpoint, method, label).Inc()
	m.backendLatency.WithLabelValues(endpoint).Observe(seconds)
}

func (m *DeskMetrics) ObserveMutation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.mutations.WithLabelValues(operation, outcome).Inc()
}

func (m *DeskMetrics) ObserveCacheRefresh(collection string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.cacheRefreshes.WithLabelValues(collection, outcome).Inc()
}
