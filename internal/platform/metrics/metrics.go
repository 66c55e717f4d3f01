package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	StoresCreated      prometheus.Counter
	DuplicatesDetected *prometheus.CounterVec
	NearbyRequests     prometheus.Counter
	RadiusExpansions   prometheus.Counter
	GeocodeFailures    prometheus.Counter
	RequestDuration    *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registry.
// Call once per process; services tolerate a nil *Metrics.
func New() *Metrics {
	return &Metrics{
		StoresCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "directory_stores_created_total",
			Help: "Total number of stores created",
		}),
		DuplicatesDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "directory_duplicates_detected_total",
			Help: "Duplicate classifications returned at store creation, by class",
		}, []string{"classification"}),
		NearbyRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "directory_nearby_requests_total",
			Help: "Total number of nearby store queries",
		}),
		RadiusExpansions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "directory_radius_expansions_total",
			Help: "Nearby queries that needed the radius expansion schedule",
		}),
		GeocodeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "directory_geocode_failures_total",
			Help: "Reverse geocoding calls that failed",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "directory_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
	}
}

// IncStoresCreated increments the stores created counter. Nil-safe.
func (m *Metrics) IncStoresCreated() {
	if m == nil {
		return
	}
	m.StoresCreated.Inc()
}

// IncDuplicatesDetected records a duplicate classification. Nil-safe.
func (m *Metrics) IncDuplicatesDetected(classification string) {
	if m == nil {
		return
	}
	m.DuplicatesDetected.WithLabelValues(classification).Inc()
}

// IncNearbyRequests increments the nearby query counter. Nil-safe.
func (m *Metrics) IncNearbyRequests() {
	if m == nil {
		return
	}
	m.NearbyRequests.Inc()
}

// IncRadiusExpansions increments the radius expansion counter. Nil-safe.
func (m *Metrics) IncRadiusExpansions() {
	if m == nil {
		return
	}
	m.RadiusExpansions.Inc()
}

// IncGeocodeFailures increments the geocode failure counter. Nil-safe.
func (m *Metrics) IncGeocodeFailures() {
	if m == nil {
		return
	}
	m.GeocodeFailures.Inc()
}

// ObserveRequest records request latency. Nil-safe.
func (m *Metrics) ObserveRequest(path, method string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(path, method).Observe(d.Seconds())
}
