// Package metrics defines the Prometheus collectors for lumen.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Generation metrics
	generationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lumen_generation_duration_seconds",
			Help:    "Latency of external generation calls",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"kind"},
	)

	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumen_generations_total",
			Help: "External generation calls by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// Image cache metrics
	imageLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumen_image_lookups_total",
			Help: "Image cache resolutions by the tier that answered",
		},
		[]string{"tier"},
	)

	// Session metrics
	phaseTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumen_phase_transitions_total",
			Help: "Session phase transitions by target phase",
		},
		[]string{"phase"},
	)

	readingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumen_readings_total",
			Help: "Completed readings by deck and whether the fallback was used",
		},
		[]string{"deck", "fallback"},
	)

	quotaDenialsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lumen_quota_denials_total",
			Help: "Inquiries rejected because the usage quota was exhausted",
		},
	)

	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumen_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lumen_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// ObserveGeneration records one external generation call
func ObserveGeneration(kind string, d time.Duration, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	generationDuration.WithLabelValues(kind).Observe(d.Seconds())
	generationsTotal.WithLabelValues(kind, outcome).Inc()
}

// ImageLookup records which cache tier answered a resolve call
func ImageLookup(tier string) {
	imageLookupsTotal.WithLabelValues(tier).Inc()
}

// PhaseTransition records entry into a session phase
func PhaseTransition(phase string) {
	phaseTransitionsTotal.WithLabelValues(phase).Inc()
}

// ReadingCompleted records a session reaching its reading
func ReadingCompleted(deck string, fallback bool) {
	readingsTotal.WithLabelValues(deck, strconv.FormatBool(fallback)).Inc()
}

// QuotaDenied records an inquiry rejected by the quota gate
func QuotaDenied() {
	quotaDenialsTotal.Inc()
}

// ObserveHTTP records one served HTTP request
func ObserveHTTP(method, route string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}
