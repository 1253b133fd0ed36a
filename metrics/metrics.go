package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// ReportsCreatedTotal counts successfully created reports by type.
	ReportsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hazard",
		Subsystem: "reports",
		Name:      "created_total",
		Help:      "Total number of hazard reports created, labeled by hazard type.",
	}, []string{"type"})

	// VotesToggledTotal counts vote toggles by direction.
	VotesToggledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hazard",
		Subsystem: "reports",
		Name:      "votes_toggled_total",
		Help:      "Total number of vote toggles, labeled by direction (voted/unvoted).",
	}, []string{"direction"})

	// DetectionRequestsTotal counts detection attempts by outcome.
	DetectionRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hazard",
		Subsystem: "detection",
		Name:      "requests_total",
		Help:      "Total number of hazard detection requests, labeled by result (detected/unknown/simulated).",
	}, []string{"result"})

	// DetectionDurationSeconds is end-to-end inference call latency.
	DetectionDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hazard",
		Subsystem: "detection",
		Name:      "duration_seconds",
		Help:      "End-to-end time of a detection API call.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	})

	// GeocodeLookupsTotal counts reverse geocode lookups by source.
	GeocodeLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hazard",
		Subsystem: "geocode",
		Name:      "lookups_total",
		Help:      "Total number of reverse geocode lookups, labeled by source (cache/remote/fallback).",
	}, []string{"source"})

	// WebsocketClients is the current number of connected live-feed clients.
	WebsocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hazard",
		Subsystem: "websocket",
		Name:      "connected_clients",
		Help:      "Current number of connected websocket clients.",
	})
)

// Register registers all collectors exactly once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			ReportsCreatedTotal,
			VotesToggledTotal,
			DetectionRequestsTotal,
			DetectionDurationSeconds,
			GeocodeLookupsTotal,
			WebsocketClients,
		)
	})
}
