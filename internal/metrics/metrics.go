package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup statuses used as the "status" label of GeocodeLookups.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusEmpty   = "empty"
	StatusSkipped = "skipped"
)

type Metrics struct {
	GeocodeLookups      *prometheus.CounterVec
	RequestSeconds      *prometheus.HistogramVec
	FallbackCoordinates prometheus.Counter
	BuildSeconds        prometheus.Histogram
	PairsEvaluated      prometheus.Counter
	ConflictEdges       prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		GeocodeLookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "shipcolor_geocode_lookups_total",
			Help: "Total number of address lookups by outcome.",
		}, []string{"status"}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shipcolor_geocoding_provider_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		FallbackCoordinates: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "shipcolor_fallback_coordinates_total",
			Help: "Total number of orders that received the default coordinate.",
		}),
		BuildSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "shipcolor_graph_build_duration_seconds",
			Help:    "Duration of complete conflict graph builds, geocoding included.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}),
		PairsEvaluated: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "shipcolor_pairs_evaluated_total",
			Help: "Total number of order pairs checked for feasibility.",
		}),
		ConflictEdges: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "shipcolor_conflict_edges",
			Help: "Number of conflict edges in the most recent graph.",
		}),
	}
}
