// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Invocation outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeNoOverlap = "no_overlap"
	OutcomeError     = "error"
)

var (
	InvocationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "urbancover_invocations_total",
		Help: "Tile invocations by outcome",
	}, []string{"outcome"})
	InvocationDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "urbancover_invocation_duration_ms",
		Help:    "Tile invocation duration in milliseconds",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
	})
	NeighboursSubtractedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "urbancover_neighbours_subtracted_total",
		Help: "Processed neighbour extents subtracted from an AOI",
	})
	EmptyResidualTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "urbancover_empty_residual_total",
		Help: "Invocations whose AOI was fully credited to neighbours",
	})
	UrbanCover = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "urbancover_urban_cover_percent",
		Help:    "Distribution of computed urban cover percentages",
		Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})
	NotificationsRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "urbancover_notifications_rejected_total",
		Help: "Notifications rejected by the HTTP endpoint, by reason",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(InvocationsTotal)
	prometheus.MustRegister(InvocationDurationMs)
	prometheus.MustRegister(NeighboursSubtractedTotal)
	prometheus.MustRegister(EmptyResidualTotal)
	prometheus.MustRegister(UrbanCover)
	prometheus.MustRegister(NotificationsRejectedTotal)
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
