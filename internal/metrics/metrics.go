// Package metrics holds the Prometheus collectors of the dispatch layer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	dispatchCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fcm_dispatch_calls_total",
		Help: "Dispatch calls by mode (single, batch) and result (ok, auth, transport, timeout, decode).",
	}, []string{"mode", "result"})

	itemOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fcm_dispatch_items_total",
		Help: "Per-message outcomes reported by FCM, labelled by error kind (SUCCESS on acceptance).",
	}, []string{"kind"})

	roundTrip = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fcm_dispatch_round_trip_seconds",
		Help:    "Duration of the FCM HTTP round trip.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})
)

// ObserveCall records one dispatch call.
func ObserveCall(mode, result string) {
	dispatchCalls.WithLabelValues(mode, result).Inc()
}

// ObserveItem records one item outcome.
func ObserveItem(kind string) {
	itemOutcomes.WithLabelValues(kind).Inc()
}

// ObserveRoundTrip records the duration of one HTTP exchange.
func ObserveRoundTrip(mode string, d time.Duration) {
	roundTrip.WithLabelValues(mode).Observe(d.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
