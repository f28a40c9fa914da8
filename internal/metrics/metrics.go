// Package metrics holds the engine's prometheus collectors, registered on a
// private registry so the /metrics endpoint exposes only engine series.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var (
	// ElementsProcessed counts input elements consumed per worker.
	ElementsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pitchstream_elements_processed_total",
		Help: "Input stream elements consumed, per worker.",
	}, []string{"worker"})

	// ElementsEmitted counts output elements per worker and output stream.
	ElementsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pitchstream_elements_emitted_total",
		Help: "Output stream elements emitted, per worker and stream.",
	}, []string{"worker", "stream"})

	// ElementErrors counts element-level failures (schema apply, missing
	// state, insufficient history); the element is dropped and logged.
	ElementErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pitchstream_element_errors_total",
		Help: "Elements dropped due to processing errors, per worker.",
	}, []string{"worker"})

	// ActiveMatches tracks how many matches a worker currently owns.
	ActiveMatches = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pitchstream_active_matches",
		Help: "Matches with live state, per worker.",
	}, []string{"worker"})
)

func init() {
	registry.MustRegister(ElementsProcessed, ElementsEmitted, ElementErrors, ActiveMatches)
}

// Handler serves the engine registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
