// Package telemetry registers Prometheus metrics for the synthesis
// pipeline. Collectors only; exposition is left to the embedding
// process.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for artifact synthesis and
// refinement.
type Metrics struct {
	// Synthesis
	ArtifactsSynthesizedTotal *prometheus.CounterVec
	DetectionConfidence       prometheus.Histogram
	DetectionWarningsTotal    prometheus.Counter

	// Registry
	RegistrationsTotal *prometheus.CounterVec

	// Refinement
	RefinementIterations prometheus.Histogram
	RefinementOutcomes   *prometheus.CounterVec
	FailuresTotal        *prometheus.CounterVec
}

// NewMetrics creates and registers pipeline metrics on the default
// registerer.
//
// sync.Once guards against duplicate collector registration panics
// when multiple services are wired in one process.
//
// All metrics are prefixed with "forge_":
//   - forge_artifacts_synthesized_total{domain}
//   - forge_detection_confidence
//   - forge_detection_warnings_total
//   - forge_registrations_total{status}
//   - forge_refinement_iterations
//   - forge_refinement_outcomes_total{outcome}
//   - forge_failures_total{category}
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			ArtifactsSynthesizedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "forge_artifacts_synthesized_total",
					Help: "Total artifacts synthesized",
				},
				[]string{"domain"},
			),
			DetectionConfidence: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "forge_detection_confidence",
					Help:    "Overall pattern detection confidence per request",
					Buckets: prometheus.LinearBuckets(0, 0.1, 11),
				},
			),
			DetectionWarningsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "forge_detection_warnings_total",
					Help: "Output fields matched by zero transformation patterns",
				},
			),
			RegistrationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "forge_registrations_total",
					Help: "Registry registrations by status",
				},
				[]string{"status"}, // "registered", "updated", "rejected"
			),
			RefinementIterations: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "forge_refinement_iterations",
					Help:    "Iterations consumed per refinement run",
					Buckets: prometheus.LinearBuckets(1, 1, 10),
				},
			),
			RefinementOutcomes: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "forge_refinement_outcomes_total",
					Help: "Refinement runs by stopping condition",
				},
				[]string{"outcome"},
			),
			FailuresTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "forge_failures_total",
					Help: "Evaluation failures by category",
				},
				[]string{"category"},
			),
		}
	})
	return globalMetrics
}
