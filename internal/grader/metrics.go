package grader

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"gocode-grader/internal/provider"
)

var (
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gocode_grader",
		Subsystem: "provider",
		Name:      "calls_total",
		Help:      "Grading and connection calls by provider, operation and outcome.",
	}, []string{"provider", "operation", "outcome"})

	callDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gocode_grader",
		Subsystem: "provider",
		Name:      "call_duration_seconds",
		Help:      "Duration of provider calls that reached the network.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"provider", "operation"})
)

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, provider.ErrConfiguration):
		return "configuration_error"
	case errors.Is(err, provider.ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, provider.ErrTransport):
		return "transport_error"
	default:
		return "error"
	}
}
