package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for authOutcomes.
const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

var authOutcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "blog_auth_operations_total",
		Help: "Total number of session operations by outcome",
	},
	[]string{"operation", "outcome"},
)

// observe records the outcome of a session operation from its error kind.
func observe(operation string, err error) {
	outcome := outcomeSuccess
	switch {
	case err == nil:
	case isClientError(err):
		outcome = outcomeRejected
	default:
		outcome = outcomeError
	}
	authOutcomes.WithLabelValues(operation, outcome).Inc()
}
