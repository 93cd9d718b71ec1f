package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors, registered via Register.
var (
	regOK atomic.Bool

	serviceStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "warden",
			Subsystem: "service",
			Name:      "starts_total",
			Help:      "Number of successful service starts.",
		}, []string{"service"},
	)
	serviceStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "warden",
			Subsystem: "service",
			Name:      "stops_total",
			Help:      "Number of service stops (graceful or forced).",
		}, []string{"service"},
	)
	startFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "warden",
			Subsystem: "service",
			Name:      "start_failures_total",
			Help:      "Number of failed starts, by cause.",
		}, []string{"service", "cause"},
	)
	readinessWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "warden",
			Subsystem: "service",
			Name:      "readiness_wait_seconds",
			Help:      "Time spent waiting for the service to become ready.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"},
	)
	stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "warden",
			Subsystem: "service",
			Name:      "state_transitions_total",
			Help:      "Number of lifecycle state transitions.",
		}, []string{"service", "from", "to"},
	)
	currentState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "warden",
			Subsystem: "service",
			Name:      "current_state",
			Help:      "Current lifecycle state (1 = active state, 0 = inactive).",
		}, []string{"service", "state"},
	)
)

// Register registers all collectors with r. Safe to call multiple times;
// calls after the first success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{serviceStarts, serviceStops, startFailures, readinessWait, stateTransitions, currentState}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler serves Prometheus metrics for the default gatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncStart(service string) {
	if regOK.Load() {
		serviceStarts.WithLabelValues(service).Inc()
	}
}

func IncStop(service string) {
	if regOK.Load() {
		serviceStops.WithLabelValues(service).Inc()
	}
}

func IncStartFailure(service, cause string) {
	if regOK.Load() {
		startFailures.WithLabelValues(service, cause).Inc()
	}
}

func ObserveReadinessWait(service string, seconds float64) {
	if regOK.Load() {
		readinessWait.WithLabelValues(service).Observe(seconds)
	}
}

func RecordStateTransition(service, from, to string) {
	if regOK.Load() {
		stateTransitions.WithLabelValues(service, from, to).Inc()
	}
}

func SetCurrentState(service, state string, active bool) {
	if regOK.Load() {
		v := 0.0
		if active {
			v = 1.0
		}
		currentState.WithLabelValues(service, state).Set(v)
	}
}
