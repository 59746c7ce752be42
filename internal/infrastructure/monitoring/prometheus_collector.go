package monitoring

import (
	"errors"
	"strconv"
	"time"

	"streamhub/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels
const (
	OutcomeSuccess     = "success"
	OutcomeRejected    = "rejected"
	OutcomeNotFound    = "not_found"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

type PrometheusCollector struct {
	// HTTP
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInFlight        prometheus.Gauge

	// Domain
	authAttemptsTotal     *prometheus.CounterVec
	streamOperationsTotal *prometheus.CounterVec

	// Dependencies
	dependencyUp        *prometheus.GaugeVec
	circuitBreakerState *prometheus.GaugeVec
}

// NewPrometheusCollector registers the service metrics with reg.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "streamhub_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),

		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "streamhub_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route"}),

		httpInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "streamhub_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		}),

		authAttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "streamhub_auth_attempts_total",
			Help: "Signup and login attempts by outcome",
		}, []string{"flow", "outcome"}),

		streamOperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "streamhub_stream_operations_total",
			Help: "Stream store operations by outcome",
		}, []string{"operation", "outcome"}),

		dependencyUp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "streamhub_dependency_up",
			Help: "1 if the last health check of the dependency passed",
		}, []string{"check"}),

		circuitBreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "streamhub_circuit_breaker_state",
			Help: "Store circuit breaker state (0 closed, 1 open, 2 half-open)",
		}, []string{"store"}),
	}
}

func (p *PrometheusCollector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	p.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (p *PrometheusCollector) HTTPRequestStarted() {
	p.httpInFlight.Inc()
}

func (p *PrometheusCollector) HTTPRequestFinished() {
	p.httpInFlight.Dec()
}

// AuthAttempt implements ports.AuthObserver.
func (p *PrometheusCollector) AuthAttempt(flow string, err error) {
	p.authAttemptsTotal.WithLabelValues(flow, outcome(err)).Inc()
}

// StreamOperation implements ports.StreamObserver.
func (p *PrometheusCollector) StreamOperation(op string, err error) {
	p.streamOperationsTotal.WithLabelValues(op, outcome(err)).Inc()
}

func (p *PrometheusCollector) RecordDependencyCheck(check string, err error) {
	v := 1.0
	if err != nil {
		v = 0
	}
	p.dependencyUp.WithLabelValues(check).Set(v)
}

func (p *PrometheusCollector) RecordCircuitBreakerState(store string, state int) {
	p.circuitBreakerState.WithLabelValues(store).Set(float64(state))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrEmailAlreadyRegistered):
		return OutcomeRejected
	case errors.Is(err, domain.ErrStreamNotFound):
		return OutcomeNotFound
	case errors.Is(err, domain.ErrStoreUnavailable):
		return OutcomeUnavailable
	default:
		return OutcomeError
	}
}
