package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Extraction outcome labels.
const (
	OutcomeExtracted      = "extracted"
	OutcomeNoData         = "no_data"
	OutcomeUpstreamFailed = "upstream_failed"
	OutcomeMalformed      = "malformed"
)

// Metrics bundles the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	sessionsCreated    prometheus.Counter
	discoveryTurns     *prometheus.CounterVec
	extractionOutcomes *prometheus.CounterVec
	extractionAttempts prometheus.Counter
	gatewayRequests    *prometheus.CounterVec
	gatewayDuration    *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "polaris_sessions_created_total",
			Help: "Total number of discovery sessions created",
		}),
		discoveryTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "polaris_discovery_turns_total",
			Help: "Discovery turns processed, by completion state",
		}, []string{"complete"}),
		extractionOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "polaris_extraction_outcomes_total",
			Help: "Slot extraction outcomes",
		}, []string{"outcome"}),
		extractionAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "polaris_extraction_attempts_total",
			Help: "Model calls issued by the slot extractor, retries included",
		}),
		gatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "polaris_gateway_requests_total",
			Help: "Model gateway requests, by provider and status",
		}, []string{"provider", "status"}),
		gatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "polaris_gateway_request_duration_seconds",
			Help:    "Model gateway request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
	}

	m.registry.MustRegister(
		m.sessionsCreated,
		m.discoveryTurns,
		m.extractionOutcomes,
		m.extractionAttempts,
		m.gatewayRequests,
		m.gatewayDuration,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
}

func (m *Metrics) DiscoveryTurn(complete bool) {
	if m == nil {
		return
	}
	m.discoveryTurns.WithLabelValues(strconv.FormatBool(complete)).Inc()
}

func (m *Metrics) ExtractionOutcome(outcome string, attempts int) {
	if m == nil {
		return
	}
	m.extractionOutcomes.WithLabelValues(outcome).Inc()
	m.extractionAttempts.Add(float64(attempts))
}

func (m *Metrics) GatewayRequest(provider string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.gatewayRequests.WithLabelValues(provider, status).Inc()
	m.gatewayDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}
