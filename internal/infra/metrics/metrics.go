package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "filechain"

// Metrics exports ledger and signing counters. Each instance owns its
// registry so several servers can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	blocksAppended  prometheus.Counter
	appendFailures  prometheus.Counter
	chainLength     prometheus.Gauge
	signatures      *prometheus.CounterVec
	statusChecks    *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	rateLimitDenied *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		blocksAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "blocks_appended_total",
			Help: "Blocks appended to the ledger.",
		}),
		appendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "append_failures_total",
			Help: "Appends rejected because the chain could not be persisted.",
		}),
		chainLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "chain_length",
			Help: "Number of blocks in the ledger, genesis included.",
		}),
		signatures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "signatures", Name: "submissions_total",
			Help: "Signature submissions by outcome.",
		}, []string{"outcome"}),
		statusChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "signatures", Name: "status_checks_total",
			Help: "Signature status checks by verdict.",
		}, []string{"valid"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		rateLimitDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "rate_limited_total",
			Help: "Requests refused by the rate limiter.",
		}, []string{"route"}),
	}
	m.registry.MustRegister(
		m.blocksAppended,
		m.appendFailures,
		m.chainLength,
		m.signatures,
		m.statusChecks,
		m.httpRequests,
		m.rateLimitDenied,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) BlockAppended(chainLength int) {
	m.blocksAppended.Inc()
	m.chainLength.Set(float64(chainLength))
}

func (m *Metrics) AppendFailed() {
	m.appendFailures.Inc()
}

func (m *Metrics) SetChainLength(n int) {
	m.chainLength.Set(float64(n))
}

func (m *Metrics) SignatureRecorded() {
	m.signatures.WithLabelValues("recorded").Inc()
}

func (m *Metrics) SignatureRejected(reason string) {
	m.signatures.WithLabelValues(reason).Inc()
}

func (m *Metrics) StatusChecked(valid bool) {
	m.statusChecks.WithLabelValues(strconv.FormatBool(valid)).Inc()
}

func (m *Metrics) RequestServed(route string, code int) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

func (m *Metrics) RateLimited(route string) {
	m.rateLimitDenied.WithLabelValues(route).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
