package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cragwatch/backend/services/crag-dashboard/internal/clients"
)

// Metrics collects polling pipeline and HTTP surface metrics.
type Metrics struct {
	registry      *prometheus.Registry
	polls         *prometheus.CounterVec
	pollDuration  *prometheus.HistogramVec
	superseded    *prometheus.CounterVec
	subscriptions *prometheus.GaugeVec
	requests      *prometheus.CounterVec
	requestTime   *prometheus.HistogramVec
}

// New registers the dashboard metrics on a dedicated registry, plus the Go and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cragwatch",
			Name:      "poll_total",
			Help:      "Poll attempts by view and outcome.",
		}, []string{"view", "outcome"}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cragwatch",
			Name:      "poll_duration_seconds",
			Help:      "Latency of applied polls by view.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"view"}),
		superseded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cragwatch",
			Name:      "poll_superseded_total",
			Help:      "Poll results discarded because a newer request had started.",
		}, []string{"view"}),
		subscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cragwatch",
			Name:      "subscriptions_active",
			Help:      "Mounted polling subscriptions by view.",
		}, []string{"view"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cragwatch",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		requestTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cragwatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	m.registry.MustRegister(
		m.polls,
		m.pollDuration,
		m.superseded,
		m.subscriptions,
		m.requests,
		m.requestTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObservePoll records an applied poll result.
func (m *Metrics) ObservePoll(view string, err error, took time.Duration) {
	m.polls.WithLabelValues(view, clients.Kind(err)).Inc()
	m.pollDuration.WithLabelValues(view).Observe(took.Seconds())
}

// ObserveSuperseded records a discarded stale result.
func (m *Metrics) ObserveSuperseded(view string) {
	m.superseded.WithLabelValues(view).Inc()
}

// SetSubscriptions sets the live subscription gauge for a view.
func (m *Metrics) SetSubscriptions(view string, live int) {
	m.subscriptions.WithLabelValues(view).Set(float64(live))
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler counts and times requests served by h under the given route label.
func (m *Metrics) InstrumentHandler(route string, h http.Handler) http.Handler {
	labels := prometheus.Labels{"route": route}
	return promhttp.InstrumentHandlerDuration(m.requestTime.MustCurryWith(labels),
		promhttp.InstrumentHandlerCounter(m.requests.MustCurryWith(labels), h))
}
