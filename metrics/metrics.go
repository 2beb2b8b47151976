package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Purchase outcomes recorded by ObservePurchase.
const (
	OutcomePlaced    = "placed"
	OutcomeRejected  = "rejected"
	OutcomeDuplicate = "duplicate"
	OutcomeReplayed  = "replayed"
	OutcomeFailed    = "failed"
)

type Metrics struct {
	Requests  *prometheus.CounterVec
	Latency   *prometheus.HistogramVec
	Purchases *prometheus.CounterVec

	registry *prometheus.Registry
}

// New registers the storefront collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"route", "method"}),
		Purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "purchases_total",
			Help:      "Purchase attempts by outcome.",
		}, []string{"outcome"}),
		registry: reg,
	}
	reg.MustRegister(m.Requests, m.Latency, m.Purchases)
	return m
}

func (m *Metrics) ObservePurchase(outcome string) {
	m.Purchases.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
