// Package metrics provides Prometheus metrics for the proxy.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Request outcomes, one per terminal state of a client connection.
const (
	OutcomeForwarded  = "forwarded"
	OutcomeBlocked    = "blocked"
	OutcomeMalformed  = "malformed"
	OutcomeDialFailed = "dial_failed"
)

var dialBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Metrics holds all collectors, registered on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	Requests            *prometheus.CounterVec
	Responses           *prometheus.CounterVec
	ConnectionsInFlight prometheus.Gauge
	DialDuration        prometheus.Histogram
	BytesRelayed        prometheus.Counter
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blockproxy_requests_total",
			Help: "Client requests by outcome.",
		}, []string{"outcome"}),

		Responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blockproxy_responses_total",
			Help: "Origin responses by status code observed in the first chunk.",
		}, []string{"status_code"}),

		ConnectionsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blockproxy_connections_in_flight",
			Help: "Client connections currently being handled.",
		}),

		DialDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blockproxy_upstream_dial_duration_seconds",
			Help:    "Time to open the upstream connection, successful or not.",
			Buckets: dialBuckets,
		}),

		BytesRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blockproxy_response_bytes_total",
			Help: "Response bytes relayed from origins to clients.",
		}),
	}

	reg.MustRegister(
		m.Requests,
		m.Responses,
		m.ConnectionsInFlight,
		m.DialDuration,
		m.BytesRelayed,
	)

	return m
}

// NormalizeStatus returns code if it is a status in 100-599, else "other".
func NormalizeStatus(code string) string {
	n, err := strconv.Atoi(code)
	if err != nil || len(code) != 3 || n < 100 || n > 599 {
		return "other"
	}
	return code
}
