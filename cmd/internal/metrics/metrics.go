// Package metrics collects and exposes Prometheus metrics for the auth service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by the account service and HTTP layer.
type Recorder interface {
	RecordAuth(op string, outcome string)
	RecordTokensIssued(op string)
	RecordHashDuration(d time.Duration)
	RecordHTTPStatus(route string, status int)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordAuth(string, string) {}
func (Nop) RecordTokensIssued(string) {}
func (Nop) RecordHashDuration(time.Duration) {}
func (Nop) RecordHTTPStatus(string, int) {}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	authOutcomes *prometheus.CounterVec
	tokensIssued *prometheus.CounterVec
	hashDuration prometheus.Histogram
	httpStatus   *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authsvc_auth_operations_total",
			Help: "Auth operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authsvc_token_pairs_issued_total",
			Help: "Token pairs minted, by the operation that minted them.",
		}, []string{"op"}),
		hashDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "authsvc_password_hash_seconds",
			Help:    "Time spent hashing or verifying passwords.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authsvc_http_responses_total",
			Help: "HTTP responses by route pattern and status code.",
		}, []string{"route", "status_code"}),
	}

	reg.MustRegister(
		c.authOutcomes,
		c.tokensIssued,
		c.hashDuration,
		c.httpStatus,
	)
	return c
}

// RecordAuth counts one auth operation outcome ("ok" or an error kind).
func (c *Collector) RecordAuth(op string, outcome string) {
	c.authOutcomes.WithLabelValues(op, outcome).Inc()
}

// RecordTokensIssued counts one minted token pair.
func (c *Collector) RecordTokensIssued(op string) {
	c.tokensIssued.WithLabelValues(op).Inc()
}

// RecordHashDuration observes one password hash or verify.
func (c *Collector) RecordHashDuration(d time.Duration) {
	c.hashDuration.Observe(d.Seconds())
}

// RecordHTTPStatus counts one response.
func (c *Collector) RecordHTTPStatus(route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	c.httpStatus.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
