// Package metrics records client-side request and token-refresh metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Refresh outcomes.
const (
	RefreshSuccess        = "success"
	RefreshFailure        = "failure"
	RefreshNoRefreshToken = "no_refresh_token"
)

// Recorder is used by the transport and refresh coordinator.
type Recorder interface {
	RecordRequest(method string, status int, duration time.Duration)
	RecordRefresh(outcome string, duration time.Duration)
	RecordRefreshWaiter()
}

// Nop discards everything.
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) RecordRequest(string, int, time.Duration) {}
func (Nop) RecordRefresh(string, time.Duration)      {}
func (Nop) RecordRefreshWaiter()                     {}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	requests        *prometheus.CounterVec
	requestDuration prometheus.Histogram
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	waiters         prometheus.Counter
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers it on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamtrack_client_requests_total",
			Help: "API requests by method and HTTP status (0 when no response was received).",
		}, []string{"method", "status"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "teamtrack_client_request_duration_seconds",
			Help:    "API request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamtrack_client_refresh_total",
			Help: "Token refresh cycles by outcome.",
		}, []string{"outcome"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "teamtrack_client_refresh_duration_seconds",
			Help:    "Token refresh cycle latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		waiters: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teamtrack_client_refresh_waiters_total",
			Help: "Requests that waited on an in-flight refresh.",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.requestDuration,
		c.refreshes,
		c.refreshDuration,
		c.waiters,
	)
	return c
}

func (c *Collector) RecordRequest(method string, status int, duration time.Duration) {
	c.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.requestDuration.Observe(duration.Seconds())
}

func (c *Collector) RecordRefresh(outcome string, duration time.Duration) {
	c.refreshes.WithLabelValues(outcome).Inc()
	c.refreshDuration.Observe(duration.Seconds())
}

func (c *Collector) RecordRefreshWaiter() {
	c.waiters.Inc()
}
