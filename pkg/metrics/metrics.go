// Package metrics exposes Prometheus counters and histograms for backend
// calls made through the dispatcher.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "inventory"

// Collector records request lifecycle metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	invalidations   *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
}

// NewCollector registers the collector's metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of backend requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "Duration of backend requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		cacheHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of response cache hits",
			},
			[]string{"endpoint"},
		),
		cacheMisses: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of response cache misses",
			},
			[]string{"endpoint"},
		),
		invalidations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_invalidations_total",
				Help:      "Total number of cache invalidations after mutations",
			},
			[]string{"endpoint"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of failed backend requests by kind",
			},
			[]string{"kind", "method", "endpoint"},
		),
	}
}

// RecordRequest records a completed request. statusCode is 0 when no response arrived.
func (c *Collector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if c == nil {
		return
	}
	c.requestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	c.requestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func (c *Collector) RecordCacheHit(endpoint string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(endpoint).Inc()
}

func (c *Collector) RecordCacheMiss(endpoint string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(endpoint).Inc()
}

func (c *Collector) RecordInvalidation(endpoint string) {
	if c == nil {
		return
	}
	c.invalidations.WithLabelValues(endpoint).Inc()
}

// RecordError counts a failed request; kind is the transport error kind or
// "decode" / "unsupported_method".
func (c *Collector) RecordError(kind, method, endpoint string) {
	if c == nil {
		return
	}
	c.errorsTotal.WithLabelValues(kind, method, endpoint).Inc()
}
