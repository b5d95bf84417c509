// Package metrics exposes Prometheus collectors for the HTTP server and the
// government-data proxy.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "passport"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	cacheResults     *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	upstreamErrors   *prometheus.CounterVec
	jobRuns          *prometheus.CounterVec
}

// New builds a Metrics with its own registry so tests can create as many as
// they like.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route"}),
		cacheResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "govdata",
			Name:      "cache_results_total",
			Help:      "Government-data cache lookups by result (hit, miss, error).",
		}, []string{"provider", "result"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "govdata",
			Name:      "upstream_duration_seconds",
			Help:      "Duration of upstream government-data requests.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"provider"}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "govdata",
			Name:      "upstream_errors_total",
			Help:      "Failed upstream government-data requests.",
		}, []string{"provider"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by outcome.",
		}, []string{"job", "success"}),
	}
	m.registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.cacheResults,
		m.upstreamDuration,
		m.upstreamErrors,
		m.jobRuns,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest labels by route pattern rather than raw path so ids do
// not explode the series count.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) CacheResult(provider, result string) {
	m.cacheResults.WithLabelValues(provider, result).Inc()
}

func (m *Metrics) UpstreamDone(provider string, d time.Duration, err error) {
	m.upstreamDuration.WithLabelValues(provider).Observe(d.Seconds())
	if err != nil {
		m.upstreamErrors.WithLabelValues(provider).Inc()
	}
}

func (m *Metrics) JobRun(job string, err error) {
	m.jobRuns.WithLabelValues(job, strconv.FormatBool(err == nil)).Inc()
}
