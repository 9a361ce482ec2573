// Package observability holds the metrics and tracing adapters used by the
// long-running server.
package observability

import (
	"context"
	"strconv"
	"time"

	pkgerrors "chatarchive/pkg/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Collector owns a private Prometheus registry with the archive's metrics.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Detections        *prometheus.CounterVec
	DetectionDuration prometheus.Histogram
	EntriesCompared   prometheus.Counter
	EdgesLinked       prometheus.Counter
	EdgesRemoved      prometheus.Counter

	QueryDuration *prometheus.HistogramVec
}

// NewCollector registers every metric under namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Relationship detection passes by outcome.",
		}, []string{"outcome"}),
		DetectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detection_duration_seconds",
			Help:      "Relationship detection latency.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		EntriesCompared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_compared_total",
			Help:      "Entry pairs scored by detection.",
		}),
		EdgesLinked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_linked_total",
			Help:      "Relationship pairs written by detection.",
		}),
		EdgesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_removed_total",
			Help:      "Stale detected pairs removed.",
		}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Query handler latency by query type and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query", "status"}),
	}

	registry.MustRegister(
		c.HTTPRequests, c.HTTPDuration,
		c.Detections, c.DetectionDuration, c.EntriesCompared, c.EdgesLinked, c.EdgesRemoved,
		c.QueryDuration,
	)
	return c
}

// Registry exposes the registry for the /metrics handler
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordDetection implements ports.DetectionMetrics
func (c *Collector) RecordDetection(_ context.Context, compared, linked, removed int, took time.Duration, err error) {
	c.Detections.WithLabelValues(outcome(err)).Inc()
	c.DetectionDuration.Observe(took.Seconds())
	c.EntriesCompared.Add(float64(compared))
	c.EdgesLinked.Add(float64(linked))
	c.EdgesRemoved.Add(float64(removed))
}

// ObserveQuery records one query bus dispatch
func (c *Collector) ObserveQuery(queryType string, took time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.QueryDuration.WithLabelValues(queryType, status).Observe(took.Seconds())
}

// ObserveHTTP records one served request
func (c *Collector) ObserveHTTP(method, route string, status int, took time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

// outcome labels a detection result
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		return string(appErr.Type)
	}
	return "error"
}
