package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	pkgerrors "esn-backend/pkg/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the service. Each collector
// owns its registry, so tests can create as many as they like. When a
// CloudWatch sink is attached every measurement is also sent there.
type Collector struct {
	registry   *prometheus.Registry
	cloudwatch *CloudWatchSink

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Application metrics
	Commands        *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	Queries         *prometheus.CounterVec
	QueryDuration   *prometheus.HistogramVec

	// Store metrics
	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Commands handled, by outcome",
			},
			[]string{"command", "outcome"},
		),
		CommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Command duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		Queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Queries handled, by outcome",
			},
			[]string{"query", "outcome"},
		),
		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Query duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"query"},
		),
		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Connection list store operations, by outcome",
			},
			[]string{"backend", "operation", "outcome"},
		),
		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Connection list store operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"backend", "operation"},
		),
		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of view cache hits",
			},
		),
		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of view cache misses",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.HTTPRequests,
		c.HTTPDuration,
		c.Commands,
		c.CommandDuration,
		c.Queries,
		c.QueryDuration,
		c.StoreOperations,
		c.StoreDuration,
		c.CacheHits,
		c.CacheMisses,
	)

	return c
}

// AttachCloudWatch mirrors measurements into sink. Call it before the
// collector is shared.
func (c *Collector) AttachCloudWatch(sink *CloudWatchSink) {
	c.cloudwatch = sink
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served request
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, http.StatusText(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())

	dims := []string{"Method", method, "Route", route, "Status", strconv.Itoa(status)}
	c.cloudwatch.count("RequestCount", dims...)
	c.cloudwatch.latency("RequestLatency", duration, dims...)
}

// RecordCommand records a command outcome
func (c *Collector) RecordCommand(commandType string, duration time.Duration, err error) {
	c.Commands.WithLabelValues(commandType, Outcome(err)).Inc()
	c.CommandDuration.WithLabelValues(commandType).Observe(duration.Seconds())

	dims := []string{"CommandName", commandType, "Status", Outcome(err)}
	c.cloudwatch.count("CommandCount", dims...)
	c.cloudwatch.latency("CommandExecution", duration, dims...)
}

// RecordQuery records a query outcome
func (c *Collector) RecordQuery(queryType string, duration time.Duration, err error) {
	c.Queries.WithLabelValues(queryType, Outcome(err)).Inc()
	c.QueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())

	dims := []string{"QueryName", queryType, "Status", Outcome(err)}
	c.cloudwatch.count("QueryCount", dims...)
	c.cloudwatch.latency("QueryExecution", duration, dims...)
}

// RecordStoreOperation records a Load or Save against a store backend
func (c *Collector) RecordStoreOperation(backend, operation string, duration time.Duration, err error) {
	c.StoreOperations.WithLabelValues(backend, operation, Outcome(err)).Inc()
	c.StoreDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())

	dims := []string{"Backend", backend, "Operation", operation, "Status", Outcome(err)}
	c.cloudwatch.count("StoreOperationCount", dims...)
	c.cloudwatch.latency("StoreOperationLatency", duration, dims...)
}

// RecordCacheLookup counts a cache hit or miss
func (c *Collector) RecordCacheLookup(hit bool) {
	if hit {
		c.CacheHits.Inc()
		c.cloudwatch.count("CacheHit")
		return
	}
	c.CacheMisses.Inc()
	c.cloudwatch.count("CacheMiss")
}

// Outcome maps an error to a low-cardinality label value
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		return strings.ToLower(string(appErr.Type))
	}
	return "error"
}
