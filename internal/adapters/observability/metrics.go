package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ArchiveOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "insights", Name: "archive_operations_total", Help: "Archive operations."},
		[]string{"op", "status"}, // op: write|read|export
	)
	ArchiveLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "insights", Name: "archive_operation_duration_seconds",
			Help:    "Archive operation duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	PropertiesStored = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "insights", Name: "properties_stored", Help: "Rows written by the last build."},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "insights", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "op", "status"}, // op: build|summary|none
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "insights", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "op"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "insights", Name: "cache_events_total", Help: "Cache lookups and writes."},
		[]string{"cache", "event"}, // event: hit|miss|stale|error|set|del
	)
)

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(ArchiveOps, ArchiveLatency, PropertiesStored, HTTPRequests, HTTPLatency, CacheEvents)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry for the node-exporter textfile collector.
// A blank path disables it.
func WriteTextfile(reg *prometheus.Registry, path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, reg)
}

func ObserveArchive(op string, err error, dur time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ArchiveOps.WithLabelValues(op, status).Inc()
	ArchiveLatency.WithLabelValues(op).Observe(dur.Seconds())
}

func ObserveHTTP(route, method, op string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, op, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method, op).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) {
	CacheEvents.WithLabelValues(cache, event).Inc()
}
