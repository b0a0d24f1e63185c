package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/grievance-api/internal/models"
)

// MetricsService owns the Prometheus registry. All methods are safe on a nil receiver.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	submissions     *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	idCollisions    prometheus.Counter
	staleWrites     prometheus.Counter
	statusGauge     *prometheus.GaugeVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grievances_submitted_total",
		Help: "Grievances accepted, by category",
	}, []string{"category"})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grievance_transitions_total",
		Help: "Committed status transitions",
	}, []string{"from", "to"})

	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grievance_rejections_total",
		Help: "Submissions and transitions refused, by error code",
	}, []string{"operation", "code"})

	idCollisions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grievance_id_collisions_total",
		Help: "Identifier candidates rejected because they were already taken",
	})

	staleWrites := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grievance_stale_writes_total",
		Help: "Transitions lost to a concurrent status change",
	})

	statusGauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "grievances_by_status",
		Help: "Current grievance count per status",
	}, []string{"status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		submissions, transitions, rejections, idCollisions, staleWrites, statusGauge, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		submissions:     submissions,
		transitions:     transitions,
		rejections:      rejections,
		idCollisions:    idCollisions,
		staleWrites:     staleWrites,
		statusGauge:     statusGauge,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

func (m *MetricsService) RecordSubmission(category models.GrievanceCategory) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(string(category)).Inc()
}

func (m *MetricsService) RecordTransition(from, to models.GrievanceStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// RecordRejection counts a refused operation under its error code.
func (m *MetricsService) RecordRejection(operation, code string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(operation, code).Inc()
}

func (m *MetricsService) RecordIdentifierCollision() {
	if m == nil {
		return
	}
	m.idCollisions.Inc()
}

func (m *MetricsService) RecordStaleWrite() {
	if m == nil {
		return
	}
	m.staleWrites.Inc()
}

// SetStatusCounts publishes the latest per-status totals.
func (m *MetricsService) SetStatusCounts(stats models.GrievanceStats) {
	if m == nil {
		return
	}
	m.statusGauge.WithLabelValues(string(models.StatusSubmitted)).Set(float64(stats.Submitted))
	m.statusGauge.WithLabelValues(string(models.StatusInProgress)).Set(float64(stats.InProgress))
	m.statusGauge.WithLabelValues(string(models.StatusResolved)).Set(float64(stats.Resolved))
	m.statusGauge.WithLabelValues(string(models.StatusClosed)).Set(float64(stats.Closed))
}
