package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	cacheLatency     prometheus.Observer
	cacheWrite       prometheus.Observer
	timetableSaves   *prometheus.CounterVec
	timetableRows    *prometheus.CounterVec
	violations       *prometheus.CounterVec
	lessonsGenerated *prometheus.CounterVec
}

// NewMetricsService registers collectors on a private registry.
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

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache reads",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache writes",
		Buckets: prometheus.DefBuckets,
	})

	timetableSaves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_builder_submissions_total",
		Help: "Timetable builder submissions by mode, action and outcome",
	}, []string{"mode", "action", "outcome"})

	timetableRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_entries_changed_total",
		Help: "Timetable entries inserted, deleted or kept by builder submissions",
	}, []string{"mode", "change"})

	violations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_violations_total",
		Help: "Constraint violations found in rejected submissions",
	}, []string{"kind"})

	lessonsGenerated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lesson_records_generated_total",
		Help: "Lesson records created by week generation",
	}, []string{"mode"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLookups, cacheLatency, cacheWrite,
		timetableSaves, timetableRows, violations, lessonsGenerated, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLookups:     cacheLookups,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		timetableSaves:   timetableSaves,
		timetableRows:    timetableRows,
		violations:       violations,
		lessonsGenerated: lessonsGenerated,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordTimetableSubmission counts a builder submission and the rows it changed.
func (m *MetricsService) RecordTimetableSubmission(mode, action, outcome string, inserted, deleted, kept int) {
	if m == nil {
		return
	}
	m.timetableSaves.WithLabelValues(mode, action, outcome).Inc()
	m.timetableRows.WithLabelValues(mode, "inserted").Add(float64(inserted))
	m.timetableRows.WithLabelValues(mode, "deleted").Add(float64(deleted))
	m.timetableRows.WithLabelValues(mode, "kept").Add(float64(kept))
}

// RecordViolation counts a constraint violation by kind.
func (m *MetricsService) RecordViolation(kind string) {
	if m == nil {
		return
	}
	m.violations.WithLabelValues(kind).Inc()
}

// RecordLessonsGenerated counts lesson records created for a week.
func (m *MetricsService) RecordLessonsGenerated(mode string, created int) {
	if m == nil {
		return
	}
	m.lessonsGenerated.WithLabelValues(mode).Add(float64(created))
}
