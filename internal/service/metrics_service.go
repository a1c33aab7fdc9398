package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// scheduling algorithm.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	plannerRuns     *prometheus.CounterVec
	plannerBlocks   prometheus.Counter
	plannerHours    prometheus.Counter
	plannerDuration prometheus.Observer
	reportCacheHits prometheus.Counter
	reportCacheMiss prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
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

	plannerRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_runs_total",
		Help: "Total scheduling runs by outcome",
	}, []string{"outcome"})

	plannerBlocks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planner_blocks_created_total",
		Help: "Total study blocks created by scheduling runs",
	})

	plannerHours := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planner_hours_scheduled_total",
		Help: "Total study hours scheduled",
	})

	plannerDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "planner_run_duration_seconds",
		Help:    "Duration of scheduling runs",
		Buckets: prometheus.DefBuckets,
	})

	reportCacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "report_cache_hits_total",
		Help: "Total plan report cache hits",
	})

	reportCacheMiss := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "report_cache_misses_total",
		Help: "Total plan report cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, plannerRuns, plannerBlocks,
		plannerHours, plannerDuration, reportCacheHits, reportCacheMiss, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		plannerRuns:     plannerRuns,
		plannerBlocks:   plannerBlocks,
		plannerHours:    plannerHours,
		plannerDuration: plannerDuration,
		reportCacheHits: reportCacheHits,
		reportCacheMiss: reportCacheMiss,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"method": method, "path": path, "status": strconv.Itoa(status)}
	m.requestDuration.With(labels).Observe(duration.Seconds())
	m.requestTotal.With(labels).Inc()
}

// ObservePlannerRun records the result of one scheduling run.
func (m *MetricsService) ObservePlannerRun(outcome string, blocks int, hours float64, duration time.Duration) {
	if m == nil {
		return
	}
	m.plannerRuns.WithLabelValues(outcome).Inc()
	m.plannerBlocks.Add(float64(blocks))
	m.plannerHours.Add(hours)
	m.plannerDuration.Observe(duration.Seconds())
}

// ObserveReportCache records a report cache lookup.
func (m *MetricsService) ObserveReportCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.reportCacheHits.Inc()
		return
	}
	m.reportCacheMiss.Inc()
}
