package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/campus-sim/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the simulator.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	tickDuration    prometheus.Histogram
	ticksTotal      *prometheus.CounterVec
	tickMutations   *prometheus.CounterVec
	simulatedDate   prometheus.Gauge
	seedDuration    prometheus.Histogram
	seededEntities  *prometheus.GaugeVec
}

// NewMetricsService registers core Prometheus collectors on a private registry.
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

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	tickDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "simulation_tick_duration_seconds",
		Help:    "Wall time spent advancing one simulated week",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	ticksTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_ticks_total",
		Help: "Ticks attempted by outcome",
	}, []string{"outcome"})

	tickMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_tick_mutations_total",
		Help: "Entities changed by ticks",
	}, []string{"kind"})

	simulatedDate := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simulation_current_date_seconds",
		Help: "Simulated clock as a unix timestamp",
	})

	seedDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "simulation_seed_duration_seconds",
		Help:    "Wall time spent generating and persisting a dataset",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	seededEntities := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "simulation_seeded_entities",
		Help: "Entities written by the last seed",
	}, []string{"entity"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		tickDuration, ticksTotal, tickMutations, simulatedDate, seedDuration, seededEntities, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		tickDuration:    tickDuration,
		ticksTotal:      ticksTotal,
		tickMutations:   tickMutations,
		simulatedDate:   simulatedDate,
		seedDuration:    seedDuration,
		seededEntities:  seededEntities,
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

// Registry exposes the underlying registry for tests and embedding.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveTick records one AdvanceWeek call. result may be nil on failure.
func (m *MetricsService) ObserveTick(outcome string, duration time.Duration, result *models.TickResult) {
	if m == nil {
		return
	}
	m.ticksTotal.WithLabelValues(outcome).Inc()
	m.tickDuration.Observe(duration.Seconds())
	if result == nil {
		return
	}
	m.simulatedDate.Set(float64(result.NewDate.Unix()))
	for kind, n := range map[string]int{
		"dropped":     result.Dropped,
		"added":       result.Added,
		"midterms":    result.MidtermsGraded,
		"finals":      result.FinalsGraded,
		"risks":       result.RisksUpserted,
		"transcripts": result.TranscriptsCreated,
		"closed":      result.PeriodsClosed,
	} {
		m.tickMutations.WithLabelValues(kind).Add(float64(n))
	}
}

// ObserveSeed records a completed seed run.
func (m *MetricsService) ObserveSeed(duration time.Duration, summary models.SeedSummary) {
	if m == nil {
		return
	}
	m.seedDuration.Observe(duration.Seconds())
	for entity, n := range map[string]int{
		"periods":       summary.Periods,
		"programs":      summary.Programs,
		"courses":       summary.Courses,
		"sections":      summary.Sections,
		"students":      summary.Students,
		"registrations": summary.Registrations,
		"transcripts":   summary.Transcripts,
		"credentials":   summary.Credentials,
		"risks":         summary.Risks,
	} {
		m.seededEntities.WithLabelValues(entity).Set(float64(n))
	}
	m.simulatedDate.Set(0)
}
