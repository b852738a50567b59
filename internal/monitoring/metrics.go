package monitoring

import (
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private Prometheus registry so several servers (and tests)
// can live in one process.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeRequests  prometheus.Gauge
	todoOperations  *prometheus.CounterVec
	startTime       time.Time
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests being served",
		}),
		todoOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todo_operations_total",
				Help: "Todo lifecycle operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		startTime: time.Now(),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.activeRequests,
		m.todoOperations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// Middleware records one sample per request, labelled by route template so
// ids do not explode cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.activeRequests.Inc()

		c.Next()

		m.activeRequests.Dec()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		m.requestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordTodoOperation counts a lifecycle call. outcome is "success",
// "invalid", "not_found" or "error".
func (m *Metrics) RecordTodoOperation(operation, outcome string) {
	m.todoOperations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return gin.WrapH(h)
}

type SystemMetrics struct {
	Uptime         string `json:"uptime"`
	GoroutineCount int    `json:"goroutine_count"`
	AllocMB        uint64 `json:"alloc_mb"`
	SysMB          uint64 `json:"sys_mb"`
	NumGC          uint32 `json:"num_gc"`
	GoVersion      string `json:"go_version"`
}

func (m *Metrics) System() SystemMetrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return SystemMetrics{
		Uptime:         m.Uptime().Round(time.Second).String(),
		GoroutineCount: runtime.NumGoroutine(),
		AllocMB:        mem.Alloc / 1024 / 1024,
		SysMB:          mem.Sys / 1024 / 1024,
		NumGC:          mem.NumGC,
		GoVersion:      runtime.Version(),
	}
}
