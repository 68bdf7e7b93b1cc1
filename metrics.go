package main

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type requestRecord struct {
	N        int64
	Result   string
	Duration time.Duration
	At       time.Time
}

type statusSnapshot struct {
	ActiveConnections int
	RequestsServed    int
	RequestsFailed    map[string]int
	LastRequest       *requestRecord
}

// serverMetrics feeds both the Prometheus registry and the /status endpoint.
type serverMetrics struct {
	registry          *prometheus.Registry
	requests          *prometheus.CounterVec
	computeSeconds    prometheus.Histogram
	activeConnections prometheus.Gauge

	mutex          sync.Mutex
	active         int
	requestsServed int
	requestsFailed map[string]int
	lastRequest    *requestRecord
}

func newServerMetrics() *serverMetrics {
	metrics := &serverMetrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fib_server_requests_total",
				Help: "Total number of connections serviced, by result",
			},
			[]string{"result"},
		),
		computeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fib_server_compute_seconds",
			Help:    "Time spent computing Fibonacci numbers",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fib_server_active_connections",
			Help: "Number of client connections currently being serviced",
		}),
		requestsFailed: make(map[string]int),
	}
	metrics.registry.MustRegister(metrics.requests, metrics.computeSeconds, metrics.activeConnections)
	return metrics
}

func (m *serverMetrics) connectionOpened() {
	m.activeConnections.Inc()
	m.mutex.Lock()
	m.active++
	m.mutex.Unlock()
}

func (m *serverMetrics) connectionClosed() {
	m.activeConnections.Dec()
	m.mutex.Lock()
	m.active--
	m.mutex.Unlock()
}

func (m *serverMetrics) observeCompute(duration time.Duration) {
	m.computeSeconds.Observe(duration.Seconds())
}

func (m *serverMetrics) observe(record requestRecord) {
	m.requests.WithLabelValues(record.Result).Inc()

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if record.Result == resultOk {
		m.requestsServed++
	} else {
		m.requestsFailed[record.Result]++
	}
	m.lastRequest = &record
}

func (m *serverMetrics) snapshot() statusSnapshot {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	failed := make(map[string]int, len(m.requestsFailed))
	for kind, count := range m.requestsFailed {
		failed[kind] = count
	}
	var last *requestRecord
	if m.lastRequest != nil {
		copied := *m.lastRequest
		last = &copied
	}
	return statusSnapshot{
		ActiveConnections: m.active,
		RequestsServed:    m.requestsServed,
		RequestsFailed:    failed,
		LastRequest:       last,
	}
}
