package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	collectorRuns       *prometheus.CounterVec
	collectorDuration   prometheus.Histogram
	devicesSeen         prometheus.Gauge
	devicesOffline      prometheus.Gauge
}

// New creates a fresh Metrics registry with HTTP and collector metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zha",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by zha-status",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "zha",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by zha-status",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	collectorRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zha",
		Name:      "collector_runs_total",
		Help:      "Total number of collection runs by outcome",
	}, []string{"status"})

	collectorDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "zha",
		Name:      "collector_run_duration_seconds",
		Help:      "Duration of collection runs from connect to snapshot write",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	devicesSeen := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "zha",
		Name:      "devices_seen",
		Help:      "Devices present in the most recent snapshot",
	})

	devicesOffline := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "zha",
		Name:      "devices_offline",
		Help:      "Devices considered offline in the most recent snapshot",
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		collectorRuns,
		collectorDuration,
		devicesSeen,
		devicesOffline,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		collectorRuns:       collectorRuns,
		collectorDuration:   collectorDuration,
		devicesSeen:         devicesSeen,
		devicesOffline:      devicesOffline,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// IncCollectorRun increments the run counter for one outcome ("succeeded" or "failed").
func (m *Metrics) IncCollectorRun(status string) {
	if m == nil {
		return
	}
	m.collectorRuns.With(prometheus.Labels{"status": status}).Inc()
}

// ObserveCollectorRunDuration observes one run's duration.
func (m *Metrics) ObserveCollectorRunDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.collectorDuration.Observe(duration.Seconds())
}

// SetDeviceCounts records the fleet size and offline count from a snapshot.
func (m *Metrics) SetDeviceCounts(seen, offline int) {
	if m == nil {
		return
	}
	m.devicesSeen.Set(float64(seen))
	m.devicesOffline.Set(float64(offline))
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
