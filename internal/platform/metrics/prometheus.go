package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jlmsdev/webCarros/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Manager holds the service's Prometheus collectors. A nil *Manager is valid
// and records nothing.
type Manager struct {
	Registry *prometheus.Registry

	ListingsCreated     prometheus.Counter
	ListingsDeleted     *prometheus.CounterVec // outcome: full, partial
	ImagesUploaded      prometheus.Counter
	ImagesRejected      prometheus.Counter
	ImageDeleteFailures *prometheus.CounterVec // stage: draft, restore, teardown
	HTTPLatency         *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

func NewManager(namespace string) *Manager {
	registry := prometheus.NewRegistry()

	m := &Manager{
		Registry: registry,
		ListingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_created_total",
			Help:      "Total number of listings submitted.",
		}),
		ListingsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_deleted_total",
			Help:      "Total number of listings deleted, by cleanup outcome.",
		}, []string{"outcome"}),
		ImagesUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_uploaded_total",
			Help:      "Total number of images stored.",
		}),
		ImagesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_rejected_total",
			Help:      "Total number of uploads rejected for their media type.",
		}),
		ImageDeleteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_delete_failures_total",
			Help:      "Blob deletions that failed.",
		}, []string{"stage"}),
		HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		HTTPErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "HTTP responses with status >= 400 by route.",
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(
		m.ListingsCreated,
		m.ListingsDeleted,
		m.ImagesUploaded,
		m.ImagesRejected,
		m.ImageDeleteFailures,
		m.HTTPLatency,
		m.HTTPErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Manager) ListingCreated() {
	if m == nil {
		return
	}
	m.ListingsCreated.Inc()
}

func (m *Manager) ListingDeleted(partial bool) {
	if m == nil {
		return
	}
	outcome := "full"
	if partial {
		outcome = "partial"
	}
	m.ListingsDeleted.WithLabelValues(outcome).Inc()
}

func (m *Manager) ImageUploaded() {
	if m == nil {
		return
	}
	m.ImagesUploaded.Inc()
}

func (m *Manager) ImageRejected() {
	if m == nil {
		return
	}
	m.ImagesRejected.Inc()
}

func (m *Manager) ImageDeleteFailed(stage string) {
	if m == nil {
		return
	}
	m.ImageDeleteFailures.WithLabelValues(stage).Inc()
}

func (m *Manager) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.HTTPLatency.WithLabelValues(method, route, code).Observe(elapsed.Seconds())
	if status >= 400 {
		m.HTTPErrors.WithLabelValues(method, route, code).Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// StartMetricsServer serves /metrics on its own port. An empty port disables it.
func StartMetricsServer(port string, appLogger *logger.Logger, m *Manager) error {
	if port == "" {
		appLogger.Info("Metrics port not configured, metrics server disabled")
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	appLogger.Info("Prometheus metrics server starting", zap.String("port", port), zap.String("path", "/metrics"))
	server := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
