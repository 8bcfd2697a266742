package app

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"resty.dev/v3"

	"threadline/api/internal/contentapi"
)

const metricsNamespace = "threadline"

// Metrics owns the service's Prometheus collectors. Each instance has its own
// registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	contentAPIRequests *prometheus.CounterVec
	contentAPIDuration *prometheus.HistogramVec
	droppedComments    prometheus.Counter
	submissions        *prometheus.CounterVec
	openViews          prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		contentAPIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "content_api_requests_total",
			Help:      "Requests made to the content API by endpoint and status.",
		}, []string{"endpoint", "status"}),
		contentAPIDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "content_api_request_duration_seconds",
			Help:      "Content API request latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		droppedComments: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "comments_dropped_total",
			Help:      "Comment nodes dropped by the normalizer.",
		}),
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "comment_submissions_total",
			Help:      "Comment submissions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		openViews: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "open_views",
			Help:      "Thread views currently open.",
		}),
	}
}

// ResponseMiddleware records every content API response.
func (m *Metrics) ResponseMiddleware() resty.ResponseMiddleware {
	return func(_ *resty.Client, res *resty.Response) error {
		endpoint := contentapi.Endpoint(res.Request.Context())
		m.contentAPIRequests.WithLabelValues(endpoint, strconv.Itoa(res.StatusCode())).Inc()
		m.contentAPIDuration.WithLabelValues(endpoint).Observe(res.Duration().Seconds())
		return nil
	}
}

func (m *Metrics) CommentsDropped(n int) {
	m.droppedComments.Add(float64(n))
}

func (m *Metrics) SubmitFinished(kind, outcome string) {
	m.submissions.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
