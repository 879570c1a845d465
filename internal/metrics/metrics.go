// Package metrics exposes Prometheus instrumentation for the dashboard:
// poll outcomes and latencies, backend request counts and the latest
// detection figures.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"idslab-dashboard/internal/models"
)

const namespace = "idslab"

// Metrics holds all the Prometheus collectors of the dashboard
type Metrics struct {
	registry *prometheus.Registry

	PollsTotal      *prometheus.CounterVec
	PollDuration    *prometheus.HistogramVec
	BackendRequests *prometheus.CounterVec

	DetectionRate     prometheus.Gauge
	FalsePositiveRate prometheus.Gauge
	Precision         prometheus.Gauge
	ROCAUC            prometheus.Gauge
}

// New creates the collectors and registers them on a dedicated registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Total number of view polls by outcome",
		}, []string{"view", "outcome"}),
		PollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of view polls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"view"}),
		BackendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Total number of requests issued to the testing backend",
		}, []string{"method", "code"}),
		DetectionRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "detection_rate_percent",
			Help:      "Latest aggregate true-positive rate",
		}),
		FalsePositiveRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "false_positive_rate_percent",
			Help:      "Latest aggregate false-positive rate",
		}),
		Precision: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "precision_percent",
			Help:      "Latest aggregate detection precision",
		}),
		ROCAUC: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "roc_auc",
			Help:      "Latest ROC AUC estimate",
		}),
	}

	m.registry.MustRegister(
		m.PollsTotal,
		m.PollDuration,
		m.BackendRequests,
		m.DetectionRate,
		m.FalsePositiveRate,
		m.Precision,
		m.ROCAUC,
	)
	return m
}

// Registry returns the registry the collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collected metrics in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObservePoll records the outcome and duration of a view poll
func (m *Metrics) ObservePoll(view, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.PollsTotal.WithLabelValues(view, outcome).Inc()
	m.PollDuration.WithLabelValues(view).Observe(d.Seconds())
}

// ObserveRequest records a backend request. A zero code marks a transport failure.
func (m *Metrics) ObserveRequest(method string, code int) {
	if m == nil {
		return
	}
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	m.BackendRequests.WithLabelValues(method, label).Inc()
}

// SetAnalytics publishes the latest aggregate detection figures
func (m *Metrics) SetAnalytics(view models.AnalyticsView) {
	if m == nil {
		return
	}
	m.DetectionRate.Set(view.Rates.TruePositiveRate)
	m.FalsePositiveRate.Set(view.Rates.FalsePositiveRate)
	m.Precision.Set(view.Rates.Precision)
	m.ROCAUC.Set(view.ROC.AUC)
}
