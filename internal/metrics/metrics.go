// Package metrics exposes the prometheus collectors of the API
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lotes"

// Metrics groups every collector the API records
type Metrics struct {
	registry *prometheus.Registry

	PaymentsRecorded          *prometheus.CounterVec
	PaymentAmount             *prometheus.CounterVec
	InstallmentsGenerated     prometheus.Counter
	InstallmentsMarkedOverdue prometheus.Counter
	SaleTransitions           *prometheus.CounterVec
	RedistributionRuns        prometheus.Counter
	RedistributionDivergence  prometheus.Counter
	RedistributionFailures    prometheus.Counter
	JobRuns                   *prometheus.CounterVec
	JobDuration               *prometheus.HistogramVec
	HTTPRequests              *prometheus.CounterVec
	HTTPDuration              *prometheus.HistogramVec
	DashboardCache            *prometheus.CounterVec
}

// New builds the collectors and registers them on a fresh registry.
// The Go and process collectors are included so /metrics stays useful on its own.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PaymentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_recorded_total",
			Help:      "Payments recorded by type.",
		}, []string{"type"}),
		PaymentAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_amount_total",
			Help:      "Sum of recorded payment amounts by type.",
		}, []string{"type"}),
		InstallmentsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "installments_generated_total",
			Help:      "Installments created by the schedule generator.",
		}),
		InstallmentsMarkedOverdue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "installments_marked_overdue_total",
			Help:      "Installments moved from pending to overdue by the sweep.",
		}),
		SaleTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_transitions_total",
			Help:      "Sale state machine transitions by event.",
		}, []string{"event"}),
		RedistributionRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redistribution_runs_total",
			Help:      "Redistribution runs that adjusted at least one installment.",
		}),
		RedistributionDivergence: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redistribution_divergence_total",
			Help:      "Redistributions skipped because the schedule no longer adds up to the financed amount.",
		}),
		RedistributionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redistribution_failures_total",
			Help:      "Redistributions rolled back after an error or panic.",
		}),
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Background job runs by name and outcome.",
		}, []string{"job", "outcome"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Background job latency.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"job"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		DashboardCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_cache_total",
			Help:      "Dashboard cache lookups by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.PaymentsRecorded,
		m.PaymentAmount,
		m.InstallmentsGenerated,
		m.InstallmentsMarkedOverdue,
		m.SaleTransitions,
		m.RedistributionRuns,
		m.RedistributionDivergence,
		m.RedistributionFailures,
		m.JobRuns,
		m.JobDuration,
		m.HTTPRequests,
		m.HTTPDuration,
		m.DashboardCache,
	)

	return m
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObservePayment counts a recorded payment and its amount
func (m *Metrics) ObservePayment(paymentType string, amount float64) {
	m.PaymentsRecorded.WithLabelValues(paymentType).Inc()
	m.PaymentAmount.WithLabelValues(paymentType).Add(amount)
}

// ObserveJob records the outcome and latency of a background job
func (m *Metrics) ObserveJob(job string, started time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.JobRuns.WithLabelValues(job, outcome).Inc()
	m.JobDuration.WithLabelValues(job).Observe(time.Since(started).Seconds())
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
