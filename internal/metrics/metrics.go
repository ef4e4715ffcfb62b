// Package metrics exposes prometheus instruments for imports, reference
// lookups, simulations and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricPrefix = "omip_"

// Metrics owns a registry so tests and multiple routers never collide on the
// default one.
type Metrics struct {
	registry *prometheus.Registry

	importTotal    *prometheus.CounterVec
	importRows     *prometheus.CounterVec
	referenceTotal *prometheus.CounterVec
	simulations    *prometheus.CounterVec
	confirmations  *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		importTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_total",
				Help: "Price sheet imports by result",
			},
			[]string{"result"},
		),
		importRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_rows_total",
				Help: "Imported data rows by outcome",
			},
			[]string{"outcome"},
		),
		referenceTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "reference_requests_total",
				Help: "Reference price computations by outcome",
			},
			[]string{"outcome"},
		),
		simulations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "simulations_total",
				Help: "Client simulations by install type and whether they were saved",
			},
			[]string{"install_type", "saved"},
		),
		confirmations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "email_confirmations_total",
				Help: "Confirmation emails and confirmations by step and result",
			},
			[]string{"step", "result"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.importTotal,
		m.importRows,
		m.referenceTotal,
		m.simulations,
		m.confirmations,
		m.httpRequests,
		m.httpLatency,
	)
	return m
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveImport(result string, upserted, skipped int) {
	if m == nil {
		return
	}
	m.importTotal.WithLabelValues(result).Inc()
	if upserted > 0 {
		m.importRows.WithLabelValues("upserted").Add(float64(upserted))
	}
	if skipped > 0 {
		m.importRows.WithLabelValues("skipped").Add(float64(skipped))
	}
}

func (m *Metrics) ObserveReference(outcome string) {
	if m == nil {
		return
	}
	m.referenceTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSimulation(installType string, saved bool) {
	if m == nil {
		return
	}
	m.simulations.WithLabelValues(installType, strconv.FormatBool(saved)).Inc()
}

func (m *Metrics) ObserveConfirmation(step, result string) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(step, result).Inc()
}

// Middleware records request counts and latency per matched route. Unmatched
// paths share one label so scanners cannot blow up cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpLatency.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
