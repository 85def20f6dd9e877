package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const metricNamespace = "gathrio"

// Prom bundles every metric the API and the worker expose. Both binaries
// build one against their own registry; unused families simply stay at zero.
type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// event-list cache
	CacheLookups *prometheus.CounterVec

	JobDuration  *prometheus.HistogramVec
	JobResults   *prometheus.CounterVec
	JobsInFlight prometheus.Gauge
}

func counterVec(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricNamespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func histogramVec(subsystem, name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricNamespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
}

func NewProm(reg prometheus.Registerer) *Prom {
	latencyBuckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

	p := &Prom{
		RequestsTotal: counterVec("", "http_requests_total",
			"HTTP requests served, by method, route template and status.",
			"method", "route", "status"),

		RequestsDuration: histogramVec("", "http_request_duration_seconds",
			"HTTP request latency.", latencyBuckets,
			"method", "route", "status"),

		InFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Name:      "http_in_flight_requests",
			Help:      "Requests currently being handled.",
		}, []string{"method", "route"}),

		DbQueryDuration: histogramVec("db", "query_duration_seconds",
			"Latency per logical repository operation.", latencyBuckets,
			"op", "status"),

		DbErrorsTotal: counterVec("db", "errors_total",
			"Repository errors by logical operation and error class.",
			"op", "class"),

		CacheLookups: counterVec("cache", "lookups_total",
			"Event-list cache lookups by result (hit or miss).",
			"result"),

		JobDuration: histogramVec("jobs", "duration_seconds",
			"Job execution time by type and outcome.",
			[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			"job_type", "result"),

		// result is one of done, retry, failed
		JobResults: counterVec("jobs", "results_total",
			"Job outcomes by type.",
			"job_type", "result"),

		JobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: "jobs",
			Name:      "in_flight",
			Help:      "Jobs executing in this process right now.",
		}),
	}

	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal, p.CacheLookups,
		p.JobDuration, p.JobResults, p.JobsInFlight,
	)

	return p
}

// GinHandleMiddleware records request count, latency and in-flight gauge per
// route template. Unrouted requests collapse into a single "unmatched" label
// to keep cardinality bounded.
func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method

		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()

		start := time.Now()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
	}
}
