// Package metrics provides Prometheus instrumentation for the exposure gate.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joripage/exposure-gate/pkg/admission/model"
	"github.com/joripage/exposure-gate/pkg/exposure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AdmissionsTotal counts decisions by side and outcome (accepted, validation, limit, internal).
	AdmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exposure_gate_admissions_total",
		Help: "Total number of admission decisions",
	}, []string{"side", "outcome"})

	AdmissionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "exposure_gate_admission_latency_seconds",
		Help:    "Time spent deciding a single order",
		Buckets: []float64{0.000005, 0.00001, 0.000025, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.005},
	}, []string{"outcome"})

	AuditDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exposure_gate_audit_dropped_total",
		Help: "Audit events dropped because the queue was full",
	})

	AuditPublishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exposure_gate_audit_publish_errors_total",
		Help: "Audit events the sink failed to publish",
	}, []string{"sink"})

	FixMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exposure_gate_fix_messages_total",
		Help: "FIX application messages handled, by direction and message type",
	}, []string{"direction", "msg_type"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exposure_gate_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "exposure_gate_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Outcome maps a result onto the outcome label.
func Outcome(res model.AdmissionResult) string {
	if res.Accepted {
		return "accepted"
	}
	return string(res.RejectKind)
}

// Recorder feeds admission decisions into the collectors above.
type Recorder struct{}

func (Recorder) Record(_ context.Context, req model.OrderRequest, res model.AdmissionResult, elapsed time.Duration) {
	outcome := Outcome(res)
	AdmissionsTotal.WithLabelValues(string(req.Side), outcome).Inc()
	AdmissionLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ExposureSource is read on every scrape. *exposure.Ledger implements it.
type ExposureSource interface {
	Snapshot() []exposure.Entry
}

var symbolExposureDesc = prometheus.NewDesc(
	"exposure_gate_symbol_exposure",
	"Net notional exposure per symbol",
	[]string{"symbol"}, nil,
)

// ExposureCollector reports ledger exposure at scrape time, so the gauge can
// never lag behind or race the ledger.
type ExposureCollector struct {
	source ExposureSource
}

func NewExposureCollector(source ExposureSource) *ExposureCollector {
	return &ExposureCollector{source: source}
}

func (c *ExposureCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- symbolExposureDesc
}

func (c *ExposureCollector) Collect(ch chan<- prometheus.Metric) {
	for _, e := range c.source.Snapshot() {
		ch <- prometheus.MustNewConstMetric(symbolExposureDesc, prometheus.GaugeValue, e.NetExposure.InexactFloat64(), e.Symbol)
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics. Under a
// chi router the path label is the route pattern, not the raw path.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
