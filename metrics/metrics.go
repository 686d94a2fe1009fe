package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trustcade"

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	Spins            *prometheus.CounterVec
	Wins             *prometheus.CounterVec
	Claims           *prometheus.CounterVec
	Contended        prometheus.Counter
	gatherer         prometheus.Gatherer
}

// New registers the collectors on a fresh registry so several instances can coexist.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		RequestCounter: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		}),
		Spins: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "spins_total",
				Help:      "Spin attempts by result",
			},
			[]string{"result"},
		),
		Wins: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wins_total",
				Help:      "Win records created, by prize",
			},
			[]string{"prize_id"},
		),
		Claims: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "claim_transitions_total",
				Help:      "Win status transitions, by target status",
			},
			[]string{"status"},
		),
		Contended: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_contended_total",
			Help:      "Operations that timed out waiting for a lock",
		}),
		gatherer: reg,
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records count, latency and in-flight requests. route labels the
// request by its mux pattern so ids in paths do not explode cardinality.
func (m *Metrics) Middleware(route func(*http.Request) string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		name := route(r)
		m.RequestCounter.WithLabelValues(r.Method, name, strconv.Itoa(rec.status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, name).Observe(time.Since(start).Seconds())
	})
}
