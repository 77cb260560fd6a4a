package app

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the process Prometheus registry. It also implements
// letter.Observer so the letter service reports lifecycle counts.
type Metrics struct {
	reg *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	lettersCreated *prometheus.CounterVec
	letterEvents   *prometheus.CounterVec
}

// NewMetrics builds a registry with Go/process collectors and the Letterbox series.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		reg: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "letterbox",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status class.",
		}, []string{"method", "route", "class"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "letterbox",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		lettersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "letterbox",
			Subsystem: "letters",
			Name:      "created_total",
			Help:      "Letters created, by owner kind.",
		}, []string{"owner"}),
		letterEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "letterbox",
			Subsystem: "letters",
			Name:      "events_total",
			Help:      "Counted reads, updates and deletes.",
		}, []string{"event"}),
	}
	reg.MustRegister(m.httpRequests, m.httpDuration, m.lettersCreated, m.letterEvents)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Instrument records request count and latency per matched route.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		route := routeLabel(r)
		m.httpRequests.WithLabelValues(r.Method, route, statusClass(sw.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) LetterCreated(guest bool) {
	owner := "user"
	if guest {
		owner = "guest"
	}
	m.lettersCreated.WithLabelValues(owner).Inc()
}

func (m *Metrics) LetterRead()    { m.letterEvents.WithLabelValues("read").Inc() }
func (m *Metrics) LetterUpdated() { m.letterEvents.WithLabelValues("update").Inc() }
func (m *Metrics) LetterDeleted() { m.letterEvents.WithLabelValues("delete").Inc() }

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(p)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
