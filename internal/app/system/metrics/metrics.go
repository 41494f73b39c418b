// internal/app/system/metrics/metrics.go
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "melange"

// Metrics owns a private registry and the application's collectors.
// All recording methods are no-ops on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	roleChanges  *prometheus.CounterVec
	taskRuns     *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	tasksLeased  prometheus.Gauge
	mailSent     *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers the Go and process collectors plus the application metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		roleChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_role_changes_total",
			Help:      "Connection role transitions that changed state, by side (user|org).",
		}, []string{"side"}),
		taskRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_runs_total",
			Help:      "Task deliveries by task name and outcome (done|retry|failed).",
		}, []string{"name", "outcome"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Time to deliver one task to its endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"name"}),
		tasksLeased: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_leased",
			Help:      "Tasks leased by the dispatcher in its last poll.",
		}),
		mailSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_sent_total",
			Help:      "Outbound emails by outcome (ok|error).",
		}, []string{"outcome"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern, method and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "code"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.roleChanges,
		m.taskRuns,
		m.taskDuration,
		m.tasksLeased,
		m.mailSent,
		m.httpDuration,
	)
	return m
}

// Registry exposes the registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RoleChanged counts one connection role change for side ("user" or "org").
func (m *Metrics) RoleChanged(side string) {
	if m == nil {
		return
	}
	m.roleChanges.WithLabelValues(side).Inc()
}

// TaskRun records one delivery attempt.
func (m *Metrics) TaskRun(name, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.taskRuns.WithLabelValues(name, outcome).Inc()
	m.taskDuration.WithLabelValues(name).Observe(took.Seconds())
}

// TasksLeased sets the number of tasks leased in the last poll.
func (m *Metrics) TasksLeased(n int) {
	if m == nil {
		return
	}
	m.tasksLeased.Set(float64(n))
}

// MailSent counts one email send.
func (m *Metrics) MailSent(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.mailSent.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler(logger *zap.Logger) http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      zapPrintln{logger},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// Middleware observes request latency labelled by chi route pattern, so
// /programs/{programID} is one series rather than one per ID.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpDuration.WithLabelValues(route, r.Method, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

// zapPrintln adapts zap to promhttp.Logger.
type zapPrintln struct{ l *zap.Logger }

func (z zapPrintln) Println(v ...any) {
	z.l.Error("metrics handler error", zap.String("detail", fmt.Sprint(v...)))
}
