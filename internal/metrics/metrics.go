// Package metrics exposes Prometheus counters for script runs, state
// publishes and command dispatch. A nil *Metrics is valid and records
// nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fisaks/computer-assistant/internal/logging"
)

const namespace = "computer_assistant"

const (
	RoleState   = "state"
	RoleCommand = "command"

	ResultOK      = "ok"
	ResultError   = "error"
	ResultIgnored = "ignored"
)

type Metrics struct {
	registry       *prometheus.Registry
	scriptRuns     *prometheus.CounterVec
	scriptDuration *prometheus.HistogramVec
	statePublishes *prometheus.CounterVec
	publishPasses  *prometheus.CounterVec
	commands       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scriptRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "script_runs_total",
			Help:      "Entity scripts executed, by kind, role and result.",
		}, []string{"kind", "role", "result"}),
		scriptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "script_duration_seconds",
			Help:      "Wall time of entity script executions.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"kind", "role"}),
		statePublishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_publishes_total",
			Help:      "Entity states published, by kind.",
		}, []string{"kind"}),
		publishPasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_passes_total",
			Help:      "Publish loop passes, by result.",
		}, []string{"result"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Inbound command messages, by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.scriptRuns,
		m.scriptDuration,
		m.statePublishes,
		m.publishPasses,
		m.commands,
	)
	return m
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

func (m *Metrics) ObserveScript(kind, role string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.scriptRuns.WithLabelValues(kind, role, result(err)).Inc()
	m.scriptDuration.WithLabelValues(kind, role).Observe(d.Seconds())
}

func (m *Metrics) StatePublished(kind string) {
	if m == nil {
		return
	}
	m.statePublishes.WithLabelValues(kind).Inc()
}

func (m *Metrics) PublishPass(err error) {
	if m == nil {
		return
	}
	m.publishPasses.WithLabelValues(result(err)).Inc()
}

// Command records one inbound command message; res is one of the Result constants.
func (m *Metrics) Command(res string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(res).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, m *Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn("metrics server shutdown", "error", err)
		}
	}()

	logging.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
