// Package metrics implementa ports.Notifier exportando los eventos de la
// orquestación como métricas de Prometheus.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reconmcp/internal/core/ports"
	"reconmcp/internal/platform/logx"
)

const namespace = "reconmcp"

var _ ports.Notifier = (*Notifier)(nil)

// Notifier mantiene un registry propio; no toca el registry global.
type Notifier struct {
	registry *prometheus.Registry
	logger   logx.Logger

	sessionsTotal  *prometheus.CounterVec
	sessionSeconds prometheus.Histogram
	stagesTotal    *prometheus.CounterVec
	stageSeconds   *prometheus.HistogramVec
	attemptsTotal  *prometheus.CounterVec
	toolCallsTotal *prometheus.CounterVec
	toolSeconds    *prometheus.HistogramVec

	mu     sync.Mutex
	server *http.Server
	closed bool
}

// New crea el notifier y registra las métricas.
func New(logger logx.Logger) *Notifier {
	if logger == nil {
		logger = logx.NewDiscard()
	}
	n := &Notifier{
		registry: prometheus.NewRegistry(),
		logger:   logger.With("component", "metrics"),
	}

	n.sessionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_total",
		Help:      "Recon sessions by final state",
	}, []string{"state"})
	n.sessionSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "session_duration_seconds",
		Help:      "Wall time of completed recon sessions",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 900},
	})
	n.stagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stages_total",
		Help:      "Pipeline stages by name and status",
	}, []string{"stage", "status"})
	n.stageSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of pipeline stages that ran",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
	}, []string{"stage"})
	n.attemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credential_attempts_total",
		Help:      "Login attempts by cracker and outcome",
	}, []string{"cracker", "outcome"})
	n.toolCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tool_calls_total",
		Help:      "MCP tool invocations",
	}, []string{"tool", "result"})
	n.toolSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "tool_duration_seconds",
		Help:      "MCP tool latency",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 16),
	}, []string{"tool"})

	n.registry.MustRegister(
		n.sessionsTotal,
		n.sessionSeconds,
		n.stagesTotal,
		n.stageSeconds,
		n.attemptsTotal,
		n.toolCallsTotal,
		n.toolSeconds,
	)
	return n
}

// Registry expone el registry (tests y handlers propios).
func (n *Notifier) Registry() *prometheus.Registry { return n.registry }

// Handler sirve las métricas en formato de exposición.
func (n *Notifier) Handler() http.Handler {
	return promhttp.HandlerFor(n.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Serve escucha en addr y sirve /metrics en segundo plano. Devuelve la
// dirección efectiva (útil con ":0").
func (n *Notifier) Serve(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", n.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	n.mu.Lock()
	n.server = srv
	n.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			n.logger.Err(err, "msg", "metrics server stopped")
		}
	}()
	n.logger.Info("metrics listening", "addr", ln.Addr().String())
	return ln.Addr().String(), nil
}

// Notify traduce el evento a métricas. Eventos desconocidos se ignoran.
func (n *Notifier) Notify(ctx context.Context, event ports.Event) error {
	n.mu.Lock()
	closed := n.closed
	n.mu.Unlock()
	if closed {
		return nil
	}

	if event.Type == ports.EventTypeSessionAborted {
		n.sessionsTotal.WithLabelValues("aborted").Inc()
	}

	switch data := event.Data.(type) {
	case ports.SessionStartedEvent:
		n.sessionsTotal.WithLabelValues("started").Inc()
	case ports.SessionCompletedEvent:
		n.sessionsTotal.WithLabelValues("completed").Inc()
		n.sessionSeconds.Observe(data.Duration.Seconds())
	case ports.StageEvent:
		n.stagesTotal.WithLabelValues(string(data.Stage), string(data.Status)).Inc()
		if !data.Status.Skipped() {
			n.stageSeconds.WithLabelValues(string(data.Stage)).Observe(data.Duration.Seconds())
		}
	case ports.AttemptEvent:
		n.attemptsTotal.WithLabelValues(data.Cracker, string(data.Outcome)).Inc()
	case ports.ToolEvent:
		result := "ok"
		if data.IsError {
			result = "error"
		}
		n.toolCallsTotal.WithLabelValues(data.Tool, result).Inc()
		n.toolSeconds.WithLabelValues(data.Tool).Observe(data.Duration.Seconds())
	}
	return nil
}

// Close para el servidor HTTP si se arrancó.
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true
	if n.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return n.server.Shutdown(ctx)
}
