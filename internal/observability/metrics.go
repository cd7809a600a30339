package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	turnsTotal   *prometheus.CounterVec
	turnDuration *prometheus.HistogramVec

	decisionsTotal *prometheus.CounterVec
	fallbackTotal  *prometheus.CounterVec

	handlerDuration *prometheus.HistogramVec
	handlerErrors   *prometheus.CounterVec

	budgetExceededTotal *prometheus.CounterVec
	dispatchSteps       *prometheus.HistogramVec

	activeSessions prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			turnsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "turns_total",
					Help: "Total conversation turns by domain and outcome.",
				},
				[]string{"domain", "outcome"},
			),
			turnDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "turn_duration_seconds",
					Help:    "Turn duration in seconds by domain.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"domain"},
			),
			decisionsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "decisions_total",
					Help: "Total routing decisions by strategy and label.",
				},
				[]string{"strategy", "label"},
			),
			fallbackTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "decision_fallback_total",
					Help: "Total decisions recovered by the fallback strategy.",
				},
				[]string{"strategy"},
			),
			handlerDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "handler_duration_seconds",
					Help:    "Handler execution duration in seconds by domain and handler.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"domain", "handler"},
			),
			handlerErrors: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "handler_errors_total",
					Help: "Total handler execution errors by domain and handler.",
				},
				[]string{"domain", "handler"},
			),
			budgetExceededTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "step_budget_exceeded_total",
					Help: "Total turns terminated by the step budget.",
				},
				[]string{"domain"},
			),
			dispatchSteps: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "dispatch_steps",
					Help:    "Dispatch iterations per turn by domain.",
					Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
				},
				[]string{"domain"},
			),
			activeSessions: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "active_sessions",
					Help: "Current live session count.",
				},
			),
		}

		prometheus.MustRegister(
			m.turnsTotal,
			m.turnDuration,
			m.decisionsTotal,
			m.fallbackTotal,
			m.handlerDuration,
			m.handlerErrors,
			m.budgetExceededTotal,
			m.dispatchSteps,
			m.activeSessions,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordTurn(domain, outcome string, duration time.Duration, steps int) {
	m := getMetrics()
	m.turnsTotal.WithLabelValues(domain, outcome).Inc()
	m.turnDuration.WithLabelValues(domain).Observe(duration.Seconds())
	m.dispatchSteps.WithLabelValues(domain).Observe(float64(steps))
}

func RecordDecision(strategy, label string) {
	getMetrics().decisionsTotal.WithLabelValues(strategy, label).Inc()
}

func RecordDecisionFallback(strategy string) {
	getMetrics().fallbackTotal.WithLabelValues(strategy).Inc()
}

func RecordHandler(domain, handler string, duration time.Duration, err error) {
	m := getMetrics()
	m.handlerDuration.WithLabelValues(domain, handler).Observe(duration.Seconds())
	if err != nil {
		m.handlerErrors.WithLabelValues(domain, handler).Inc()
	}
}

func RecordBudgetExceeded(domain string) {
	getMetrics().budgetExceededTotal.WithLabelValues(domain).Inc()
}

func SetActiveSessions(count int) {
	getMetrics().activeSessions.Set(float64(count))
}
