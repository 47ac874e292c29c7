package observability

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type gatewayMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

type riskMetrics struct {
	checks       *prometheus.CounterVec
	shortfalls   prometheus.Counter
	pauseEngaged *prometheus.GaugeVec
}

type flywheelMetrics struct {
	claims        *prometheus.CounterVec
	speedRefresh  prometheus.Counter
	vaultReleases prometheus.Counter
}

var (
	gatewayMetricsOnce sync.Once
	gatewayRegistry    *gatewayMetrics

	riskMetricsOnce sync.Once
	riskRegistry    *riskMetrics

	flywheelMetricsOnce sync.Once
	flywheelRegistry    *flywheelMetrics
)

// Gateway returns the lazily-initialised metrics registry used to record
// HTTP API activity.
func Gateway() *gatewayMetrics {
	gatewayMetricsOnce.Do(func() {
		gatewayRegistry = &gatewayMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "hesper",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Total gateway requests segmented by route and outcome.",
			}, []string{"route", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "hesper",
				Subsystem: "gateway",
				Name:      "errors_total",
				Help:      "Total gateway errors segmented by route and status code.",
			}, []string{"route", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "hesper",
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for gateway handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "hesper",
				Subsystem: "gateway",
				Name:      "throttles_total",
				Help:      "Count of gateway requests rejected by rate limiting.",
			}, []string{"route"}),
		}
		prometheus.MustRegister(
			gatewayRegistry.requests,
			gatewayRegistry.errors,
			gatewayRegistry.latency,
			gatewayRegistry.throttles,
		)
	})
	return gatewayRegistry
}

// Observe records the outcome of a gateway request. The status code should
// be the HTTP status that was ultimately written to the response writer.
func (m *gatewayMetrics) Observe(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(route, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(route, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied route.
func (m *gatewayMetrics) RecordThrottle(route string) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.throttles.WithLabelValues(route).Inc()
}

// Risk exposes the metrics registry for the solvency engine.
func Risk() *riskMetrics {
	riskMetricsOnce.Do(func() {
		riskRegistry = &riskMetrics{
			checks: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "hesper",
				Subsystem: "risk",
				Name:      "policy_checks_total",
				Help:      "Count of policy hook evaluations segmented by action and outcome.",
			}, []string{"action", "outcome"}),
			shortfalls: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "hesper",
				Subsystem: "risk",
				Name:      "shortfall_rejections_total",
				Help:      "Count of actions rejected because they would leave the account undercollateralized.",
			}),
			pauseEngaged: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "hesper",
				Subsystem: "risk",
				Name:      "pause_engaged",
				Help:      "Indicates whether the pause guard for an action is active (1) or not (0).",
			}, []string{"action"}),
		}
		prometheus.MustRegister(
			riskRegistry.checks,
			riskRegistry.shortfalls,
			riskRegistry.pauseEngaged,
		)
	})
	return riskRegistry
}

// RecordCheck records a policy hook evaluation and its outcome.
func (m *riskMetrics) RecordCheck(action string, err error) {
	if m == nil {
		return
	}
	outcome := "allowed"
	if err != nil {
		outcome = "rejected"
	}
	m.checks.WithLabelValues(labelAction(action), outcome).Inc()
}

// RecordShortfall counts a rejection caused by insufficient liquidity.
func (m *riskMetrics) RecordShortfall() {
	if m == nil {
		return
	}
	m.shortfalls.Inc()
}

// SetPause toggles the pause gauge for an action.
func (m *riskMetrics) SetPause(action string, engaged bool) {
	if m == nil {
		return
	}
	value := 0.0
	if engaged {
		value = 1.0
	}
	m.pauseEngaged.WithLabelValues(labelAction(action)).Set(value)
}

// Flywheel exposes the metrics registry for the reward distributor.
func Flywheel() *flywheelMetrics {
	flywheelMetricsOnce.Do(func() {
		flywheelRegistry = &flywheelMetrics{
			claims: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "hesper",
				Subsystem: "flywheel",
				Name:      "claims_total",
				Help:      "Count of reward claims segmented by outcome.",
			}, []string{"outcome"}),
			speedRefresh: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "hesper",
				Subsystem: "flywheel",
				Name:      "speed_refreshes_total",
				Help:      "Count of emission speed recalculations.",
			}),
			vaultReleases: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "hesper",
				Subsystem: "flywheel",
				Name:      "vault_releases_total",
				Help:      "Count of reward batches released to the vault.",
			}),
		}
		prometheus.MustRegister(
			flywheelRegistry.claims,
			flywheelRegistry.speedRefresh,
			flywheelRegistry.vaultReleases,
		)
	})
	return flywheelRegistry
}

// RecordClaim records the outcome of a claim attempt.
func (m *flywheelMetrics) RecordClaim(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.claims.WithLabelValues(outcome).Inc()
}

// RecordSpeedRefresh counts an emission speed recalculation.
func (m *flywheelMetrics) RecordSpeedRefresh() {
	if m == nil {
		return
	}
	m.speedRefresh.Inc()
}

// RecordVaultRelease counts a reward batch released to the vault.
func (m *flywheelMetrics) RecordVaultRelease() {
	if m == nil {
		return
	}
	m.vaultReleases.Inc()
}

func labelAction(action string) string {
	trimmed := strings.TrimSpace(action)
	if trimmed == "" {
		return "unknown"
	}
	return strings.ToLower(trimmed)
}
