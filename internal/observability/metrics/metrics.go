// Package metrics exposes service-level Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records usage tracking and gate decisions.
type Metrics struct {
	trackedEvents  *prometheus.CounterVec
	trackFailures  prometheus.Counter
	gateAllowed    prometheus.Counter
	gateDenied     prometheus.Counter
	billingSyncs   prometheus.Counter
	billingErrors  prometheus.Counter
	reconcileRuns  prometheus.Counter
	reconcileFails prometheus.Counter
}

// New registers the service counters on the given registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		trackedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fixkit_usage_events_total",
			Help: "Tracked usage events by event type.",
		}, []string{"event_type"}),
		trackFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fixkit_usage_track_failures_total",
			Help: "Usage events dropped because tracking failed.",
		}),
		gateAllowed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fixkit_api_gate_allowed_total",
			Help: "API requests allowed by the usage gate.",
		}),
		gateDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fixkit_api_gate_denied_total",
			Help: "API requests rejected by the usage gate.",
		}),
		billingSyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fixkit_billing_sync_total",
			Help: "Completed metered-billing sync attempts.",
		}),
		billingErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fixkit_billing_sync_errors_total",
			Help: "Failed metered-billing usage reports.",
		}),
		reconcileRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fixkit_reconcile_runs_total",
			Help: "Summary reconciliation runs.",
		}),
		reconcileFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fixkit_reconcile_failures_total",
			Help: "Summary reconciliation runs that failed.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.trackedEvents,
			m.trackFailures,
			m.gateAllowed,
			m.gateDenied,
			m.billingSyncs,
			m.billingErrors,
			m.reconcileRuns,
			m.reconcileFails,
		)
	}
	return m
}

func (m *Metrics) RecordTrackedEvent(eventType string) {
	if m == nil {
		return
	}
	m.trackedEvents.WithLabelValues(eventType).Inc()
}

func (m *Metrics) RecordTrackFailure() {
	if m == nil {
		return
	}
	m.trackFailures.Inc()
}

func (m *Metrics) RecordGateAllowed() {
	if m == nil {
		return
	}
	m.gateAllowed.Inc()
}

func (m *Metrics) RecordGateDenied() {
	if m == nil {
		return
	}
	m.gateDenied.Inc()
}

func (m *Metrics) RecordBillingSync() {
	if m == nil {
		return
	}
	m.billingSyncs.Inc()
}

func (m *Metrics) RecordBillingError() {
	if m == nil {
		return
	}
	m.billingErrors.Inc()
}

func (m *Metrics) RecordReconcileRun(err error) {
	if m == nil {
		return
	}
	m.reconcileRuns.Inc()
	if err != nil {
		m.reconcileFails.Inc()
	}
}
