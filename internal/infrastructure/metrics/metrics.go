// Package metrics holds the prometheus collectors for the approval workflow.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	ordersCreated prometheus.Counter
	tokensIssued  prometheus.Counter
	resolutions   *prometheus.CounterVec
	failures      *prometheus.CounterVec
	transitions   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "purchase_order",
			Name:      "orders_created_total",
			Help:      "Purchase orders created.",
		}),
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "purchase_order",
			Name:      "approval_tokens_issued_total",
			Help:      "Approval tokens issued.",
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "purchase_order",
			Name:      "approval_resolutions_total",
			Help:      "Approval links resolved, by action.",
		}, []string{"action"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "purchase_order",
			Name:      "approval_failures_total",
			Help:      "Approval operations that failed, by operation and reason code.",
		}, []string{"op", "reason"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "purchase_order",
			Name:      "order_transitions_total",
			Help:      "Committed order status transitions.",
		}, []string{"from", "to"}),
	}
	reg.MustRegister(m.ordersCreated, m.tokensIssued, m.resolutions, m.failures, m.transitions)
	return m
}

func (m *Metrics) OrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

func (m *Metrics) TokenIssued() {
	if m == nil {
		return
	}
	m.tokensIssued.Inc()
}

func (m *Metrics) Resolved(action string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(action).Inc()
}

func (m *Metrics) Failed(op, reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(op, reason).Inc()
}

func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}
