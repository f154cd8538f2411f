// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

// Package observability provides Prometheus metrics for the auth engine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Operation outcomes recorded against OperationsTotal.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics contains the auth engine's Prometheus metrics.
type Metrics struct {
	// OperationsTotal counts auth operations by name and outcome,
	// e.g. ("login", "rejected").
	OperationsTotal *prometheus.CounterVec

	// MailFailuresTotal counts mail dispatches that failed after the
	// triggering operation already committed.
	MailFailuresTotal *prometheus.CounterVec

	// SessionsRevoked counts sessions destroyed by revoke-all sweeps.
	SessionsRevoked prometheus.Counter
}

// NewMetrics creates and registers the auth metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_operations_total",
				Help: "Total number of auth operations by name and outcome",
			},
			[]string{"operation", "outcome"},
		),
		MailFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_mail_failures_total",
				Help: "Total number of failed mail dispatches by kind",
			},
			[]string{"kind"},
		),
		SessionsRevoked: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "authgate_sessions_revoked_total",
				Help: "Total number of sessions destroyed by revoke-all",
			},
		),
	}

	reg.MustRegister(m.OperationsTotal)
	reg.MustRegister(m.MailFailuresTotal)
	reg.MustRegister(m.SessionsRevoked)

	return m
}

// NewRegistry creates a registry preloaded with Go runtime collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry
}

// RecordOperation increments the operation counter. Nil-safe so the
// services can run without metrics wired (tests, CLI tools).
func (m *Metrics) RecordOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordMailFailure increments the mail failure counter. Nil-safe.
func (m *Metrics) RecordMailFailure(kind string) {
	if m == nil {
		return
	}
	m.MailFailuresTotal.WithLabelValues(kind).Inc()
}

// RecordSessionsRevoked adds n to the revoked-session counter. Nil-safe.
func (m *Metrics) RecordSessionsRevoked(n int64) {
	if m == nil {
		return
	}
	m.SessionsRevoked.Add(float64(n))
}
