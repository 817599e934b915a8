// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics defines the Prometheus instrumentation for the two
// pipelines: script execution and STEP conversion. Metrics register
// on a package-local registry so tests and embedding processes never
// collide with the global default registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the instrument set for one process.
type Metrics struct {
	registry *prometheus.Registry

	ConversionsTotal   *prometheus.CounterVec
	ConversionDuration prometheus.Histogram
	ExecutionsTotal    *prometheus.CounterVec
	ExecutionDuration  prometheus.Histogram
}

// New creates and registers the instrument set.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.ConversionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partforge_conversions_total",
			Help: "STEP conversions by outcome (fault code or ok).",
		},
		[]string{"outcome"},
	)
	m.ConversionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "partforge_conversion_duration_seconds",
			Help:    "Wall-clock duration of the full conversion pipeline.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
	m.ExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partforge_executions_total",
			Help: "Script executions by outcome (fault code or ok).",
		},
		[]string{"outcome"},
	)
	m.ExecutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "partforge_execution_duration_seconds",
			Help:    "Wall-clock duration of script executions.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	m.registry.MustRegister(
		m.ConversionsTotal,
		m.ConversionDuration,
		m.ExecutionsTotal,
		m.ExecutionDuration,
	)
	return m
}

// Handler serves this instrument set at a /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveConversion records one conversion outcome and duration.
func (m *Metrics) ObserveConversion(outcome string, duration time.Duration) {
	m.ConversionsTotal.WithLabelValues(outcome).Inc()
	m.ConversionDuration.Observe(duration.Seconds())
}

// ObserveExecution records one script execution outcome and duration.
func (m *Metrics) ObserveExecution(outcome string, duration time.Duration) {
	m.ExecutionsTotal.WithLabelValues(outcome).Inc()
	m.ExecutionDuration.Observe(duration.Seconds())
}
