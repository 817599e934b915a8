// Copyright 2026 The PartForge Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOutcomes(t *testing.T) {
	m := New()

	m.ObserveConversion("ok", 120*time.Millisecond)
	m.ObserveConversion("ok", 80*time.Millisecond)
	m.ObserveConversion("ConverterOutputInvalid", 50*time.Millisecond)
	m.ObserveExecution("ExecutionTimeout", 30*time.Second)

	if got := testutil.ToFloat64(m.ConversionsTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("ok conversions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ConversionsTotal.WithLabelValues("ConverterOutputInvalid")); got != 1 {
		t.Errorf("failed conversions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ExecutionsTotal.WithLabelValues("ExecutionTimeout")); got != 1 {
		t.Errorf("timed-out executions = %v, want 1", got)
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := New()
	b := New()

	// Registering two instrument sets must not panic on duplicate
	// names, and counting on one must not show up on the other.
	a.ObserveConversion("ok", time.Millisecond)
	if got := testutil.ToFloat64(b.ConversionsTotal.WithLabelValues("ok")); got != 0 {
		t.Errorf("second registry saw %v observations", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveExecution("ok", 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "partforge_executions_total") {
		t.Errorf("exposition missing executions counter:\n%s", body)
	}
	if !strings.Contains(body, "partforge_execution_duration_seconds") {
		t.Errorf("exposition missing duration histogram:\n%s", body)
	}
}
