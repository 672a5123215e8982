// SPDX-License-Identifier: Apache-2.0
// Package telemetry provides observability for the orchestration engine:
// OTEL SDK setup, trace-aware logging, and execution metrics.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics tracks execution and step outcomes for production monitoring.
// A nil *Metrics is a no-op, so callers never need to guard record calls.
type Metrics struct {
	// executionCounter tracks finished executions by kind and status
	executionCounter metric.Int64Counter

	// stepCounter tracks step outcomes by skill and status
	stepCounter metric.Int64Counter

	// durationHistogram tracks execution wall time in seconds
	durationHistogram metric.Float64Histogram
}

// NewMetrics creates an execution metrics tracker with OTEL meters.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("cadenza/orchestrator")

	executionCounter, err := meter.Int64Counter(
		"cadenza.executions.total",
		metric.WithDescription("Finished executions by kind and status"),
	)
	if err != nil {
		return nil, err
	}

	stepCounter, err := meter.Int64Counter(
		"cadenza.steps.total",
		metric.WithDescription("Step outcomes by skill and status"),
	)
	if err != nil {
		return nil, err
	}

	durationHistogram, err := meter.Float64Histogram(
		"cadenza.execution.duration",
		metric.WithDescription("Execution wall time in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		executionCounter:  executionCounter,
		stepCounter:       stepCounter,
		durationHistogram: durationHistogram,
	}, nil
}

// RecordExecution records one finished execution.
func (m *Metrics) RecordExecution(ctx context.Context, kind, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("execution.kind", kind),
		attribute.String("execution.status", status),
	)
	m.executionCounter.Add(ctx, 1, attrs)
	m.durationHistogram.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordStep records one step outcome.
func (m *Metrics) RecordStep(ctx context.Context, skill, status string) {
	if m == nil {
		return
	}
	m.stepCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("step.skill", skill),
			attribute.String("step.status", status),
		),
	)
}
