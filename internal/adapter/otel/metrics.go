package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "reviewflow"

// Metrics holds all reviewflow metric instruments and implements the
// service metrics interface.
type Metrics struct {
	Decisions        metric.Int64Counter
	Finalizations    metric.Int64Counter
	RevisionRounds   metric.Int64Counter
	ChecklistUpdates metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Decisions, err = meter.Int64Counter("reviewflow.decisions",
		metric.WithDescription("Number of level decisions recorded"))
	if err != nil {
		return nil, err
	}

	m.Finalizations, err = meter.Int64Counter("reviewflow.workflows.finalized",
		metric.WithDescription("Number of workflows reaching a terminal status"))
	if err != nil {
		return nil, err
	}

	m.RevisionRounds, err = meter.Int64Counter("reviewflow.revision_rounds",
		metric.WithDescription("Number of revision rounds started"))
	if err != nil {
		return nil, err
	}

	m.ChecklistUpdates, err = meter.Int64Counter("reviewflow.checklist.recomputes",
		metric.WithDescription("Number of checklist aggregate recomputations"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// DecisionRecorded counts one decision by action.
func (m *Metrics) DecisionRecorded(ctx context.Context, action string) {
	m.Decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

// WorkflowFinalized counts one terminal workflow transition by status.
func (m *Metrics) WorkflowFinalized(ctx context.Context, status string) {
	m.Finalizations.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RevisionRoundStarted counts one rework cycle.
func (m *Metrics) RevisionRoundStarted(ctx context.Context) {
	m.RevisionRounds.Add(ctx, 1)
}

// ChecklistRecomputed counts one aggregate recomputation by resulting status.
func (m *Metrics) ChecklistRecomputed(ctx context.Context, status string) {
	m.ChecklistUpdates.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
