package service

import "context"

// Metrics abstracts the engine's metric instruments so services can be
// tested without an OpenTelemetry pipeline.
type Metrics interface {
	DecisionRecorded(ctx context.Context, action string)
	WorkflowFinalized(ctx context.Context, status string)
	RevisionRoundStarted(ctx context.Context)
	ChecklistRecomputed(ctx context.Context, status string)
}

// NopMetrics is a Metrics implementation that records nothing.
type NopMetrics struct{}

func (NopMetrics) DecisionRecorded(context.Context, string)    {}
func (NopMetrics) WorkflowFinalized(context.Context, string)   {}
func (NopMetrics) RevisionRoundStarted(context.Context)        {}
func (NopMetrics) ChecklistRecomputed(context.Context, string) {}
