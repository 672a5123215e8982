package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cadenza-ai/cadenza/pkg/errors"
	"github.com/cadenza-ai/cadenza/pkg/interp"
	"github.com/cadenza-ai/cadenza/pkg/skill"
	"github.com/cadenza-ai/cadenza/pkg/template"
)

// StepExecutor runs a single step definition against a resolution scope:
// it resolves the referenced skill, interpolates and validates its input,
// invokes the implementation, and classifies the outcome. It never lets a
// skill failure escape; this is the isolation boundary that keeps one
// misbehaving skill from corrupting the orchestrator's control flow.
type StepExecutor struct {
	skills *skill.Registry
	tracer trace.Tracer
}

// NewStepExecutor creates a step executor over the given skill registry.
func NewStepExecutor(skills *skill.Registry) *StepExecutor {
	return &StepExecutor{
		skills: skills,
		tracer: otel.Tracer("cadenza/orchestrator"),
	}
}

// Run executes one step. The returned result always carries the step's
// skill name and id; on success the skill's output is also bound into the
// scope under the step id for subsequent interpolation.
func (e *StepExecutor) Run(ctx context.Context, stepID string, step template.StepDef, scope *interp.Scope) StepResult {
	result := StepResult{Skill: step.Skill, StepID: stepID}

	ctx, span := e.tracer.Start(ctx, "Orchestrator.Step",
		trace.WithAttributes(
			attribute.String("step.id", stepID),
			attribute.String("step.skill", step.Skill),
		),
	)
	defer span.End()

	sk, err := e.skills.Get(step.Skill)
	if err != nil {
		// Registry-validated templates never hit this; ad-hoc workflows
		// referencing a typo'd skill name do.
		return fail(ctx, result, fmt.Sprintf("unknown skill: %s", step.Skill))
	}

	input, err := scope.ResolveInput(step.Input)
	if err != nil {
		return fail(ctx, result, err.Error())
	}

	input, err = sk.InputSchema.Validate(input)
	if err != nil {
		return fail(ctx, result, errors.AsCadenzaError(err).Message)
	}

	output, err := invoke(ctx, sk.Handler, input)
	if err != nil {
		return fail(ctx, result, err.Error())
	}

	scope.Bind(stepID, output)
	result.Status = StepCompleted
	result.Output = output
	slog.DebugContext(ctx, "step.completed",
		slog.String("step_id", stepID),
		slog.String("skill", step.Skill),
	)
	return result
}

// invoke calls the skill handler, converting panics into errors so a
// misbehaving implementation is handled like any other step failure.
func invoke(ctx context.Context, handler skill.Handler, input map[string]any) (output map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			output = nil
			err = fmt.Errorf("skill panicked: %v", r)
		}
	}()
	return handler.Invoke(ctx, input)
}

func fail(ctx context.Context, result StepResult, msg string) StepResult {
	result.Status = StepFailed
	result.Error = msg
	slog.WarnContext(ctx, "step.failed",
		slog.String("step_id", result.StepID),
		slog.String("skill", result.Skill),
		slog.String("error", msg),
	)
	return result
}
