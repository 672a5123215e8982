// Package orchestrator is the execution engine: it resolves templates into
// ordered steps, validates parameters against declared schemas, executes
// steps with cross-step variable interpolation, applies per-step failure
// policies, and reports structured progress and results.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cadenza-ai/cadenza/pkg/errors"
	"github.com/cadenza-ai/cadenza/pkg/interp"
	"github.com/cadenza-ai/cadenza/pkg/search"
	"github.com/cadenza-ai/cadenza/pkg/session"
	"github.com/cadenza-ai/cadenza/pkg/skill"
	"github.com/cadenza-ai/cadenza/pkg/telemetry"
	"github.com/cadenza-ai/cadenza/pkg/template"
)

// Orchestrator drives the step executor across a step list, maintains
// execution-level state, and assembles the final result. Registries are
// read-mostly and shared; each call owns its Execution exclusively, so
// concurrent callers never contend on the hot path.
type Orchestrator struct {
	skills    *skill.Registry
	templates *template.Registry
	executor  *StepExecutor
	tracer    trace.Tracer

	audit    AuditStore
	metrics  *telemetry.Metrics
	sessions *session.Manager
	engine   search.Engine
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithAuditStore records every attempted step to the given store.
func WithAuditStore(store AuditStore) Option {
	return func(o *Orchestrator) { o.audit = store }
}

// WithMetrics reports execution and step outcomes to OTEL meters.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithSessionManager attaches a session manager; its presence is reported
// by Info and each execution leaves a summary note in its session.
func WithSessionManager(m *session.Manager) Option {
	return func(o *Orchestrator) { o.sessions = m }
}

// WithSearchEngine attaches the search engine collaborator; its presence is
// reported by Info and Health.
func WithSearchEngine(e search.Engine) Option {
	return func(o *Orchestrator) { o.engine = e }
}

// New creates an orchestrator over the given registries.
func New(skills *skill.Registry, templates *template.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		skills:    skills,
		templates: templates,
		executor:  NewStepExecutor(skills),
		tracer:    otel.Tracer("cadenza/orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Execute resolves a named template, validates the parameters against its
// declared schema, and runs the step list. Resolution and validation errors
// propagate to the caller; once execution has begun no error does.
func (o *Orchestrator) Execute(ctx context.Context, requestType string, params map[string]any, executionID string) (*Execution, error) {
	tmpl, err := o.templates.Get(requestType)
	if err != nil {
		return nil, err
	}
	validated, err := tmpl.Parameters.Validate(params)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, "template", tmpl.ID, executionID, validated, tmpl.Steps), nil
}

// ExecuteWorkflow runs an ad-hoc step list. No parameter schema exists, so
// step inputs are literals or references to earlier step outputs only.
func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, name string, steps []template.StepDef) (*Execution, error) {
	seen := make(map[string]bool, len(steps))
	for i, step := range steps {
		if step.Skill == "" {
			return nil, errors.Invalid(fmt.Sprintf("workflow step %d has no skill", i))
		}
		if step.ID != "" {
			if seen[step.ID] {
				return nil, errors.Invalid(fmt.Sprintf("workflow has duplicate step id %q", step.ID))
			}
			seen[step.ID] = true
		}
	}
	if name == "" {
		name = "ad-hoc"
	}
	return o.run(ctx, "workflow", name, "", nil, steps), nil
}

// run is the shared execution loop. Steps are strictly ordered; later steps
// may depend on earlier outputs via interpolation, so nothing runs
// concurrently within one execution.
func (o *Orchestrator) run(ctx context.Context, kind, name, executionID string, params map[string]any, steps []template.StepDef) *Execution {
	if executionID == "" {
		executionID = uuid.NewString()
	}

	ctx, span := o.tracer.Start(ctx, "Orchestrator.Run",
		trace.WithAttributes(
			attribute.String("execution.kind", kind),
			attribute.String("execution.name", name),
			attribute.String("execution.id", executionID),
			attribute.Int("execution.total_steps", len(steps)),
		),
	)
	defer span.End()
	started := time.Now()

	slog.InfoContext(ctx, "execution.start",
		slog.String("kind", kind),
		slog.String("name", name),
		slog.String("execution_id", executionID),
		slog.Int("total_steps", len(steps)),
	)

	exec := &Execution{
		ExecutionID: executionID,
		Status:      StatusRunning,
		TotalSteps:  len(steps),
		StepDetails: make([]StepResult, 0, len(steps)),
	}
	scope := interp.NewScope(params)

	aborted := -1
	for i, step := range steps {
		result := o.executor.Run(ctx, stepID(step, i), step, scope)
		exec.StepDetails = append(exec.StepDetails, result)
		exec.StepsCompleted++
		o.recordStep(ctx, kind, name, executionID, result)

		if result.Status == StepFailed && step.Policy() == template.OnErrorAbort {
			aborted = i
			break
		}
	}

	if aborted >= 0 {
		exec.Status = StatusFailed
		// Not attempted, not counted as completed; still visible in details.
		for j := aborted + 1; j < len(steps); j++ {
			result := StepResult{
				Skill:  steps[j].Skill,
				StepID: stepID(steps[j], j),
				Status: StepSkipped,
			}
			exec.StepDetails = append(exec.StepDetails, result)
			o.recordStep(ctx, kind, name, executionID, result)
		}
	} else {
		// A run whose failures all carried on_error:continue still completes;
		// the caller inspects step_details for individual outcomes.
		exec.Status = StatusCompleted
	}

	o.metrics.RecordExecution(ctx, kind, string(exec.Status), time.Since(started))
	o.noteSession(ctx, kind, name, exec)

	slog.InfoContext(ctx, "execution.finished",
		slog.String("execution_id", executionID),
		slog.String("status", string(exec.Status)),
		slog.Int("steps_completed", exec.StepsCompleted),
		slog.Int("total_steps", exec.TotalSteps),
	)
	return exec
}

func stepID(step template.StepDef, index int) string {
	if step.ID != "" {
		return step.ID
	}
	return fmt.Sprintf("step_%d", index+1)
}

func (o *Orchestrator) recordStep(ctx context.Context, kind, name, executionID string, result StepResult) {
	o.metrics.RecordStep(ctx, result.Skill, string(result.Status))
	if o.audit == nil {
		return
	}
	event := AuditEvent{
		ExecutionID: executionID,
		Kind:        kind,
		Name:        name,
		StepID:      result.StepID,
		Skill:       result.Skill,
		Status:      string(result.Status),
		Output:      result.Output,
		Error:       result.Error,
		At:          time.Now().UTC(),
	}
	if err := o.audit.Record(ctx, event); err != nil {
		slog.WarnContext(ctx, "audit.record.failed", slog.String("error", err.Error()))
	}
}

func (o *Orchestrator) noteSession(ctx context.Context, kind, name string, exec *Execution) {
	if o.sessions == nil {
		return
	}
	err := o.sessions.Append(ctx, exec.ExecutionID, session.Note{
		Kind:    kind,
		Subject: name,
		Body:    fmt.Sprintf("%s finished with status %s (%d/%d steps)", kind, exec.Status, exec.StepsCompleted, exec.TotalSteps),
	})
	if err != nil {
		slog.WarnContext(ctx, "session.note.failed", slog.String("error", err.Error()))
	}
}

// Info describes the orchestrator's catalogue and wired collaborators.
type Info struct {
	TotalSkills        int      `json:"total_skills"`
	TotalTemplates     int      `json:"total_templates"`
	AvailableSkills    []string `json:"available_skills"`
	AvailableTemplates []string `json:"available_templates"`
	HasSessionManager  bool     `json:"has_session_manager"`
	HasSearchEngine    bool     `json:"has_search_engine"`
}

// Info reports the current catalogue. The name lists always match the
// skills/templates list endpoints exactly.
func (o *Orchestrator) Info() Info {
	skills := o.skills.Names()
	templates := o.templates.IDs()
	return Info{
		TotalSkills:        len(skills),
		TotalTemplates:     len(templates),
		AvailableSkills:    skills,
		AvailableTemplates: templates,
		HasSessionManager:  o.sessions != nil,
		HasSearchEngine:    o.engine != nil,
	}
}

// Health reports operational state: healthy with a message describing any
// absent collaborator.
func (o *Orchestrator) Health() (string, string) {
	msg := fmt.Sprintf("%d skills, %d templates registered", o.skills.Len(), o.templates.Len())
	if o.engine == nil {
		msg += "; search engine not configured"
	}
	return "healthy", msg
}

// Skills exposes the skill registry for transport adapters.
func (o *Orchestrator) Skills() *skill.Registry { return o.skills }

// Templates exposes the template registry for transport adapters.
func (o *Orchestrator) Templates() *template.Registry { return o.templates }
