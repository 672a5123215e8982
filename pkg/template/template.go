// Package template defines the pre-built, parameterized step sequences the
// orchestrator can execute, and the process-wide registry that holds them.
// Templates are pure data: immutable value objects constructed once and
// never mutated per execution.
package template

import (
	"fmt"

	"github.com/cadenza-ai/cadenza/pkg/errors"
	"github.com/cadenza-ai/cadenza/pkg/schema"
)

// Category classifies a template. Closed set.
type Category string

const (
	CategorySearch    Category = "search"
	CategoryAnalysis  Category = "analysis"
	CategoryReporting Category = "reporting"
	CategoryCustom    Category = "custom"
)

// ErrorPolicy controls how a step failure affects the rest of the run.
type ErrorPolicy string

const (
	// OnErrorAbort stops the run at the failing step. Default.
	OnErrorAbort ErrorPolicy = "abort"

	// OnErrorContinue records the failure and proceeds to the next step.
	OnErrorContinue ErrorPolicy = "continue"
)

// StepDef is one skill invocation within a template or ad-hoc workflow.
type StepDef struct {
	Skill   string         `json:"skill" yaml:"skill"`
	ID      string         `json:"id,omitempty" yaml:"id,omitempty"`
	Input   map[string]any `json:"input,omitempty" yaml:"input,omitempty"`
	OnError ErrorPolicy    `json:"on_error,omitempty" yaml:"on_error,omitempty"`
}

// Policy returns the effective error policy, defaulting to abort.
func (s StepDef) Policy() ErrorPolicy {
	if s.OnError == OnErrorContinue {
		return OnErrorContinue
	}
	return OnErrorAbort
}

// Template is a named, parameterized sequence of steps.
type Template struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description" yaml:"description"`
	Category    Category      `json:"category" yaml:"category"`
	Parameters  schema.Schema `json:"parameters" yaml:"parameters"`
	Steps       []StepDef     `json:"steps" yaml:"steps"`
}

// Summary is the discovery view of a template: metadata only, never the
// step bodies, so the listing surface stays stable regardless of internal
// step wiring.
type Summary struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Category    Category      `json:"category"`
	Parameters  schema.Schema `json:"parameters"`
	StepCount   int           `json:"step_count"`
}

// Summarize builds the discovery view.
func (t *Template) Summarize() Summary {
	return Summary{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Category:    t.Category,
		Parameters:  t.Parameters,
		StepCount:   len(t.Steps),
	}
}

// Validate ensures the template is structurally well-formed. Skill existence
// is checked separately at registration time against the skill registry.
func (t *Template) Validate() error {
	if t == nil {
		return errors.Invalid("template is nil")
	}
	if t.ID == "" {
		return errors.Invalid("template id is required")
	}
	if len(t.Steps) == 0 {
		return errors.Invalid(fmt.Sprintf("template %s has no steps", t.ID))
	}
	switch t.Category {
	case "", CategorySearch, CategoryAnalysis, CategoryReporting, CategoryCustom:
	default:
		return errors.Invalid(fmt.Sprintf("template %s has unknown category %q", t.ID, t.Category))
	}
	seen := make(map[string]bool, len(t.Steps))
	for i, step := range t.Steps {
		if step.Skill == "" {
			return errors.Invalid(fmt.Sprintf("template %s step %d has no skill", t.ID, i))
		}
		switch step.OnError {
		case "", OnErrorAbort, OnErrorContinue:
		default:
			return errors.Invalid(fmt.Sprintf("template %s step %d has unknown on_error %q", t.ID, i, step.OnError))
		}
		if step.ID != "" {
			if seen[step.ID] {
				return errors.Invalid(fmt.Sprintf("template %s has duplicate step id %q", t.ID, step.ID))
			}
			seen[step.ID] = true
		}
	}
	return nil
}
