package template

import (
	"fmt"
	"sync"

	"github.com/cadenza-ai/cadenza/pkg/errors"
	"github.com/cadenza-ai/cadenza/pkg/skill"
)

// Registry is the process-wide template catalogue. Registration validates
// every step's skill against the skill registry; read access is safe for
// concurrent callers.
type Registry struct {
	mu        sync.RWMutex
	skills    *skill.Registry
	templates map[string]*Template
	order     []string
}

// NewRegistry creates a template registry backed by the given skill registry.
func NewRegistry(skills *skill.Registry) *Registry {
	return &Registry{
		skills:    skills,
		templates: make(map[string]*Template),
	}
}

// Register validates and adds a template. The first step referencing an
// unknown skill fails the whole registration with INVALID_INPUT; a duplicate
// template id fails with CONFLICT.
func (r *Registry) Register(t *Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	for _, step := range t.Steps {
		if !r.skills.Has(step.Skill) {
			return errors.Invalid(fmt.Sprintf("template %s references unknown skill: %s", t.ID, step.Skill))
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.templates[t.ID]; exists {
		return errors.Conflict(fmt.Sprintf("template already registered: %s", t.ID))
	}
	r.templates[t.ID] = t
	r.order = append(r.order, t.ID)
	return nil
}

// Get returns the template by id or NOT_FOUND.
func (r *Registry) Get(id string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[id]
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("unknown template: %s", id))
	}
	return t, nil
}

// List returns template summaries in registration order.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Summary, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.templates[id].Summarize())
	}
	return out
}

// IDs returns all template ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered templates.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
