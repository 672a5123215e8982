package skill

import (
	"fmt"
	"sync"

	"github.com/cadenza-ai/cadenza/pkg/errors"
)

// Registry is the process-wide skill catalogue. Reads are safe for
// concurrent callers; writes happen at startup and are rare afterward,
// guarded by an RWMutex on the registration path only.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]*Skill
	order  []string
}

// NewRegistry creates an empty skill registry.
func NewRegistry() *Registry {
	return &Registry{skills: make(map[string]*Skill)}
}

// Register adds a skill. Returns CONFLICT if the name is already taken and
// INVALID_INPUT if the skill has no name or no handler.
func (r *Registry) Register(s *Skill) error {
	if s == nil || s.Name == "" {
		return errors.Invalid("skill name is required")
	}
	if s.Handler == nil {
		return errors.Invalid(fmt.Sprintf("skill %s has no handler", s.Name))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.skills[s.Name]; exists {
		return errors.Conflict(fmt.Sprintf("skill already registered: %s", s.Name))
	}
	r.skills[s.Name] = s
	r.order = append(r.order, s.Name)
	return nil
}

// Get returns the skill by name or NOT_FOUND.
func (r *Registry) Get(name string) (*Skill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[name]
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("unknown skill: %s", name))
	}
	return s, nil
}

// Has reports whether a skill with the given name exists.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.skills[name]
	return ok
}

// List returns all skills in registration order.
func (r *Registry) List() []*Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Skill, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.skills[name])
	}
	return out
}

// Names returns all skill names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered skills.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
