// Package interp resolves {{ reference }} placeholders inside step inputs
// against an execution's resolution scope. The grammar is deliberately
// closed: literal text plus placeholder tokens, never a general expression
// language.
package interp

import (
	"fmt"
	"regexp"
	"strings"
)

// A reference is either a bare parameter name or <step_id>.<field>.
// Anything that does not match is left verbatim, so literal text that
// merely contains "{{" is never corrupted by partial substitution.
var refPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_-]*(?:\.[A-Za-z_][A-Za-z0-9_-]*)?)\s*\}\}`)

// UnresolvedError reports a syntactically valid reference whose target does
// not exist in the scope: an unknown parameter, a step that has not
// completed, or a field absent from a completed step's output.
type UnresolvedError struct {
	Reference string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved reference: %s", e.Reference)
}

// Scope is the set of named values available for substitution at a given
// point in an execution: top-level parameters plus completed steps' outputs.
type Scope struct {
	params  map[string]any
	outputs map[string]map[string]any
}

// NewScope creates a scope seeded with the execution's parameters.
func NewScope(params map[string]any) *Scope {
	if params == nil {
		params = map[string]any{}
	}
	return &Scope{
		params:  params,
		outputs: make(map[string]map[string]any),
	}
}

// Bind makes a completed step's output available under its step id.
func (s *Scope) Bind(stepID string, output map[string]any) {
	s.outputs[stepID] = output
}

// Lookup resolves a single reference against the scope.
func (s *Scope) Lookup(ref string) (any, bool) {
	if stepID, field, ok := strings.Cut(ref, "."); ok {
		output, exists := s.outputs[stepID]
		if !exists {
			return nil, false
		}
		value, exists := output[field]
		return value, exists
	}
	value, exists := s.params[ref]
	return value, exists
}

// Resolve interpolates a single input value. Strings get placeholder
// substitution; everything else passes through unchanged. A string that is
// exactly one placeholder resolves to the referenced value with its type
// preserved; placeholders embedded in longer text are stringified.
func (s *Scope) Resolve(value any) (any, error) {
	str, ok := value.(string)
	if !ok {
		return value, nil
	}

	if ref, ok := wholeReference(str); ok {
		resolved, found := s.Lookup(ref)
		if !found {
			return nil, &UnresolvedError{Reference: ref}
		}
		return resolved, nil
	}

	var firstErr error
	out := refPattern.ReplaceAllStringFunc(str, func(match string) string {
		ref := refPattern.FindStringSubmatch(match)[1]
		resolved, found := s.Lookup(ref)
		if !found {
			if firstErr == nil {
				firstErr = &UnresolvedError{Reference: ref}
			}
			return match
		}
		return stringify(resolved)
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// ResolveInput interpolates every value of a step input map, returning a
// fresh map. The original input is never mutated; templates are immutable
// blueprints.
func (s *Scope) ResolveInput(input map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(input))
	for key, value := range input {
		resolved, err := s.Resolve(value)
		if err != nil {
			return nil, err
		}
		out[key] = resolved
	}
	return out, nil
}

// wholeReference reports whether the string consists of exactly one
// placeholder, returning its reference.
func wholeReference(str string) (string, bool) {
	match := refPattern.FindStringSubmatch(str)
	if match == nil || match[0] != strings.TrimSpace(str) {
		return "", false
	}
	return match[1], true
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
