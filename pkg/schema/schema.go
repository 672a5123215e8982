// Package schema defines the declarative parameter schemas shared by skills
// and templates, and validates parameter maps against them.
package schema

import (
	"fmt"
	"sort"

	"github.com/cadenza-ai/cadenza/pkg/errors"
)

// FieldType enumerates the types a schema field can declare.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
)

// Field describes a single named parameter.
type Field struct {
	Type        FieldType `json:"type" yaml:"type"`
	Required    bool      `json:"required" yaml:"required"`
	Default     any       `json:"default,omitempty" yaml:"default,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// Schema maps parameter names to their declarations. A nil Schema accepts
// any parameter map.
type Schema map[string]Field

// Names returns the declared field names in sorted order.
func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks params against the schema and returns a copy with defaults
// applied for absent optional fields. Missing required fields and type
// mismatches produce an INVALID_INPUT error. Undeclared parameters pass
// through untouched.
func (s Schema) Validate(params map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	for _, name := range s.Names() {
		field := s[name]
		value, ok := out[name]
		if !ok || value == nil {
			if field.Required {
				return nil, errors.Invalid(fmt.Sprintf("missing required parameter: %s", name))
			}
			if field.Default != nil {
				out[name] = field.Default
			}
			continue
		}
		if err := checkType(name, field.Type, value); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// checkType is deliberately loose where JSON is loose: every JSON number
// decodes as float64, so integer fields accept whole-valued floats.
func checkType(name string, ft FieldType, value any) error {
	ok := true
	switch ft {
	case "", TypeObject:
		// object accepts anything structured; empty type accepts anything
	case TypeString:
		_, ok = value.(string)
	case TypeBoolean:
		_, ok = value.(bool)
	case TypeInteger:
		ok = isInteger(value)
	case TypeNumber:
		ok = isNumber(value)
	case TypeArray:
		_, ok = value.([]any)
		if !ok {
			_, ok = value.([]string)
		}
	default:
		return errors.Invalid(fmt.Sprintf("parameter %s declares unknown type %q", name, ft))
	}
	if !ok {
		return errors.Invalid(fmt.Sprintf("parameter %s must be of type %s", name, ft))
	}
	return nil
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int32, int64:
		return true
	case float64:
		return v == float64(int64(v))
	case float32:
		return v == float32(int32(v))
	default:
		return false
	}
}

func isNumber(value any) bool {
	switch value.(type) {
	case int, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}
