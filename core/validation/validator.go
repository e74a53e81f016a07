// Package validation checks input data against entity declarations.
// It runs at execution time, before storage, so every channel rejects
// malformed input identically.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/artpar/manifold/core/convention"
	"github.com/artpar/manifold/core/schema"
)

// FieldError is one failed check.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

// Result collects the outcome of validating one input.
type Result struct {
	Valid  bool
	Errors []FieldError
}

// AddError records a failed check.
func (r *Result) AddError(field, rule string, value any, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, FieldError{
		Field:   field,
		Rule:    rule,
		Value:   value,
		Message: message,
	})
}

// Err converts a failed result into an error; nil when valid.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return &Error{Errors: r.Errors}
}

// Error is the error form of a failed validation.
type Error struct {
	Errors []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ValidateCreate checks input data for a create action. Unknown fields
// are rejected rather than dropped, so typos fail loudly. A required
// field may be absent only when it declares a default.
func ValidateCreate(d convention.Derived, data map[string]any) Result {
	result := Result{Valid: true}

	fields := fieldMap(d)
	for name := range data {
		f, ok := fields[name]
		if !ok {
			result.AddError(name, "unknown_field", name,
				fmt.Sprintf("unknown field %q", name))
			continue
		}
		if f.Implicit {
			result.AddError(name, "read_only", name, "field is read-only")
		}
	}

	for _, f := range d.Fields {
		if f.Implicit {
			continue
		}

		value, hasValue := data[f.Name]

		if !hasValue {
			if f.Required && f.Default == nil {
				result.AddError(f.Name, "required", nil, "field is required")
			}
			continue
		}

		// Explicit null is acceptable only for optional fields; a
		// default never substitutes for a provided null.
		if value == nil {
			if f.Required {
				result.AddError(f.Name, "required", nil, "field is required")
			}
			continue
		}

		checkKind(&result, f.Name, f.Kind, value)
		checkConstraints(&result, f, value)
	}

	return result
}

// ValidateUpdate checks input data for an update action. Only the
// provided fields are validated; required fields may stay untouched.
func ValidateUpdate(d convention.Derived, data map[string]any) Result {
	result := Result{Valid: true}

	fields := fieldMap(d)
	for name, value := range data {
		f, ok := fields[name]
		if !ok {
			result.AddError(name, "unknown_field", name,
				fmt.Sprintf("unknown field %q", name))
			continue
		}
		if f.Implicit {
			result.AddError(name, "read_only", name, "field is read-only")
			continue
		}

		// Explicit null clears the field.
		if value == nil {
			continue
		}

		checkKind(&result, f.Name, f.Kind, value)
		checkConstraints(&result, f, value)
	}

	return result
}

// ValidateOperation checks the body parameters of a custom operation.
// Declared parameters are all required.
func ValidateOperation(a convention.DerivedAction, data map[string]any) Result {
	result := Result{Valid: true}

	params := make(map[string]convention.Param)
	for _, p := range a.Params {
		if p.In == convention.InBody {
			params[p.Name] = p
		}
	}

	for name := range data {
		if _, ok := params[name]; !ok {
			result.AddError(name, "unknown_param", name,
				fmt.Sprintf("unknown parameter %q", name))
		}
	}

	for name, p := range params {
		value, hasValue := data[name]
		if !hasValue || value == nil {
			result.AddError(name, "required", nil, "parameter is required")
			continue
		}
		checkKind(&result, name, p.Kind, value)
	}

	return result
}

func fieldMap(d convention.Derived) map[string]convention.DerivedField {
	fields := make(map[string]convention.DerivedField, len(d.Fields))
	for _, f := range d.Fields {
		fields[f.Name] = f
	}
	return fields
}

// checkKind validates that a value matches its declared kind. JSON
// decoding delivers numbers as float64, so numeric kinds accept the
// usual variants.
func checkKind(result *Result, name string, kind schema.FieldKind, value any) {
	switch kind {
	case schema.FieldKindText:
		if _, ok := value.(string); !ok {
			result.AddError(name, "kind", value, "must be a string")
		}

	case schema.FieldKindInteger:
		f, ok := asFloat(value)
		if !ok {
			result.AddError(name, "kind", value, "must be an integer")
			return
		}
		if f != math.Trunc(f) {
			result.AddError(name, "kind", value, "must be a whole number")
		}

	case schema.FieldKindDecimal:
		if _, ok := asFloat(value); !ok {
			result.AddError(name, "kind", value, "must be a number")
		}

	case schema.FieldKindBoolean:
		if _, ok := value.(bool); !ok {
			result.AddError(name, "kind", value, "must be a boolean")
		}

	case schema.FieldKindDatetime:
		str, ok := value.(string)
		if !ok {
			result.AddError(name, "kind", value, "must be an RFC 3339 timestamp")
			return
		}
		if _, err := time.Parse(time.RFC3339, str); err != nil {
			result.AddError(name, "kind", value, "must be an RFC 3339 timestamp")
		}

	case schema.FieldKindJSON:
		// Any JSON value is acceptable.

	case schema.FieldKindReference:
		str, ok := value.(string)
		if !ok || strings.TrimSpace(str) == "" {
			result.AddError(name, "kind", value, "reference must be a non-empty id")
		}
	}
}

// checkConstraints validates a value against its declared constraints.
// Uniqueness and reference existence are storage concerns and are
// enforced by the executor.
func checkConstraints(result *Result, f convention.DerivedField, value any) {
	c := f.Constraints

	if str, ok := value.(string); ok {
		if c.MinLength != nil && len(str) < *c.MinLength {
			result.AddError(f.Name, "min_length", value,
				fmt.Sprintf("must be at least %d characters", *c.MinLength))
		}
		if c.MaxLength != nil && len(str) > *c.MaxLength {
			result.AddError(f.Name, "max_length", value,
				fmt.Sprintf("must be at most %d characters", *c.MaxLength))
		}
		if c.Pattern != "" {
			re, err := regexp.Compile(c.Pattern)
			if err == nil && !re.MatchString(str) {
				result.AddError(f.Name, "pattern", value,
					fmt.Sprintf("must match %s", c.Pattern))
			}
		}
	}

	if num, ok := asFloat(value); ok {
		if c.Min != nil && num < *c.Min {
			result.AddError(f.Name, "min", value,
				fmt.Sprintf("must be at least %g", *c.Min))
		}
		if c.Max != nil && num > *c.Max {
			result.AddError(f.Name, "max", value,
				fmt.Sprintf("must be at most %g", *c.Max))
		}
	}
}

// asFloat widens the numeric types JSON and YAML decoding produce.
func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
