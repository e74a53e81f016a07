package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// Entity is the root declaration for a managed entity.
// An entity is declared once; REST routes, CLI commands, AI tool
// descriptors, and the OpenAPI document are all derived from it.
type Entity struct {
	// Name is the PascalCase class name of the entity (e.g., "Invoice").
	// Resource and command names are derived by convention.
	Name string `yaml:"entity" json:"entity"`

	// Description for documentation and generated help text.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Fields defines the declared data fields, in declaration order.
	// The id, created_at, and updated_at fields are implicit.
	Fields []Field `yaml:"fields" json:"fields"`

	// Access controls which actions each channel exposes.
	// An absent channel exposes the default actions.
	Access Channels `yaml:"access,omitempty" json:"access"`

	// Operations defines custom operations beyond the default actions.
	// Only public operations are eligible for exposure.
	Operations []Operation `yaml:"operations,omitempty" json:"operations,omitempty"`
}

// Field returns the declared field with the given name.
func (e Entity) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Operation returns the custom operation with the given name.
func (e Entity) Operation(name string) (Operation, bool) {
	for _, op := range e.Operations {
		if op.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}

// PublicOperations returns the custom operations eligible for exposure,
// in declaration order.
func (e Entity) PublicOperations() []Operation {
	var ops []Operation
	for _, op := range e.Operations {
		if op.Public {
			ops = append(ops, op)
		}
	}
	return ops
}

// implicitFieldNames are reserved: every entity carries them automatically.
var implicitFieldNames = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// Validate validates an entity declaration.
func Validate(e Entity) error {
	var errs []string

	if e.Name == "" {
		errs = append(errs, "entity name is required")
	} else if !isPascalCase(e.Name) {
		errs = append(errs, fmt.Sprintf("entity name %q must be PascalCase", e.Name))
	}

	if len(e.Fields) == 0 {
		errs = append(errs, "entity must declare at least one field")
	}

	seenFields := make(map[string]bool, len(e.Fields))
	for _, field := range e.Fields {
		if !isValidIdentifier(field.Name) {
			errs = append(errs, fmt.Sprintf("field name %q is not a valid identifier", field.Name))
			continue
		}
		if implicitFieldNames[field.Name] {
			errs = append(errs, fmt.Sprintf("field name %q is reserved", field.Name))
		}
		if seenFields[field.Name] {
			errs = append(errs, fmt.Sprintf("duplicate field %q", field.Name))
		}
		seenFields[field.Name] = true

		if err := validateField(field); err != nil {
			errs = append(errs, err.Error())
		}
	}

	seenOps := make(map[string]bool, len(e.Operations))
	for _, op := range e.Operations {
		if !isValidIdentifier(op.Name) {
			errs = append(errs, fmt.Sprintf("operation name %q is not a valid identifier", op.Name))
			continue
		}
		if IsDefaultAction(op.Name) {
			errs = append(errs, fmt.Sprintf("operation %q collides with a default action", op.Name))
		}
		if seenOps[op.Name] {
			errs = append(errs, fmt.Sprintf("duplicate operation %q", op.Name))
		}
		seenOps[op.Name] = true

		if err := validateOperation(op); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// validateField validates a single field declaration.
func validateField(f Field) error {
	if !f.Kind.Valid() {
		return fmt.Errorf("field %q: unknown kind %q", f.Name, f.Kind)
	}

	if f.Kind == FieldKindReference && f.Constraints.Target == "" {
		return fmt.Errorf("field %q: reference kind requires a constraint target", f.Name)
	}
	if f.Kind != FieldKindReference && f.Constraints.Target != "" {
		return fmt.Errorf("field %q: constraint target is only valid for reference kind", f.Name)
	}

	if err := validateConstraints(f); err != nil {
		return err
	}

	if f.Default != nil {
		if err := validateDefault(f); err != nil {
			return err
		}
	}

	return nil
}

// validateConstraints checks constraint values for internal consistency.
func validateConstraints(f Field) error {
	c := f.Constraints

	if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
		return fmt.Errorf("field %q: min %v exceeds max %v", f.Name, *c.Min, *c.Max)
	}
	if c.MinLength != nil && *c.MinLength < 0 {
		return fmt.Errorf("field %q: minLength must not be negative", f.Name)
	}
	if c.MinLength != nil && c.MaxLength != nil && *c.MinLength > *c.MaxLength {
		return fmt.Errorf("field %q: minLength %d exceeds maxLength %d", f.Name, *c.MinLength, *c.MaxLength)
	}
	if c.Pattern != "" {
		if _, err := regexp.Compile(c.Pattern); err != nil {
			return fmt.Errorf("field %q: invalid pattern: %v", f.Name, err)
		}
	}

	return nil
}

// validateDefault validates that a default value matches the field kind.
func validateDefault(f Field) error {
	switch f.Kind {
	case FieldKindInteger:
		switch f.Default.(type) {
		case int, int64, float64:
			return nil
		default:
			return fmt.Errorf("field %q: default must be an integer", f.Name)
		}
	case FieldKindDecimal:
		switch f.Default.(type) {
		case int, int64, float64:
			return nil
		default:
			return fmt.Errorf("field %q: default must be a number", f.Name)
		}
	case FieldKindBoolean:
		if _, ok := f.Default.(bool); !ok {
			return fmt.Errorf("field %q: default must be a boolean", f.Name)
		}
	case FieldKindText, FieldKindDatetime, FieldKindReference:
		if _, ok := f.Default.(string); !ok {
			return fmt.Errorf("field %q: default must be a string", f.Name)
		}
	}
	return nil
}

// validateOperation validates a single custom operation declaration.
func validateOperation(op Operation) error {
	seen := make(map[string]bool, len(op.Params))
	for _, p := range op.Params {
		if !isValidIdentifier(p.Name) {
			return fmt.Errorf("operation %q: param name %q is not a valid identifier", op.Name, p.Name)
		}
		if p.Name == "id" {
			return fmt.Errorf("operation %q: param name %q is reserved for the path parameter", op.Name, p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("operation %q: duplicate param %q", op.Name, p.Name)
		}
		seen[p.Name] = true

		if !p.Kind.Valid() {
			return fmt.Errorf("operation %q: param %q has unknown kind %q", op.Name, p.Name, p.Kind)
		}
	}

	if op.Returns != "" && !op.Returns.Valid() {
		return fmt.Errorf("operation %q: unknown return kind %q", op.Name, op.Returns)
	}

	return nil
}

// isPascalCase checks that a name starts with an uppercase letter and
// contains only letters and digits.
func isPascalCase(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if i == 0 {
			if c < 'A' || c > 'Z' {
				return false
			}
			continue
		}
		if !isLetter(c) && !isDigit(c) {
			return false
		}
	}
	return true
}

// isValidIdentifier checks if a string is a valid identifier.
func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, c := range s {
		if i == 0 {
			if !isLetter(c) && c != '_' {
				return false
			}
		} else {
			if !isLetter(c) && !isDigit(c) && c != '_' {
				return false
			}
		}
	}

	return true
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}
