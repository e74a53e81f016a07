package schema

// Field declares a data field owned by an entity.
type Field struct {
	// Name is the field name, a valid identifier unique within the entity.
	Name string `yaml:"name" json:"name"`

	// Kind is the field kind. See FieldKind constants.
	Kind FieldKind `yaml:"kind" json:"kind"`

	// Required indicates this field must be provided on create.
	Required bool `yaml:"required,omitempty" json:"required"`

	// Default value applied when the field is omitted on create.
	Default any `yaml:"default,omitempty" json:"default,omitempty"`

	// Constraints defines validation and storage hints for this field.
	Constraints Constraints `yaml:"constraints,omitempty" json:"constraints,omitempty"`

	// Description for documentation and generated schemas.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Constraints carries per-field validation and storage hints.
// All members are optional.
type Constraints struct {
	// Min is the minimum numeric value (integer and decimal kinds).
	Min *float64 `yaml:"min,omitempty" json:"min,omitempty"`

	// Max is the maximum numeric value (integer and decimal kinds).
	Max *float64 `yaml:"max,omitempty" json:"max,omitempty"`

	// MinLength is the minimum text length.
	MinLength *int `yaml:"minLength,omitempty" json:"minLength,omitempty"`

	// MaxLength is the maximum text length.
	MaxLength *int `yaml:"maxLength,omitempty" json:"maxLength,omitempty"`

	// Pattern is a regular expression the value must match.
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`

	// Unique indicates values must be unique across records.
	Unique bool `yaml:"unique,omitempty" json:"unique,omitempty"`

	// Indexed hints that lookups by this field should be fast.
	Indexed bool `yaml:"indexed,omitempty" json:"indexed,omitempty"`

	// Target names the referenced entity. Required for reference kind,
	// invalid for every other kind.
	Target string `yaml:"target,omitempty" json:"target,omitempty"`
}

// Empty reports whether no constraint is set.
func (c Constraints) Empty() bool {
	return c.Min == nil && c.Max == nil &&
		c.MinLength == nil && c.MaxLength == nil &&
		c.Pattern == "" && !c.Unique && !c.Indexed && c.Target == ""
}

// FieldKind represents the kind of a declared field.
type FieldKind string

const (
	// FieldKindText is a text value.
	FieldKindText FieldKind = "text"

	// FieldKindInteger is a whole number.
	FieldKindInteger FieldKind = "integer"

	// FieldKindDecimal is a floating-point number.
	FieldKindDecimal FieldKind = "decimal"

	// FieldKindBoolean is a true/false value.
	FieldKindBoolean FieldKind = "boolean"

	// FieldKindDatetime is a date/time value, serialized as RFC 3339 text.
	FieldKindDatetime FieldKind = "datetime"

	// FieldKindJSON is an arbitrary JSON object.
	FieldKindJSON FieldKind = "json"

	// FieldKindReference is the id of a record of another entity.
	// Requires Constraints.Target.
	FieldKindReference FieldKind = "reference"
)

// Valid reports whether k is a known field kind.
func (k FieldKind) Valid() bool {
	switch k {
	case FieldKindText, FieldKindInteger, FieldKindDecimal, FieldKindBoolean,
		FieldKindDatetime, FieldKindJSON, FieldKindReference:
		return true
	default:
		return false
	}
}

// Kinds returns all known field kinds.
func Kinds() []FieldKind {
	return []FieldKind{
		FieldKindText, FieldKindInteger, FieldKindDecimal, FieldKindBoolean,
		FieldKindDatetime, FieldKindJSON, FieldKindReference,
	}
}
