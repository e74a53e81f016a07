package schema

// Operation declares a custom operation beyond the default actions.
// Custom operations are never exposed by default: a channel policy must
// include them by name, and only public operations are eligible.
type Operation struct {
	// Name is the operation name, a valid identifier unique within the
	// entity and distinct from the default action names.
	Name string `yaml:"name" json:"name"`

	// Params defines the operation's input parameters, in order.
	Params []Param `yaml:"params,omitempty" json:"params,omitempty"`

	// Returns is the kind of the operation's result. Empty means the
	// operation returns the full record.
	Returns FieldKind `yaml:"returns,omitempty" json:"returns,omitempty"`

	// Public marks the operation eligible for exposure. Non-public
	// operations are invisible to every channel regardless of policy.
	Public bool `yaml:"public,omitempty" json:"public"`

	// Description for documentation and generated help text.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Param is a single input parameter of a custom operation.
type Param struct {
	// Name is the parameter name, a valid identifier.
	Name string `yaml:"name" json:"name"`

	// Kind is the parameter kind. See FieldKind constants.
	Kind FieldKind `yaml:"kind" json:"kind"`

	// Description for documentation and generated schemas.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}
