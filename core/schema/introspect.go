package schema

// Introspection response types. The HTTP channel serves these so that
// clients can discover declared entities and their derived surface
// without parsing the OpenAPI document.

// EntityListResponse is the response for listing declared entities.
type EntityListResponse struct {
	Entities []EntitySummary `json:"entities"`
	Count    int             `json:"count"`
}

// EntitySummary is a one-line view of a declared entity.
type EntitySummary struct {
	Name        string `json:"name"`
	Resource    string `json:"resource"`
	Description string `json:"description,omitempty"`
	Fields      int    `json:"fields"`
	Operations  int    `json:"operations"`
}

// EntitySchemaResponse is the full declared shape of one entity,
// plus what each channel exposes.
type EntitySchemaResponse struct {
	Name        string                     `json:"name"`
	Resource    string                     `json:"resource"`
	Description string                     `json:"description,omitempty"`
	Fields      []FieldSchema              `json:"fields"`
	Operations  []OperationSchema          `json:"operations,omitempty"`
	Access      map[string]ChannelExposure `json:"access"`
	Routes      []RouteInfo                `json:"routes"`
}

// FieldSchema describes one declared field.
type FieldSchema struct {
	Name        string       `json:"name"`
	Kind        string       `json:"kind"`
	Required    bool         `json:"required"`
	Default     any          `json:"default,omitempty"`
	Constraints *Constraints `json:"constraints,omitempty"`
	Description string       `json:"description,omitempty"`
}

// OperationSchema describes one declared custom operation.
type OperationSchema struct {
	Name        string        `json:"name"`
	Params      []ParamSchema `json:"params,omitempty"`
	Returns     string        `json:"returns,omitempty"`
	Public      bool          `json:"public"`
	Description string        `json:"description,omitempty"`
}

// ParamSchema describes one operation parameter.
type ParamSchema struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// ChannelExposure describes what one channel exposes for an entity.
type ChannelExposure struct {
	Policy  AccessPolicy `json:"policy"`
	Actions []string     `json:"actions"`
}

// RouteInfo describes one served route.
type RouteInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Action string `json:"action"`
}

// BuildFieldSchemas converts declared fields to their introspection form.
func BuildFieldSchemas(fields []Field) []FieldSchema {
	out := make([]FieldSchema, 0, len(fields))
	for _, f := range fields {
		fs := FieldSchema{
			Name:        f.Name,
			Kind:        string(f.Kind),
			Required:    f.Required,
			Default:     f.Default,
			Description: f.Description,
		}
		if !f.Constraints.Empty() {
			c := f.Constraints
			fs.Constraints = &c
		}
		out = append(out, fs)
	}
	return out
}

// BuildOperationSchemas converts declared operations to their
// introspection form.
func BuildOperationSchemas(ops []Operation) []OperationSchema {
	if len(ops) == 0 {
		return nil
	}
	out := make([]OperationSchema, 0, len(ops))
	for _, op := range ops {
		s := OperationSchema{
			Name:        op.Name,
			Returns:     string(op.Returns),
			Public:      op.Public,
			Description: op.Description,
		}
		for _, p := range op.Params {
			s.Params = append(s.Params, ParamSchema{Name: p.Name, Kind: string(p.Kind)})
		}
		out = append(out, s)
	}
	return out
}

// BuildChannelExposure resolves what each channel exposes for an entity:
// the default actions it allows plus any included public operations.
func BuildChannelExposure(e Entity) map[string]ChannelExposure {
	out := make(map[string]ChannelExposure, 3)
	for _, ch := range AllChannels() {
		policy := e.Access.For(ch)

		var actions []string
		for _, name := range DefaultActions() {
			if policy.Allows(name) {
				actions = append(actions, name)
			}
		}
		for _, op := range e.PublicOperations() {
			if policy.Allows(op.Name) {
				actions = append(actions, op.Name)
			}
		}

		out[string(ch)] = ChannelExposure{Policy: policy, Actions: actions}
	}
	return out
}
