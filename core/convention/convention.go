// Package convention derives the exposed surface of an entity from its
// declaration. It applies naming conventions, implicit fields, and the
// per-action parameter sets that every generator shares.
package convention

import (
	"strings"

	"github.com/artpar/manifold/core/schema"
)

// Derived is the fully-expanded form of an entity declaration. All four
// generators consume it, so a parameter or naming decision is made once
// here and can never differ between channels.
type Derived struct {
	// Source is the original entity declaration.
	Source schema.Entity

	// Resource is the plural, lowercase collection name (REST segment).
	Resource string

	// Command is the CLI command group name (lowercase singular).
	Command string

	// Fields contains declared fields plus the implicit id, created_at,
	// and updated_at fields.
	Fields []DerivedField

	// Actions contains the five default actions in fixed order, then the
	// public custom operations in declaration order. Channel policies are
	// not applied here; each generator gates with its own channel.
	Actions []DerivedAction
}

// Action returns the derived action with the given name.
func (d Derived) Action(name string) (DerivedAction, bool) {
	for _, a := range d.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return DerivedAction{}, false
}

// DerivedField is a field with implicit/declared provenance resolved.
type DerivedField struct {
	// Name of the field.
	Name string

	// Source is the original declaration (nil for implicit fields).
	Source *schema.Field

	// Kind is the field kind.
	Kind schema.FieldKind

	// Required indicates the field must be provided on create.
	Required bool

	// Default value applied when omitted on create.
	Default any

	// Constraints declared for this field.
	Constraints schema.Constraints

	// Implicit indicates an auto-generated field (id, timestamps).
	Implicit bool

	// Description for documentation.
	Description string
}

// DerivedAction is an action with its parameter set derived.
type DerivedAction struct {
	// Name of the action ("list", "get", ... or the operation name).
	Name string

	// Kind classifies the action.
	Kind schema.ActionKind

	// Source is the declared operation (nil for default actions).
	Source *schema.Operation

	// Params is the derived parameter set, path params first.
	Params []Param

	// Returns is the custom operation's result kind, if declared.
	Returns schema.FieldKind

	// Description is the synthesized natural-language description.
	Description string
}

// Param is one derived parameter of an action.
type Param struct {
	// Name is the wire name of the parameter.
	Name string

	// Kind is the parameter kind.
	Kind schema.FieldKind

	// In is where the parameter travels.
	In ParamIn

	// Required indicates the parameter must be provided.
	Required bool

	// Default value, when the declaration carries one.
	Default any

	// Description for documentation.
	Description string
}

// ParamIn is the location of a parameter.
type ParamIn string

const (
	// InPath is a path segment parameter.
	InPath ParamIn = "path"

	// InQuery is a query string parameter.
	InQuery ParamIn = "query"

	// InBody is a request body property.
	InBody ParamIn = "body"
)

// Derive expands an entity declaration into its derived form.
func Derive(e schema.Entity) Derived {
	d := Derived{
		Source:   e,
		Resource: Pluralize(e.Name),
		Command:  CommandName(e.Name),
	}

	d.Fields = deriveFields(e)
	d.Actions = deriveActions(e)

	return d
}

// deriveFields prepends the implicit id and appends the implicit
// timestamps around the declared fields, preserving declaration order.
func deriveFields(e schema.Entity) []DerivedField {
	fields := make([]DerivedField, 0, len(e.Fields)+3)

	fields = append(fields, DerivedField{
		Name:        "id",
		Kind:        schema.FieldKindText,
		Implicit:    true,
		Description: "Unique record id",
	})

	for i := range e.Fields {
		f := e.Fields[i]
		fields = append(fields, DerivedField{
			Name:        f.Name,
			Source:      &e.Fields[i],
			Kind:        f.Kind,
			Required:    f.Required,
			Default:     f.Default,
			Constraints: f.Constraints,
			Description: f.Description,
		})
	}

	fields = append(fields,
		DerivedField{
			Name:        "created_at",
			Kind:        schema.FieldKindDatetime,
			Implicit:    true,
			Description: "Record creation time",
		},
		DerivedField{
			Name:        "updated_at",
			Kind:        schema.FieldKindDatetime,
			Implicit:    true,
			Description: "Last modification time",
		},
	)

	return fields
}

// deriveActions builds the default actions and the public custom
// operations with their parameter sets.
func deriveActions(e schema.Entity) []DerivedAction {
	lower := strings.ToLower(e.Name)
	actions := make([]DerivedAction, 0, 5+len(e.Operations))

	actions = append(actions, DerivedAction{
		Name:        "list",
		Kind:        schema.ActionList,
		Params:      listParams(),
		Description: "List all " + Pluralize(e.Name),
	})

	actions = append(actions, DerivedAction{
		Name:        "get",
		Kind:        schema.ActionGet,
		Params:      []Param{idParam()},
		Description: "Get " + lower + " details",
	})

	actions = append(actions, DerivedAction{
		Name:        "create",
		Kind:        schema.ActionCreate,
		Params:      createParams(e),
		Description: "Create a new " + lower,
	})

	actions = append(actions, DerivedAction{
		Name:        "update",
		Kind:        schema.ActionUpdate,
		Params:      append([]Param{idParam()}, updateParams(e)...),
		Description: "Update " + lower,
	})

	actions = append(actions, DerivedAction{
		Name:        "delete",
		Kind:        schema.ActionDelete,
		Params:      []Param{idParam()},
		Description: "Delete " + lower,
	})

	for i := range e.Operations {
		op := e.Operations[i]
		if !op.Public {
			continue
		}

		a := DerivedAction{
			Name:        op.Name,
			Kind:        schema.ActionCustom,
			Source:      &e.Operations[i],
			Params:      customParams(op),
			Returns:     op.Returns,
			Description: op.Description,
		}
		if a.Description == "" {
			a.Description = upperFirst(op.Name) + " " + lower
		}

		actions = append(actions, a)
	}

	return actions
}

// listParams returns the paging and filtering query parameters.
func listParams() []Param {
	return []Param{
		{Name: "limit", Kind: schema.FieldKindInteger, In: InQuery, Description: "Maximum records to return"},
		{Name: "offset", Kind: schema.FieldKindInteger, In: InQuery, Description: "Records to skip"},
		{Name: "orderBy", Kind: schema.FieldKindText, In: InQuery, Description: "Field to order by"},
		{Name: "where", Kind: schema.FieldKindText, In: InQuery, Description: "Filter expression"},
	}
}

// idParam returns the required path id parameter.
func idParam() Param {
	return Param{
		Name:        "id",
		Kind:        schema.FieldKindText,
		In:          InPath,
		Required:    true,
		Description: "Record id",
	}
}

// createParams exposes every declared field as a body parameter with the
// required flag propagated.
func createParams(e schema.Entity) []Param {
	params := make([]Param, 0, len(e.Fields))
	for _, f := range e.Fields {
		params = append(params, Param{
			Name:        f.Name,
			Kind:        f.Kind,
			In:          InBody,
			Required:    f.Required,
			Default:     f.Default,
			Description: f.Description,
		})
	}
	return params
}

// updateParams exposes every declared field as an optional body parameter.
func updateParams(e schema.Entity) []Param {
	params := make([]Param, 0, len(e.Fields))
	for _, f := range e.Fields {
		params = append(params, Param{
			Name:        f.Name,
			Kind:        f.Kind,
			In:          InBody,
			Description: f.Description,
		})
	}
	return params
}

// customParams derives the id path parameter plus the operation's
// declared parameters as required body parameters.
func customParams(op schema.Operation) []Param {
	params := make([]Param, 0, len(op.Params)+1)
	params = append(params, idParam())

	for _, p := range op.Params {
		params = append(params, Param{
			Name:        p.Name,
			Kind:        p.Kind,
			In:          InBody,
			Required:    true,
			Description: p.Description,
		})
	}

	return params
}

// upperFirst capitalizes the first letter of a name.
func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
