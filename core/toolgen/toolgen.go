// Package toolgen derives AI tool-calling descriptors from entity
// declarations. Each descriptor is pure serializable data (name,
// description, JSON Schema input shape) with no embedded executable
// references; the MCP channel binds descriptors to executors at serve
// time.
package toolgen

import (
	"errors"
	"fmt"

	"github.com/artpar/manifold/core/catalog"
	"github.com/artpar/manifold/core/convention"
	"github.com/artpar/manifold/core/schema"
)

// Tool describes one generated tool-calling descriptor.
type Tool struct {
	// Name is the globally unique tool name
	// ({lowercased class name}_{action}).
	Name string `json:"name"`

	// Entity is the owning class name.
	Entity string `json:"entity"`

	// Action is the action the tool invokes.
	Action string `json:"action"`

	// Description is the synthesized natural-language description.
	Description string `json:"description"`

	// InputSchema is a JSON Schema object describing the tool's input.
	// Its properties mirror the REST parameter set for the same action.
	InputSchema map[string]any `json:"inputSchema"`
}

// Generate derives the tool descriptors one entity exposes under its
// tool policy. The policy is evaluated independently of the api policy,
// so a tool is never callable unless the tool channel allows it, even
// when the REST surface does.
func Generate(d convention.Derived) ([]Tool, error) {
	e := d.Source

	if err := schema.ValidatePolicy(e, schema.ChannelTool); err != nil {
		return nil, &schema.GenerationError{Entity: e.Name, Err: err}
	}

	policy := e.Access.For(schema.ChannelTool)

	var tools []Tool
	for _, a := range d.Actions {
		if !policy.Allows(a.Name) {
			continue
		}

		in, err := inputSchema(e.Name, a)
		if err != nil {
			return nil, err
		}

		tools = append(tools, Tool{
			Name:        convention.ToolName(e.Name, a.Name),
			Entity:      e.Name,
			Action:      a.Name,
			Description: a.Description,
			InputSchema: in,
		})
	}

	return tools, nil
}

// inputSchema builds the JSON Schema object for an action's parameters.
func inputSchema(entity string, a convention.DerivedAction) (map[string]any, error) {
	properties := make(map[string]any, len(a.Params))
	var required []string

	for _, p := range a.Params {
		prop, err := propertyFor(p)
		if err != nil {
			return nil, &schema.GenerationError{Entity: entity, Field: p.Name, Err: err}
		}

		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}

	return s, nil
}

// propertyFor maps one parameter to a JSON Schema property:
//
//	text      string
//	integer   number
//	decimal   number
//	boolean   boolean
//	datetime  string (format date-time)
//	json      object
//	reference string (carries the referenced record id)
func propertyFor(p convention.Param) (map[string]any, error) {
	prop := map[string]any{}

	switch p.Kind {
	case schema.FieldKindText:
		prop["type"] = "string"
	case schema.FieldKindInteger, schema.FieldKindDecimal:
		prop["type"] = "number"
	case schema.FieldKindBoolean:
		prop["type"] = "boolean"
	case schema.FieldKindDatetime:
		prop["type"] = "string"
		prop["format"] = "date-time"
	case schema.FieldKindJSON:
		prop["type"] = "object"
	case schema.FieldKindReference:
		prop["type"] = "string"
	default:
		return nil, fmt.Errorf("unmapped field kind %q", p.Kind)
	}

	switch {
	case p.Description != "":
		prop["description"] = p.Description
	case p.Kind == schema.FieldKindReference:
		prop["description"] = "Referenced record id"
	}

	if p.Default != nil {
		prop["default"] = p.Default
	}

	return prop, nil
}

// GenerateAll derives tool descriptors for every registered entity in
// registration order. A failing entity aborts only its own descriptors;
// the remaining entities still generate, and the joined error reports
// each failure.
func GenerateAll(c *catalog.Catalog) ([]Tool, error) {
	var tools []Tool
	var errs []error

	for _, d := range c.List() {
		ts, err := Generate(d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tools = append(tools, ts...)
	}

	return tools, errors.Join(errs...)
}
