// Package specgen aggregates the catalog into an OpenAPI 3.0 document.
// Path objects are built from the REST generator's route list rather
// than from the policies directly, so the published document can never
// drift from the served route set.
package specgen

import (
	"errors"
	"fmt"

	"github.com/artpar/manifold/core/catalog"
	"github.com/artpar/manifold/core/convention"
	"github.com/artpar/manifold/core/restgen"
	"github.com/artpar/manifold/core/schema"
)

// Generator generates OpenAPI documents from a catalog.
type Generator struct {
	catalog *catalog.Catalog
	info    Info
	servers []Server
}

// NewGenerator creates a generator with default API metadata.
func NewGenerator(c *catalog.Catalog) *Generator {
	return &Generator{
		catalog: c,
		info: Info{
			Title:       "Manifold API",
			Version:     "1.0.0",
			Description: "Generated from registered entity declarations",
		},
	}
}

// SetInfo sets the API metadata.
func (g *Generator) SetInfo(info Info) {
	g.info = info
}

// AddServer adds a server URL.
func (g *Generator) AddServer(url, description string) {
	g.servers = append(g.servers, Server{
		URL:         url,
		Description: description,
	})
}

// Generate builds the document from every registered entity in
// registration order. A failing entity aborts only its own schemas and
// paths; the joined error reports each failure.
func (g *Generator) Generate() (*Document, error) {
	doc := &Document{
		OpenAPI: "3.0.3",
		Info:    g.info,
		Servers: g.servers,
		Paths:   make(map[string]PathItem),
		Components: Components{
			Schemas: make(map[string]*Schema),
		},
	}

	var errs []error
	for _, d := range g.catalog.List() {
		if err := g.addEntity(doc, d); err != nil {
			errs = append(errs, err)
		}
	}

	return doc, errors.Join(errs...)
}

// addEntity contributes one entity's schemas, tag, and paths. The
// route list is the REST generator's own output; each route becomes
// one operation keyed by its method and path.
func (g *Generator) addEntity(doc *Document, d convention.Derived) error {
	routes, err := restgen.Generate(d)
	if err != nil {
		return err
	}

	if err := g.addSchemas(doc, d); err != nil {
		return err
	}

	if len(routes) > 0 {
		doc.Tags = append(doc.Tags, Tag{
			Name:        d.Source.Name,
			Description: d.Source.Description,
		})
	}

	for _, r := range routes {
		op, err := g.operationFor(d, r)
		if err != nil {
			return err
		}

		item := doc.Paths[r.Path]
		if err := setOperation(&item, r.Method, op); err != nil {
			return &schema.GenerationError{Entity: d.Source.Name, Err: err}
		}
		doc.Paths[r.Path] = item
	}

	return nil
}

// addSchemas creates the component schemas for one entity: the full
// record, the create and update bodies, and the list response wrapper.
func (g *Generator) addSchemas(doc *Document, d convention.Derived) error {
	name := d.Source.Name

	record, err := recordSchema(d)
	if err != nil {
		return err
	}
	doc.Components.Schemas[name] = record

	create, err := bodySchema(d, true)
	if err != nil {
		return err
	}
	doc.Components.Schemas[name+"Create"] = create

	update, err := bodySchema(d, false)
	if err != nil {
		return err
	}
	doc.Components.Schemas[name+"Update"] = update

	doc.Components.Schemas[name+"List"] = listSchema(name)

	return nil
}

// recordSchema describes a stored record: every declared field plus
// the implicit id and timestamps, which are always present and so
// always required.
func recordSchema(d convention.Derived) (*Schema, error) {
	s := &Schema{
		Type:       "object",
		Properties: make(map[string]*Schema),
	}

	for _, f := range d.Fields {
		fs, err := fieldSchema(f)
		if err != nil {
			return nil, &schema.GenerationError{Entity: d.Source.Name, Field: f.Name, Err: err}
		}

		s.Properties[f.Name] = fs
		if f.Required || f.Implicit {
			s.Required = append(s.Required, f.Name)
		}
	}

	return s, nil
}

// bodySchema describes a create or update request body: declared
// fields only. Required flags propagate on create; update bodies are
// fully optional apart from the path id.
func bodySchema(d convention.Derived, create bool) (*Schema, error) {
	s := &Schema{
		Type:       "object",
		Properties: make(map[string]*Schema),
	}

	for _, f := range d.Fields {
		if f.Implicit {
			continue
		}

		fs, err := fieldSchema(f)
		if err != nil {
			return nil, &schema.GenerationError{Entity: d.Source.Name, Field: f.Name, Err: err}
		}

		s.Properties[f.Name] = fs
		if create && f.Required {
			s.Required = append(s.Required, f.Name)
		}
	}

	return s, nil
}

// listSchema describes a list response: the page of records plus
// pagination metadata.
func listSchema(name string) *Schema {
	return &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"data": {
				Type:  "array",
				Items: &Schema{Ref: "#/components/schemas/" + name},
			},
			"meta": {
				Type: "object",
				Properties: map[string]*Schema{
					"total":  {Type: "integer", Description: "Total records ignoring paging"},
					"limit":  {Type: "integer"},
					"offset": {Type: "integer"},
				},
			},
		},
	}
}

// kindSchema maps a field kind to its bare schema.
func kindSchema(k schema.FieldKind) (*Schema, error) {
	s := &Schema{}

	switch k {
	case schema.FieldKindText:
		s.Type = "string"
	case schema.FieldKindInteger:
		s.Type = "integer"
	case schema.FieldKindDecimal:
		s.Type = "number"
		s.Format = "float"
	case schema.FieldKindBoolean:
		s.Type = "boolean"
	case schema.FieldKindDatetime:
		s.Type = "string"
		s.Format = "date-time"
	case schema.FieldKindJSON:
		s.Type = "object"
	case schema.FieldKindReference:
		s.Type = "string"
	default:
		return nil, fmt.Errorf("unmapped field kind %q", k)
	}

	return s, nil
}

// fieldSchema converts a derived field to its schema, carrying the
// description, default, and declared constraints.
func fieldSchema(f convention.DerivedField) (*Schema, error) {
	s, err := kindSchema(f.Kind)
	if err != nil {
		return nil, err
	}

	s.Description = f.Description
	if f.Kind == schema.FieldKindReference && s.Description == "" && f.Constraints.Target != "" {
		s.Description = "Reference to " + f.Constraints.Target
	}

	if f.Default != nil {
		s.Default = f.Default
		s.Example = f.Default
	}

	s.Minimum = f.Constraints.Min
	s.Maximum = f.Constraints.Max
	s.MinLength = f.Constraints.MinLength
	s.MaxLength = f.Constraints.MaxLength
	s.Pattern = f.Constraints.Pattern

	return s, nil
}

// operationFor builds the operation for one route.
func (g *Generator) operationFor(d convention.Derived, r restgen.Route) (*Operation, error) {
	name := d.Source.Name

	a, ok := d.Action(r.Action)
	if !ok {
		return nil, &schema.GenerationError{
			Entity: name,
			Err:    fmt.Errorf("route %s has no derived action %q", r.Path, r.Action),
		}
	}

	op := &Operation{
		Tags:        []string{name},
		Summary:     r.Summary,
		OperationID: r.OperationID,
		Responses:   responsesFor(name, a),
	}

	for _, p := range r.Params {
		if p.In != convention.InPath && p.In != convention.InQuery {
			continue
		}

		ps, err := kindSchema(p.Kind)
		if err != nil {
			return nil, &schema.GenerationError{Entity: name, Field: p.Name, Err: err}
		}
		if p.Default != nil {
			ps.Default = p.Default
		}

		op.Parameters = append(op.Parameters, Parameter{
			Name:        p.Name,
			In:          string(p.In),
			Description: p.Description,
			Required:    p.Required,
			Schema:      ps,
		})
	}

	body, err := requestBodyFor(name, a)
	if err != nil {
		return nil, err
	}
	op.RequestBody = body

	return op, nil
}

// requestBodyFor builds the request body for body-carrying actions.
// Create and update reference their component schemas; custom
// operations carry an inline object of their declared parameters.
func requestBodyFor(name string, a convention.DerivedAction) (*RequestBody, error) {
	switch a.Kind {
	case schema.ActionCreate:
		return refBody(name+"Create", name+" fields to create"), nil
	case schema.ActionUpdate:
		return refBody(name+"Update", name+" fields to update"), nil
	case schema.ActionCustom:
		return customBody(name, a)
	default:
		return nil, nil
	}
}

func refBody(ref, description string) *RequestBody {
	return &RequestBody{
		Description: description,
		Required:    true,
		Content: map[string]MediaType{
			"application/json": {Schema: &Schema{Ref: "#/components/schemas/" + ref}},
		},
	}
}

func customBody(name string, a convention.DerivedAction) (*RequestBody, error) {
	var body *Schema

	for _, p := range a.Params {
		if p.In != convention.InBody {
			continue
		}

		if body == nil {
			body = &Schema{Type: "object", Properties: make(map[string]*Schema)}
		}

		ps, err := kindSchema(p.Kind)
		if err != nil {
			return nil, &schema.GenerationError{Entity: name, Field: p.Name, Err: err}
		}
		ps.Description = p.Description

		body.Properties[p.Name] = ps
		if p.Required {
			body.Required = append(body.Required, p.Name)
		}
	}

	if body == nil {
		return nil, nil
	}

	return &RequestBody{
		Description: a.Description,
		Required:    true,
		Content: map[string]MediaType{
			"application/json": {Schema: body},
		},
	}, nil
}

// responsesFor builds the response set by action kind, matching the
// envelopes the HTTP channel writes.
func responsesFor(name string, a convention.DerivedAction) map[string]Response {
	ref := &Schema{Ref: "#/components/schemas/" + name}

	switch a.Kind {
	case schema.ActionList:
		return map[string]Response{
			"200": jsonResponse("Page of records", &Schema{Ref: "#/components/schemas/" + name + "List"}),
			"500": {Description: "Internal server error"},
		}
	case schema.ActionGet:
		return map[string]Response{
			"200": jsonResponse("The record", envelope("data", ref)),
			"404": {Description: "Record not found"},
		}
	case schema.ActionCreate:
		return map[string]Response{
			"201": jsonResponse("Record created", writeEnvelope(ref)),
			"400": {Description: "Invalid request data"},
		}
	case schema.ActionUpdate:
		return map[string]Response{
			"200": jsonResponse("Record updated", writeEnvelope(ref)),
			"400": {Description: "Invalid request data"},
			"404": {Description: "Record not found"},
		}
	case schema.ActionDelete:
		return map[string]Response{
			"204": {Description: "Record deleted"},
			"404": {Description: "Record not found"},
		}
	default:
		return map[string]Response{
			"200": jsonResponse("Operation result", envelope("data", resultSchema(a))),
			"400": {Description: "Invalid request data"},
			"404": {Description: "Record not found"},
		}
	}
}

// resultSchema describes a custom operation's declared result.
func resultSchema(a convention.DerivedAction) *Schema {
	if a.Returns == "" {
		return &Schema{Type: "object"}
	}

	s, err := kindSchema(a.Returns)
	if err != nil {
		return &Schema{Type: "object"}
	}
	return s
}

func envelope(key string, s *Schema) *Schema {
	return &Schema{
		Type:       "object",
		Properties: map[string]*Schema{key: s},
	}
}

// writeEnvelope is the create/update response shape: the record id
// plus the stored record.
func writeEnvelope(ref *Schema) *Schema {
	return &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"id":   {Type: "string"},
			"data": ref,
		},
	}
}

func jsonResponse(description string, s *Schema) Response {
	return Response{
		Description: description,
		Content: map[string]MediaType{
			"application/json": {Schema: s},
		},
	}
}

// setOperation mounts an operation on a path item by method.
func setOperation(item *PathItem, method string, op *Operation) error {
	switch method {
	case "GET":
		item.Get = op
	case "POST":
		item.Post = op
	case "PUT":
		item.Put = op
	case "DELETE":
		item.Delete = op
	default:
		return fmt.Errorf("unmapped method %q", method)
	}
	return nil
}
