// Package restgen derives REST route descriptors from entity
// declarations. Routes are pure data; the HTTP channel mounts them and
// the OpenAPI generator reuses them, so the published document and the
// served surface always agree.
package restgen

import (
	"errors"
	"fmt"

	"github.com/artpar/manifold/core/catalog"
	"github.com/artpar/manifold/core/convention"
	"github.com/artpar/manifold/core/schema"
)

// Route describes one generated REST route.
type Route struct {
	// Method is the HTTP method.
	Method string

	// Path is the route path with chi-style {placeholders}.
	Path string

	// Entity is the owning class name.
	Entity string

	// Action is the action the route invokes.
	Action string

	// OperationID is the globally unique operation id
	// ({lowercased class name}_{action}).
	OperationID string

	// Summary is the human-readable description.
	Summary string

	// Params is the derived parameter set for the action.
	Params []convention.Param
}

// Generate derives the REST routes one entity exposes under its api
// policy. Default actions map to conventional method/path pairs;
// included public custom operations become POST subroutes:
//
//	list    GET    /{plural}
//	get     GET    /{plural}/{id}
//	create  POST   /{plural}
//	update  PUT    /{plural}/{id}
//	delete  DELETE /{plural}/{id}
//	custom  POST   /{plural}/{id}/{operation}
func Generate(d convention.Derived) ([]Route, error) {
	e := d.Source

	if err := schema.ValidatePolicy(e, schema.ChannelAPI); err != nil {
		return nil, &schema.GenerationError{Entity: e.Name, Err: err}
	}

	policy := e.Access.For(schema.ChannelAPI)

	var routes []Route
	for _, a := range d.Actions {
		if !policy.Allows(a.Name) {
			continue
		}

		method, path, err := routeTarget(d.Resource, a)
		if err != nil {
			return nil, &schema.GenerationError{Entity: e.Name, Err: err}
		}

		routes = append(routes, Route{
			Method:      method,
			Path:        path,
			Entity:      e.Name,
			Action:      a.Name,
			OperationID: convention.ToolName(e.Name, a.Name),
			Summary:     a.Description,
			Params:      a.Params,
		})
	}

	return routes, nil
}

// routeTarget maps an action to its method and path.
func routeTarget(resource string, a convention.DerivedAction) (string, string, error) {
	base := "/" + resource

	switch a.Kind {
	case schema.ActionList:
		return "GET", base, nil
	case schema.ActionGet:
		return "GET", base + "/{id}", nil
	case schema.ActionCreate:
		return "POST", base, nil
	case schema.ActionUpdate:
		return "PUT", base + "/{id}", nil
	case schema.ActionDelete:
		return "DELETE", base + "/{id}", nil
	case schema.ActionCustom:
		return "POST", base + "/{id}/" + a.Name, nil
	default:
		return "", "", fmt.Errorf("unmapped action kind %v", a.Kind)
	}
}

// GenerateAll derives routes for every registered entity in
// registration order. A failing entity aborts only its own routes; the
// remaining entities still generate, and the joined error reports each
// failure by entity name.
func GenerateAll(c *catalog.Catalog) ([]Route, error) {
	var routes []Route
	var errs []error

	for _, d := range c.List() {
		rs, err := Generate(d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		routes = append(routes, rs...)
	}

	return routes, errors.Join(errs...)
}
