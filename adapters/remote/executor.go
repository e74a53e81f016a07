package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/artpar/manifold/core/catalog"
	"github.com/artpar/manifold/core/convention"
	"github.com/artpar/manifold/core/restgen"
	"github.com/artpar/manifold/core/runtime"
)

// Executor performs entity actions by calling a server's generated REST
// routes. Paths come from the route generator, so the client can never
// drift from what the server mounts. Actions an entity does not expose
// over the api channel fail before any request is sent.
type Executor struct {
	client  *Client
	catalog *catalog.Catalog
}

var _ runtime.Executor = (*Executor)(nil)

// NewExecutor creates an executor that calls the server behind client.
func NewExecutor(client *Client, c *catalog.Catalog) *Executor {
	return &Executor{client: client, catalog: c}
}

// Execute performs one action against the remote server.
func (e *Executor) Execute(ctx context.Context, entity, action string, in runtime.Input) (runtime.Result, error) {
	d, err := e.catalog.Get(entity)
	if err != nil {
		return runtime.Result{}, err
	}

	routes, err := restgen.Generate(d)
	if err != nil {
		return runtime.Result{}, err
	}

	var route *restgen.Route
	for i := range routes {
		if routes[i].Action == action {
			route = &routes[i]
			break
		}
	}
	if route == nil {
		return runtime.Result{}, fmt.Errorf("entity %q does not expose action %q over the api channel", entity, action)
	}

	path := strings.Replace(route.Path, "{id}", url.PathEscape(in.ID), 1)

	switch action {
	case "list":
		return e.list(ctx, path, in.List)

	case "get":
		var env recordEnvelope
		if err := e.client.Request(ctx, route.Method, path, nil, &env); err != nil {
			return runtime.Result{}, mapError(err)
		}
		return runtime.Result{ID: in.ID, Data: env.Data}, nil

	case "create", "update":
		var env writeEnvelope
		if err := e.client.Request(ctx, route.Method, path, in.Data, &env); err != nil {
			return runtime.Result{}, mapError(err)
		}
		return runtime.Result{ID: env.ID, Data: env.Data}, nil

	case "delete":
		if err := e.client.Request(ctx, route.Method, path, nil, nil); err != nil {
			return runtime.Result{}, mapError(err)
		}
		return runtime.Result{ID: in.ID}, nil

	default:
		return e.operate(ctx, d, *route, path, in)
	}
}

func (e *Executor) list(ctx context.Context, path string, opts runtime.ListOptions) (runtime.Result, error) {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.OrderBy != "" {
		q.Set("orderBy", opts.OrderBy)
	}
	if opts.Where != "" {
		q.Set("where", opts.Where)
	}
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var env listEnvelope
	if err := e.client.Request(ctx, http.MethodGet, path, nil, &env); err != nil {
		return runtime.Result{}, mapError(err)
	}
	return runtime.Result{Items: env.Data, Total: env.Meta.Total}, nil
}

func (e *Executor) operate(ctx context.Context, d convention.Derived, route restgen.Route, path string, in runtime.Input) (runtime.Result, error) {
	var env operationEnvelope
	if err := e.client.Request(ctx, route.Method, path, in.Data, &env); err != nil {
		return runtime.Result{}, mapError(err)
	}

	if a, ok := d.Action(route.Action); ok && a.Returns != "" {
		return runtime.Result{ID: in.ID, Value: env.Data}, nil
	}

	data, _ := env.Data.(map[string]any)
	return runtime.Result{ID: in.ID, Data: data}, nil
}

// mapError folds the server's not-found signal back into the runtime
// sentinel every channel already understands.
func mapError(err error) error {
	if IsNotFound(err) {
		return runtime.ErrNotFound
	}
	return err
}

type listEnvelope struct {
	Data []map[string]any `json:"data"`
	Meta struct {
		Total  int64 `json:"total"`
		Limit  int   `json:"limit"`
		Offset int   `json:"offset"`
	} `json:"meta"`
}

type recordEnvelope struct {
	Data map[string]any `json:"data"`
}

type writeEnvelope struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}

type operationEnvelope struct {
	Data any `json:"data"`
}
