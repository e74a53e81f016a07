// Schema introspection endpoints. Clients discover declared entities,
// their fields and operations, and the per-channel surface at runtime
// without parsing the OpenAPI document.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/artpar/manifold/core/restgen"
	"github.com/artpar/manifold/core/schema"
)

// handleSchemaList serves GET /_schema.
func (c *Channel) handleSchemaList(w http.ResponseWriter, r *http.Request) {
	derived := c.catalog.List()

	resp := schema.EntityListResponse{
		Entities: make([]schema.EntitySummary, 0, len(derived)),
		Count:    len(derived),
	}
	for _, d := range derived {
		resp.Entities = append(resp.Entities, schema.EntitySummary{
			Name:        d.Source.Name,
			Resource:    d.Resource,
			Description: d.Source.Description,
			Fields:      len(d.Source.Fields),
			Operations:  len(d.Source.Operations),
		})
	}

	c.writeJSON(w, http.StatusOK, resp)
}

// handleSchemaGet serves GET /_schema/{entity}.
func (c *Channel) handleSchemaGet(w http.ResponseWriter, r *http.Request) {
	d, err := c.catalog.Get(chi.URLParam(r, "entity"))
	if err != nil {
		c.writeError(w, err)
		return
	}

	resp := schema.EntitySchemaResponse{
		Name:        d.Source.Name,
		Resource:    d.Resource,
		Description: d.Source.Description,
		Fields:      schema.BuildFieldSchemas(d.Source.Fields),
		Operations:  schema.BuildOperationSchemas(d.Source.Operations),
		Access:      schema.BuildChannelExposure(d.Source),
	}

	// Routes mirror what the channel actually mounted; a failed
	// generation leaves the list empty rather than hiding the entity.
	if routes, err := restgen.Generate(d); err == nil {
		resp.Routes = make([]schema.RouteInfo, 0, len(routes))
		for _, route := range routes {
			resp.Routes = append(resp.Routes, schema.RouteInfo{
				Method: route.Method,
				Path:   route.Path,
				Action: route.Action,
			})
		}
	}

	c.writeJSON(w, http.StatusOK, resp)
}
