package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/artpar/manifold/core/catalog"
	"github.com/artpar/manifold/core/restgen"
	"github.com/artpar/manifold/core/runtime"
	"github.com/artpar/manifold/core/schema"
	"github.com/artpar/manifold/core/validation"
)

// actionHandler adapts one generated route to the executor bound for
// its entity.
func (c *Channel) actionHandler(entity string, route restgen.Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := buildInput(route.Action, r)
		if err != nil {
			c.writeError(w, err)
			return
		}

		exec, err := c.catalog.Executor(entity)
		if err != nil {
			c.writeError(w, err)
			return
		}

		start := time.Now()
		res, err := exec.Execute(r.Context(), entity, route.Action, in)
		if c.metrics != nil {
			c.metrics.ObserveAction(entity, route.Action, "api", err, time.Since(start))
		}
		if err != nil {
			c.writeError(w, err)
			return
		}

		c.writeResult(w, entity, route.Action, in, res)
	}
}

// buildInput parses the channel-independent input out of a request.
func buildInput(action string, r *http.Request) (runtime.Input, error) {
	in := runtime.Input{Channel: string(schema.ChannelAPI)}

	switch action {
	case "list":
		opts, err := parseListOptions(r)
		if err != nil {
			return in, err
		}
		in.List = opts

	case "get", "delete":
		in.ID = chi.URLParam(r, "id")

	case "create":
		data, err := decodeBody(r, true)
		if err != nil {
			return in, err
		}
		in.Data = data

	case "update":
		in.ID = chi.URLParam(r, "id")
		data, err := decodeBody(r, true)
		if err != nil {
			return in, err
		}
		in.Data = data

	default:
		in.ID = chi.URLParam(r, "id")
		data, err := decodeBody(r, false)
		if err != nil {
			return in, err
		}
		in.Data = data
	}

	return in, nil
}

func parseListOptions(r *http.Request) (runtime.ListOptions, error) {
	var opts runtime.ListOptions
	var result validation.Result
	result.Valid = true

	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			result.AddError("limit", "kind", raw, "must be a non-negative integer")
		} else {
			opts.Limit = n
		}
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			result.AddError("offset", "kind", raw, "must be a non-negative integer")
		} else {
			opts.Offset = n
		}
	}
	opts.OrderBy = q.Get("orderBy")
	opts.Where = q.Get("where")

	return opts, result.Err()
}

// decodeBody reads a JSON object body. A missing body is an error only
// when the action requires one.
func decodeBody(r *http.Request, required bool) (map[string]any, error) {
	var data map[string]any
	err := json.NewDecoder(r.Body).Decode(&data)
	switch {
	case errors.Is(err, io.EOF):
		if required {
			var result validation.Result
			result.Valid = true
			result.AddError("body", "required", nil, "request body is required")
			return nil, result.Err()
		}
		return nil, nil
	case err != nil:
		var result validation.Result
		result.Valid = true
		result.AddError("body", "json", nil, fmt.Sprintf("invalid JSON: %v", err))
		return nil, result.Err()
	}
	return data, nil
}

// writeResult writes the per-action response envelope.
func (c *Channel) writeResult(w http.ResponseWriter, entity, action string, in runtime.Input, res runtime.Result) {
	switch action {
	case "list":
		items := res.Items
		if items == nil {
			items = []map[string]any{}
		}
		c.writeJSON(w, http.StatusOK, map[string]any{
			"data": items,
			"meta": map[string]any{
				"total":  res.Total,
				"limit":  in.List.Limit,
				"offset": in.List.Offset,
			},
		})

	case "get":
		c.writeJSON(w, http.StatusOK, map[string]any{"data": res.Data})

	case "create":
		c.writeJSON(w, http.StatusCreated, map[string]any{"id": res.ID, "data": res.Data})

	case "update":
		c.writeJSON(w, http.StatusOK, map[string]any{"id": res.ID, "data": res.Data})

	case "delete":
		w.WriteHeader(http.StatusNoContent)

	default:
		// Custom operations return the declared result value, or the
		// full record when no result kind is declared.
		if d, err := c.catalog.Get(entity); err == nil {
			if a, ok := d.Action(action); ok && a.Returns != "" {
				c.writeJSON(w, http.StatusOK, map[string]any{"data": res.Value})
				return
			}
		}
		c.writeJSON(w, http.StatusOK, map[string]any{"data": res.Data})
	}
}

func (c *Channel) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		c.logger.Error().Err(err).Msg("encoding response")
	}
}

// writeError maps executor and parsing failures onto the error
// envelope. Unrecognized errors are logged and reported as internal.
func (c *Channel) writeError(w http.ResponseWriter, err error) {
	var verr *validation.Error
	var unknown *catalog.UnknownEntityError
	var notBound *catalog.NotBoundError

	switch {
	case errors.Is(err, runtime.ErrNotFound):
		c.writeErrorBody(w, http.StatusNotFound, "not_found", "record not found", nil)
	case errors.As(err, &verr):
		c.writeErrorBody(w, http.StatusBadRequest, "validation", verr.Error(), verr.Errors)
	case errors.As(err, &unknown):
		c.writeErrorBody(w, http.StatusNotFound, "unknown_entity", err.Error(), nil)
	case errors.As(err, &notBound):
		c.logger.Error().Err(err).Msg("entity has no executor")
		c.writeErrorBody(w, http.StatusInternalServerError, "not_bound", err.Error(), nil)
	default:
		c.logger.Error().Err(err).Msg("action failed")
		c.writeErrorBody(w, http.StatusInternalServerError, "internal", "internal error", nil)
	}
}

func (c *Channel) writeErrorBody(w http.ResponseWriter, status int, code, message string, fields []validation.FieldError) {
	body := map[string]any{"code": code, "message": message}
	if len(fields) > 0 {
		body["fields"] = fields
	}
	c.writeJSON(w, status, map[string]any{"error": body})
}
