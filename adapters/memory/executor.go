// Package memory provides a map-backed executor for tests, demos, and
// serving out of the box. Records live in process memory. Ids are
// generated, timestamps are stamped, and declared constraints are
// enforced on every write, so the behavior matches what a persistent
// executor would do.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/artpar/manifold/core/catalog"
	"github.com/artpar/manifold/core/convention"
	"github.com/artpar/manifold/core/runtime"
	"github.com/artpar/manifold/core/validation"
)

// defaultLimit is the page size used when a list request does not set one.
const defaultLimit = 50

// OperationFunc handles one custom operation invocation. The record is
// passed as a mutable copy; changes are persisted when the handler
// succeeds. The returned value becomes the operation result for
// operations that declare a result kind.
type OperationFunc func(ctx context.Context, record map[string]any, params map[string]any) (any, error)

// Executor stores records in maps keyed by entity and id. It is safe
// for concurrent use.
type Executor struct {
	catalog *catalog.Catalog

	mu       sync.RWMutex
	records  map[string]map[string]map[string]any
	order    map[string][]string
	handlers map[string]map[string]OperationFunc

	now func() time.Time
}

var _ runtime.Executor = (*Executor)(nil)

// NewExecutor creates an empty executor over the given catalog. The
// catalog supplies field declarations for validation and defaults.
func NewExecutor(c *catalog.Catalog) *Executor {
	return &Executor{
		catalog:  c,
		records:  make(map[string]map[string]map[string]any),
		order:    make(map[string][]string),
		handlers: make(map[string]map[string]OperationFunc),
		now:      time.Now,
	}
}

// Handle registers the handler for a custom operation. Invoking an
// operation without a registered handler fails.
func (e *Executor) Handle(entity, operation string, fn OperationFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handlers[entity] == nil {
		e.handlers[entity] = make(map[string]OperationFunc)
	}
	e.handlers[entity][operation] = fn
}

// Reset removes every stored record. Registered handlers survive.
func (e *Executor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.records = make(map[string]map[string]map[string]any)
	e.order = make(map[string][]string)
}

// Execute performs one action against the store.
func (e *Executor) Execute(ctx context.Context, entity, action string, in runtime.Input) (runtime.Result, error) {
	d, err := e.catalog.Get(entity)
	if err != nil {
		return runtime.Result{}, err
	}

	switch action {
	case "list":
		return e.list(d, in.List)
	case "get":
		return e.get(d, in.ID)
	case "create":
		return e.create(d, in.Data)
	case "update":
		return e.update(d, in.ID, in.Data)
	case "delete":
		return e.remove(d, in.ID)
	default:
		return e.operate(ctx, d, action, in)
	}
}

func (e *Executor) list(d convention.Derived, opts runtime.ListOptions) (runtime.Result, error) {
	filter, err := parseFilter(d, opts.Where)
	if err != nil {
		return runtime.Result{}, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	name := d.Source.Name
	matched := make([]map[string]any, 0, len(e.order[name]))
	for _, id := range e.order[name] {
		rec := e.records[name][id]
		if filter != nil && !filter.matches(rec) {
			continue
		}
		matched = append(matched, cloneRecord(rec))
	}

	if opts.OrderBy != "" {
		if err := sortRecords(d, matched, opts.OrderBy); err != nil {
			return runtime.Result{}, err
		}
	}

	total := int64(len(matched))

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit < len(matched) {
		matched = matched[:limit]
	}

	return runtime.Result{Items: matched, Total: total}, nil
}

func (e *Executor) get(d convention.Derived, id string) (runtime.Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rec, ok := e.records[d.Source.Name][id]
	if !ok {
		return runtime.Result{}, runtime.ErrNotFound
	}
	return runtime.Result{ID: id, Data: cloneRecord(rec)}, nil
}

func (e *Executor) create(d convention.Derived, data map[string]any) (runtime.Result, error) {
	if err := validation.ValidateCreate(d, data).Err(); err != nil {
		return runtime.Result{}, err
	}

	rec := make(map[string]any, len(data)+3)
	for k, v := range data {
		if v == nil {
			continue
		}
		rec[k] = cloneValue(v)
	}

	for _, f := range d.Fields {
		if f.Implicit || f.Default == nil {
			continue
		}
		if _, ok := rec[f.Name]; !ok {
			rec[f.Name] = cloneValue(f.Default)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkUnique(d, rec, ""); err != nil {
		return runtime.Result{}, err
	}
	if err := e.checkReferences(d, rec); err != nil {
		return runtime.Result{}, err
	}

	name := d.Source.Name
	id := uuid.NewString()
	stamp := e.now().UTC().Format(time.RFC3339)
	rec["id"] = id
	rec["created_at"] = stamp
	rec["updated_at"] = stamp

	if e.records[name] == nil {
		e.records[name] = make(map[string]map[string]any)
	}
	e.records[name][id] = rec
	e.order[name] = append(e.order[name], id)

	return runtime.Result{ID: id, Data: cloneRecord(rec)}, nil
}

func (e *Executor) update(d convention.Derived, id string, data map[string]any) (runtime.Result, error) {
	if err := validation.ValidateUpdate(d, data).Err(); err != nil {
		return runtime.Result{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	name := d.Source.Name
	rec, ok := e.records[name][id]
	if !ok {
		return runtime.Result{}, runtime.ErrNotFound
	}

	merged := cloneRecord(rec)
	for k, v := range data {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = cloneValue(v)
	}

	if err := e.checkUnique(d, merged, id); err != nil {
		return runtime.Result{}, err
	}
	if err := e.checkReferences(d, merged); err != nil {
		return runtime.Result{}, err
	}

	merged["updated_at"] = e.now().UTC().Format(time.RFC3339)
	e.records[name][id] = merged

	return runtime.Result{ID: id, Data: cloneRecord(merged)}, nil
}

func (e *Executor) remove(d convention.Derived, id string) (runtime.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	name := d.Source.Name
	if _, ok := e.records[name][id]; !ok {
		return runtime.Result{}, runtime.ErrNotFound
	}

	delete(e.records[name], id)
	ids := e.order[name]
	for i, oid := range ids {
		if oid == id {
			e.order[name] = append(ids[:i], ids[i+1:]...)
			break
		}
	}

	return runtime.Result{ID: id}, nil
}

func (e *Executor) operate(ctx context.Context, d convention.Derived, action string, in runtime.Input) (runtime.Result, error) {
	a, ok := d.Action(action)
	if !ok {
		return runtime.Result{}, fmt.Errorf("entity %q has no action %q", d.Source.Name, action)
	}

	if err := validation.ValidateOperation(a, in.Data).Err(); err != nil {
		return runtime.Result{}, err
	}

	name := d.Source.Name

	e.mu.RLock()
	rec, found := e.records[name][in.ID]
	var before, working map[string]any
	if found {
		before = cloneRecord(rec)
		working = cloneRecord(rec)
	}
	fn := e.handlers[name][action]
	e.mu.RUnlock()

	if !found {
		return runtime.Result{}, runtime.ErrNotFound
	}
	if fn == nil {
		return runtime.Result{}, fmt.Errorf("no handler registered for %s.%s", name, action)
	}

	// The handler runs unlocked so it may call back into the executor.
	out, err := fn(ctx, working, in.Data)
	if err != nil {
		return runtime.Result{}, fmt.Errorf("operation %s.%s: %w", name, action, err)
	}

	e.mu.Lock()
	if _, still := e.records[name][in.ID]; still && !reflect.DeepEqual(before, working) {
		working["id"] = in.ID
		working["updated_at"] = e.now().UTC().Format(time.RFC3339)
		e.records[name][in.ID] = working
	}
	snapshot := cloneRecord(e.records[name][in.ID])
	e.mu.Unlock()

	if a.Returns != "" {
		return runtime.Result{ID: in.ID, Value: out}, nil
	}
	return runtime.Result{ID: in.ID, Data: snapshot}, nil
}

// checkUnique enforces unique constraints across stored records. The
// self id excludes the record being updated from the scan.
func (e *Executor) checkUnique(d convention.Derived, rec map[string]any, self string) error {
	var result validation.Result
	result.Valid = true

	for _, f := range d.Fields {
		if !f.Constraints.Unique {
			continue
		}
		value, ok := rec[f.Name]
		if !ok || value == nil {
			continue
		}
		for id, other := range e.records[d.Source.Name] {
			if id == self {
				continue
			}
			if equalValues(other[f.Name], value) {
				result.AddError(f.Name, "unique", value,
					fmt.Sprintf("value already used by another %s", strings.ToLower(d.Source.Name)))
				break
			}
		}
	}

	return result.Err()
}

// checkReferences verifies that reference fields point at existing
// records of their target entity.
func (e *Executor) checkReferences(d convention.Derived, rec map[string]any) error {
	var result validation.Result
	result.Valid = true

	for _, f := range d.Fields {
		if f.Constraints.Target == "" {
			continue
		}
		value, ok := rec[f.Name]
		if !ok || value == nil {
			continue
		}
		id, _ := value.(string)
		if _, found := e.records[f.Constraints.Target][id]; !found {
			result.AddError(f.Name, "reference", value,
				fmt.Sprintf("referenced %s %q does not exist", f.Constraints.Target, id))
		}
	}

	return result.Err()
}

// filter is a parsed where expression. The memory executor understands
// a single "field=value" equality; values are compared in their text
// form.
type filter struct {
	field string
	value string
}

func (f *filter) matches(rec map[string]any) bool {
	v, ok := rec[f.field]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprintf("%v", v) == f.value
}

func parseFilter(d convention.Derived, where string) (*filter, error) {
	if where == "" {
		return nil, nil
	}

	var result validation.Result
	result.Valid = true

	field, value, ok := strings.Cut(where, "=")
	if !ok {
		result.AddError("where", "filter", where, "filter must have the form field=value")
		return nil, result.Err()
	}

	field = strings.TrimSpace(field)
	if !hasField(d, field) {
		result.AddError("where", "filter", where,
			fmt.Sprintf("unknown filter field %q", field))
		return nil, result.Err()
	}

	return &filter{field: field, value: strings.TrimSpace(value)}, nil
}

// sortRecords orders a result page by one field. A leading minus sorts
// descending. Missing values sort first.
func sortRecords(d convention.Derived, recs []map[string]any, orderBy string) error {
	field := orderBy
	desc := false
	if strings.HasPrefix(field, "-") {
		field = field[1:]
		desc = true
	}

	if !hasField(d, field) {
		var result validation.Result
		result.Valid = true
		result.AddError("orderBy", "order", orderBy,
			fmt.Sprintf("unknown sort field %q", field))
		return result.Err()
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if desc {
			i, j = j, i
		}
		return lessValues(recs[i][field], recs[j][field])
	})

	return nil
}

func hasField(d convention.Derived, name string) bool {
	for _, f := range d.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// lessValues orders two stored values. Numbers compare numerically,
// strings lexically, booleans false before true. Nil sorts first.
func lessValues(a, b any) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}

	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af < bf
	}

	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			return !ab && bb
		}
	}

	return fmt.Sprintf("%v", a) < fmt.Sprintf("%v", b)
}

// equalValues compares two stored values, widening numeric types so a
// stored int matches an incoming float64.
func equalValues(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// cloneRecord deep-copies a record so callers cannot mutate the store.
func cloneRecord(rec map[string]any) map[string]any {
	if rec == nil {
		return nil
	}
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneRecord(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
