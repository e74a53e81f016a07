// Package catalog manages entity registration and lookup. It is the
// single source every generator reads from, and it binds entities to
// the runtime executors that perform their actions.
package catalog

import (
	"sync"

	"github.com/artpar/manifold/core/convention"
	"github.com/artpar/manifold/core/runtime"
	"github.com/artpar/manifold/core/schema"
)

// Catalog holds registered entities in registration order.
// A catalog is constructed explicitly and passed to its consumers;
// there is no package-level instance.
type Catalog struct {
	mu sync.RWMutex

	// entities by class name
	entities map[string]convention.Derived

	// order preserves registration order for deterministic generation
	order []string

	// resources maps plural resource names back to class names,
	// catching distinct classes that pluralize identically
	resources map[string]string

	// executors holds the runtime binding per class name
	executors map[string]runtime.Executor
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		entities:  make(map[string]convention.Derived),
		resources: make(map[string]string),
		executors: make(map[string]runtime.Executor),
	}
}

// Register validates and registers an entity declaration.
// Re-registering a class name is an error, never a silent merge.
func (c *Catalog) Register(e schema.Entity) error {
	if err := schema.Validate(e); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entities[e.Name]; exists {
		return &DuplicateEntityError{Name: e.Name}
	}

	derived := convention.Derive(e)

	if existing, exists := c.resources[derived.Resource]; exists {
		return &ResourceConflictError{
			Resource: derived.Resource,
			Existing: existing,
			Name:     e.Name,
		}
	}

	c.entities[e.Name] = derived
	c.resources[derived.Resource] = e.Name
	c.order = append(c.order, e.Name)

	return nil
}

// Get returns a registered entity by class name.
func (c *Catalog) Get(name string) (convention.Derived, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.entities[name]
	if !ok {
		return convention.Derived{}, &UnknownEntityError{Name: name}
	}
	return d, nil
}

// List returns all registered entities in registration order.
func (c *Catalog) List() []convention.Derived {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]convention.Derived, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.entities[name])
	}
	return out
}

// Names returns the registered class names in registration order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of registered entities.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.order)
}

// Bind attaches a runtime executor to a registered entity.
func (c *Catalog) Bind(name string, exec runtime.Executor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entities[name]; !ok {
		return &UnknownEntityError{Name: name}
	}
	c.executors[name] = exec
	return nil
}

// BindAll attaches one executor to every registered entity.
func (c *Catalog) BindAll(exec runtime.Executor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, name := range c.order {
		c.executors[name] = exec
	}
}

// Executor returns the runtime executor bound to an entity.
func (c *Catalog) Executor(name string) (runtime.Executor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.entities[name]; !ok {
		return nil, &UnknownEntityError{Name: name}
	}
	exec, ok := c.executors[name]
	if !ok {
		return nil, &NotBoundError{Name: name}
	}
	return exec, nil
}

// Reset removes every registration. The catalog is immutable after
// startup registration; Reset exists for test teardown.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entities = make(map[string]convention.Derived)
	c.resources = make(map[string]string)
	c.executors = make(map[string]runtime.Executor)
	c.order = nil
}
