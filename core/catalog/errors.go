package catalog

import "fmt"

// DuplicateEntityError reports an attempt to register a class name
// twice. Registration never merges; duplicates are fatal at startup.
type DuplicateEntityError struct {
	// Name is the already-registered class name.
	Name string
}

func (e *DuplicateEntityError) Error() string {
	return fmt.Sprintf("entity %q already registered", e.Name)
}

// UnknownEntityError reports a lookup of an unregistered class name.
// Callers must surface it rather than silently skip the entity.
type UnknownEntityError struct {
	// Name is the class name that was not found.
	Name string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("entity %q not registered", e.Name)
}

// ResourceConflictError reports two distinct class names that derive
// the same plural resource name, which would collide on every route.
type ResourceConflictError struct {
	// Resource is the contested plural name.
	Resource string

	// Existing is the class name that claimed the resource first.
	Existing string

	// Name is the class name that lost the claim.
	Name string
}

func (e *ResourceConflictError) Error() string {
	return fmt.Sprintf("resource %q claimed by both %q and %q", e.Resource, e.Existing, e.Name)
}

// NotBoundError reports that a registered entity has no runtime
// executor bound.
type NotBoundError struct {
	// Name is the class name missing a binding.
	Name string
}

func (e *NotBoundError) Error() string {
	return fmt.Sprintf("entity %q has no executor bound", e.Name)
}
