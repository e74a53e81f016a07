// Package runtime defines the execution seam between generated
// interfaces and the collaborator that performs entity actions.
// Generators emit descriptors; channels parse their native input into
// an Input and delegate to the Executor bound in the catalog.
package runtime

import (
	"context"
	"errors"
)

// ErrNotFound reports that no record matched the requested id.
// Channels translate it to their native not-found signal.
var ErrNotFound = errors.New("record not found")

// Executor performs entity actions. One executor may serve many
// entities; the entity and action names identify the call.
type Executor interface {
	Execute(ctx context.Context, entity, action string, in Input) (Result, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, entity, action string, in Input) (Result, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, entity, action string, in Input) (Result, error) {
	return f(ctx, entity, action, in)
}

// Input is the channel-independent form of one action invocation.
type Input struct {
	// ID is the record id for get, update, delete, and custom actions.
	ID string

	// Data holds body fields: the record on create/update, the
	// operation parameters on custom actions.
	Data map[string]any

	// List holds paging options for list actions.
	List ListOptions

	// Channel names the originating channel (api, cli, tool).
	Channel string
}

// ListOptions configures list actions.
type ListOptions struct {
	// Limit is the maximum number of records to return. Zero means
	// the executor's default page size.
	Limit int

	// Offset is the number of records to skip.
	Offset int

	// OrderBy is the field to sort by.
	OrderBy string

	// Where is an opaque filter expression, passed through to the
	// executor untouched.
	Where string
}

// Result is the channel-independent outcome of one action.
type Result struct {
	// ID is the id of the affected record, when one exists.
	ID string

	// Data is the record for single-record actions, or the record-shaped
	// result of a custom operation that declares no result kind.
	Data map[string]any

	// Value is the scalar result of a custom operation that declares a
	// result kind.
	Value any

	// Items holds the page of records for list actions.
	Items []map[string]any

	// Total is the total record count for list actions, ignoring paging.
	Total int64
}

// Channel is a generated interface surface over a catalog.
type Channel interface {
	// Name returns the channel name.
	Name() string

	// Start starts serving. It returns once the channel is ready.
	Start(ctx context.Context) error

	// Stop shuts the channel down gracefully.
	Stop(ctx context.Context) error
}
