package schema

import "fmt"

// InvalidPolicyError reports a malformed access policy, such as one
// naming a nonexistent or non-public operation. It is raised at
// generation time, not at registration.
type InvalidPolicyError struct {
	// Entity is the declaring entity's class name.
	Entity string

	// Channel is the channel whose policy is invalid.
	Channel Channel

	// Name is the offending include/exclude entry.
	Name string

	// Reason describes the violation.
	Reason string
}

func (e *InvalidPolicyError) Error() string {
	return fmt.Sprintf("invalid %s policy for %s: %q: %s", e.Channel, e.Entity, e.Name, e.Reason)
}

// GenerationError reports that artifact generation failed for one
// entity. Batch generation aborts only the offending entity and
// continues with the rest.
type GenerationError struct {
	// Entity is the class name of the entity that failed.
	Entity string

	// Field is the offending field name, when one is responsible.
	Field string

	// Err is the underlying cause.
	Err error
}

func (e *GenerationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("generate %s: field %q: %v", e.Entity, e.Field, e.Err)
	}
	return fmt.Sprintf("generate %s: %v", e.Entity, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
