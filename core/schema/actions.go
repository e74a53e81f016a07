package schema

// ActionKind represents the kind of a derived action.
type ActionKind int

const (
	// ActionList retrieves a page of records.
	ActionList ActionKind = iota

	// ActionGet retrieves a single record by id.
	ActionGet

	// ActionCreate creates a new record.
	ActionCreate

	// ActionUpdate modifies an existing record.
	ActionUpdate

	// ActionDelete removes a record.
	ActionDelete

	// ActionCustom is a declared custom operation.
	ActionCustom
)

// String returns the action kind name.
func (k ActionKind) String() string {
	switch k {
	case ActionList:
		return "list"
	case ActionGet:
		return "get"
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	case ActionCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// DefaultActions returns the standard actions every entity has,
// in their fixed generation order.
func DefaultActions() []string {
	return []string{"list", "get", "create", "update", "delete"}
}

// IsDefaultAction returns true if the name is a default action.
func IsDefaultAction(name string) bool {
	switch name {
	case "list", "get", "create", "update", "delete":
		return true
	default:
		return false
	}
}

// ActionKindFromName returns the ActionKind for a given action name.
func ActionKindFromName(name string) ActionKind {
	switch name {
	case "list":
		return ActionList
	case "get":
		return ActionGet
	case "create":
		return ActionCreate
	case "update":
		return ActionUpdate
	case "delete":
		return ActionDelete
	default:
		return ActionCustom
	}
}
