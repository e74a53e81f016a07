package convention

import "strings"

// Pluralize returns the lowercase plural resource name for a class name.
// Rules, applied in order to the lowercased name:
//
//   - ends in s, x, z, ch, or sh  → append "es"
//   - ends in y                   → drop the y, append "ies"
//   - otherwise                   → append "s"
//
// Category → categories, Box → boxes, Tag → tags, Bus → buses.
func Pluralize(name string) string {
	if name == "" {
		return ""
	}

	lower := strings.ToLower(name)

	if strings.HasSuffix(lower, "s") ||
		strings.HasSuffix(lower, "x") ||
		strings.HasSuffix(lower, "z") ||
		strings.HasSuffix(lower, "ch") ||
		strings.HasSuffix(lower, "sh") {
		return lower + "es"
	}

	if strings.HasSuffix(lower, "y") {
		return lower[:len(lower)-1] + "ies"
	}

	return lower + "s"
}

// CommandName returns the CLI command group for a class name:
// the lowercased singular form.
func CommandName(name string) string {
	return strings.ToLower(name)
}

// ToolName returns the tool descriptor name for a class name and action:
// "{lowercased class name}_{action}". Uniqueness follows from class names
// being unique and action names being unique per entity.
func ToolName(name, action string) string {
	return strings.ToLower(name) + "_" + action
}
