// Package policy implements the gateway's operating-mode gate. The mode
// is fixed at startup and decides which tools are callable at all;
// statement-level checks belong to the validate package.
package policy

import "fmt"

// Mode is the gateway's access mode.
type Mode string

const (
	// ReadOnly permits only schema introspection and validated SELECTs.
	ReadOnly Mode = "READ_ONLY"
	// FullAccess additionally permits mutating tools.
	FullAccess Mode = "FULL_ACCESS"
)

// ParseMode validates a textual mode value.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ReadOnly, FullAccess:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid mode %q: must be READ_ONLY or FULL_ACCESS", s)
	}
}

// readOnlyTools is the set callable in every mode.
var readOnlyTools = map[string]bool{
	"list_tables":         true,
	"describe_table":      true,
	"list_columns":        true,
	"list_indexes":        true,
	"list_views":          true,
	"list_procedures":     true,
	"list_functions":      true,
	"execute_select":      true,
	"get_table_data":      true,
	"get_database_schema": true,
	"check_constraints":   true,
}

// fullAccessTools require FULL_ACCESS mode.
var fullAccessTools = map[string]bool{
	"execute_query":     true,
	"create_table":      true,
	"alter_table":       true,
	"drop_table":        true,
	"insert_data":       true,
	"update_data":       true,
	"delete_data":       true,
	"create_index":      true,
	"drop_index":        true,
	"execute_procedure": true,
	"backup_table":      true,
}

// Known reports whether name is a tool the gateway has ever heard of,
// regardless of mode.
func Known(name string) bool {
	return readOnlyTools[name] || fullAccessTools[name]
}

// Allowed reports whether the named tool is callable under the mode.
func (m Mode) Allowed(name string) bool {
	if readOnlyTools[name] {
		return true
	}
	if m == FullAccess {
		return fullAccessTools[name]
	}
	return false
}

// ReadOnlyToolNames returns the always-available tool names.
func ReadOnlyToolNames() []string {
	return names(readOnlyTools)
}

// FullAccessToolNames returns the tools gated behind FULL_ACCESS.
func FullAccessToolNames() []string {
	return names(fullAccessTools)
}

func names(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	return out
}
