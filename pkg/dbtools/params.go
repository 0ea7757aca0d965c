package dbtools

import (
	"github.com/dbmcp/sql-gateway/pkg/tools"
)

// stringParam extracts a required string argument.
func stringParam(args map[string]interface{}, name string) (string, error) {
	raw, ok := args[name]
	if !ok {
		return "", tools.InvalidArgument("missing required argument: %s", name)
	}
	s, ok := raw.(string)
	if !ok {
		return "", tools.InvalidArgument("argument %s must be a string", name)
	}
	return s, nil
}

// optionalStringParam extracts an optional string argument, returning
// fallback when absent.
func optionalStringParam(args map[string]interface{}, name, fallback string) (string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return fallback, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", tools.InvalidArgument("argument %s must be a string", name)
	}
	return s, nil
}

// optionalIntParam extracts an optional integer argument. JSON numbers
// arrive as float64; both forms are accepted.
func optionalIntParam(args map[string]interface{}, name string, fallback int) (int, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return fallback, nil
	}
	switch n := raw.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, tools.InvalidArgument("argument %s must be an integer", name)
	}
}

// optionalBoolParam extracts an optional boolean argument.
func optionalBoolParam(args map[string]interface{}, name string, fallback bool) (bool, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return fallback, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, tools.InvalidArgument("argument %s must be a boolean", name)
	}
	return b, nil
}

// arrayParam extracts an optional array argument; absent means empty.
func arrayParam(args map[string]interface{}, name string) ([]interface{}, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return nil, nil
	}
	arr, ok := raw.([]interface{})
	if !ok {
		return nil, tools.InvalidArgument("argument %s must be an array", name)
	}
	return arr, nil
}

// mapParam extracts a required object argument.
func mapParam(args map[string]interface{}, name string) (map[string]interface{}, error) {
	raw, ok := args[name]
	if !ok {
		return nil, tools.InvalidArgument("missing required argument: %s", name)
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, tools.InvalidArgument("argument %s must be an object", name)
	}
	return m, nil
}
