package dbtools

import (
	"regexp"

	"github.com/dbmcp/sql-gateway/pkg/tools"
)

const maxIdentifierLength = 128

var (
	identStrip  = regexp.MustCompile(`[^\w]`)
	typePattern = regexp.MustCompile(`^[\w]+(\s*\(\s*\d+(\s*,\s*\d+)?\s*\))?$`)
)

// sanitizeIdentifier strips everything but word characters from a table,
// column, schema or index name and caps it at 128 characters. An empty
// result is rejected.
func sanitizeIdentifier(name, kind string) (string, error) {
	cleaned := identStrip.ReplaceAllString(name, "")
	if cleaned == "" {
		return "", tools.InvalidArgument("invalid %s name: %q", kind, name)
	}
	if len(cleaned) > maxIdentifierLength {
		cleaned = cleaned[:maxIdentifierLength]
	}
	return cleaned, nil
}

// sanitizeType screens a column type expression like VARCHAR(255) or
// DECIMAL(10,2). Anything beyond a type name with a numeric size is
// rejected.
func sanitizeType(typeExpr string) (string, error) {
	if !typePattern.MatchString(typeExpr) {
		return "", tools.InvalidArgument("invalid column type: %q", typeExpr)
	}
	return typeExpr, nil
}
