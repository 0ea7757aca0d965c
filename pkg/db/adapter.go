package db

import "fmt"

// Adapter supplies the dialect-specific SQL behind the gateway's metadata
// and pagination tools. A query method returning an empty string means
// the engine has no such catalog and the tool reports an empty result.
type Adapter interface {
	// DefaultSchema is used when a tool call omits the schema argument.
	DefaultSchema() string

	// QuoteIdent quotes a sanitized identifier for this dialect.
	QuoteIdent(name string) string

	// Placeholder renders the 1-based nth bind parameter.
	Placeholder(n int) string

	ListTablesQuery(schema string) (string, []interface{})
	DescribeTableQuery(schema, table string) (string, []interface{})
	ListIndexesQuery(schema, table string) (string, []interface{})
	ListViewsQuery() (string, []interface{})
	ListProceduresQuery() (string, []interface{})
	ListFunctionsQuery() (string, []interface{})
	CheckConstraintsQuery(schema, table string) (string, []interface{})

	// TableDataQuery pages through a table. Identifiers must already be
	// sanitized by the caller.
	TableDataQuery(schema, table string, limit, offset int) (string, []interface{})

	// SelectWithLimit injects a row cap into a SELECT when the dialect
	// supports doing so without reparsing; otherwise returns the query
	// unchanged (the dispatcher still truncates).
	SelectWithLimit(query string, limit int) string
}

// AdapterFor returns the adapter for a configured database type.
func AdapterFor(dbType string) (Adapter, error) {
	switch dbType {
	case "mssql", "sqlserver":
		return &mssqlAdapter{}, nil
	case "mysql":
		return &mysqlAdapter{}, nil
	case "postgres":
		return &postgresAdapter{}, nil
	case "sqlite":
		return &sqliteAdapter{}, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}
