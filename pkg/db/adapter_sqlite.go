package db

import "fmt"

// sqliteAdapter implements Adapter for SQLite. SQLite has no schemas,
// stored procedures or user functions; the matching catalog queries
// return empty so callers report empty result sets.
type sqliteAdapter struct{}

func (a *sqliteAdapter) DefaultSchema() string { return "" }

func (a *sqliteAdapter) QuoteIdent(name string) string {
	return `"` + name + `"`
}

func (a *sqliteAdapter) Placeholder(n int) string { return "?" }

func (a *sqliteAdapter) ListTablesQuery(schema string) (string, []interface{}) {
	return `
	SELECT
		'' AS schema_name,
		name AS table_name,
		'BASE TABLE' AS table_type,
		NULL AS row_count,
		NULL AS created_date
	FROM sqlite_master
	WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
	ORDER BY name`, nil
}

func (a *sqliteAdapter) DescribeTableQuery(schema, table string) (string, []interface{}) {
	query := `
	SELECT
		name AS column_name,
		type AS data_type,
		NULL AS max_length,
		NULL AS numeric_precision,
		NULL AS numeric_scale,
		CASE WHEN "notnull" = 0 THEN 'YES' ELSE 'NO' END AS is_nullable,
		dflt_value AS column_default,
		pk AS is_primary_key,
		0 AS is_foreign_key
	FROM pragma_table_info(?)
	ORDER BY cid`
	return query, []interface{}{table}
}

func (a *sqliteAdapter) ListIndexesQuery(schema, table string) (string, []interface{}) {
	query := `
	SELECT
		il.name AS index_name,
		? AS table_name,
		il."unique" AS is_unique,
		CASE WHEN il.origin = 'pk' THEN 1 ELSE 0 END AS is_primary_key,
		'btree' AS index_type,
		group_concat(ii.name, ', ') AS columns
	FROM pragma_index_list(?) il
	JOIN pragma_index_info(il.name) ii
	GROUP BY il.name, il."unique", il.origin
	ORDER BY il.name`
	return query, []interface{}{table, table}
}

func (a *sqliteAdapter) ListViewsQuery() (string, []interface{}) {
	return `
	SELECT
		'' AS schema_name,
		name AS view_name
	FROM sqlite_master
	WHERE type = 'view'
	ORDER BY name`, nil
}

func (a *sqliteAdapter) ListProceduresQuery() (string, []interface{}) {
	return "", nil
}

func (a *sqliteAdapter) ListFunctionsQuery() (string, []interface{}) {
	return "", nil
}

func (a *sqliteAdapter) CheckConstraintsQuery(schema, table string) (string, []interface{}) {
	query := `
	SELECT
		'fk_' || "table" || '_' || "from" AS constraint_name,
		'FOREIGN KEY' AS constraint_type,
		"from" AS column_name,
		"table" || '.' || "to" AS references_column
	FROM pragma_foreign_key_list(?)
	ORDER BY id`
	return query, []interface{}{table}
}

func (a *sqliteAdapter) TableDataQuery(schema, table string, limit, offset int) (string, []interface{}) {
	return fmt.Sprintf("SELECT * FROM %s LIMIT ? OFFSET ?", a.QuoteIdent(table)), []interface{}{limit, offset}
}

func (a *sqliteAdapter) SelectWithLimit(query string, limit int) string {
	return appendLimit(query, limit)
}
