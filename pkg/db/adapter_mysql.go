package db

import (
	"fmt"
	"strings"
)

// mysqlAdapter implements Adapter for MySQL. MySQL equates schemas with
// databases; an empty schema argument means the current database.
type mysqlAdapter struct{}

func (a *mysqlAdapter) DefaultSchema() string { return "" }

func (a *mysqlAdapter) QuoteIdent(name string) string {
	return "`" + name + "`"
}

func (a *mysqlAdapter) Placeholder(n int) string { return "?" }

func (a *mysqlAdapter) ListTablesQuery(schema string) (string, []interface{}) {
	query := `
	SELECT
		TABLE_SCHEMA AS schema_name,
		TABLE_NAME AS table_name,
		TABLE_TYPE AS table_type,
		TABLE_ROWS AS row_count,
		CREATE_TIME AS created_date
	FROM information_schema.TABLES
	WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
	ORDER BY TABLE_NAME`
	return query, []interface{}{schema}
}

func (a *mysqlAdapter) DescribeTableQuery(schema, table string) (string, []interface{}) {
	query := `
	SELECT
		COLUMN_NAME AS column_name,
		DATA_TYPE AS data_type,
		CHARACTER_MAXIMUM_LENGTH AS max_length,
		NUMERIC_PRECISION AS numeric_precision,
		NUMERIC_SCALE AS numeric_scale,
		IS_NULLABLE AS is_nullable,
		COLUMN_DEFAULT AS column_default,
		CASE WHEN COLUMN_KEY = 'PRI' THEN 1 ELSE 0 END AS is_primary_key,
		CASE WHEN COLUMN_KEY = 'MUL' THEN 1 ELSE 0 END AS is_foreign_key
	FROM information_schema.COLUMNS
	WHERE TABLE_NAME = ? AND TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
	ORDER BY ORDINAL_POSITION`
	return query, []interface{}{table, schema}
}

func (a *mysqlAdapter) ListIndexesQuery(schema, table string) (string, []interface{}) {
	query := `
	SELECT
		INDEX_NAME AS index_name,
		TABLE_NAME AS table_name,
		CASE WHEN NON_UNIQUE = 0 THEN 1 ELSE 0 END AS is_unique,
		CASE WHEN INDEX_NAME = 'PRIMARY' THEN 1 ELSE 0 END AS is_primary_key,
		INDEX_TYPE AS index_type,
		GROUP_CONCAT(COLUMN_NAME ORDER BY SEQ_IN_INDEX SEPARATOR ', ') AS columns
	FROM information_schema.STATISTICS
	WHERE TABLE_NAME = ? AND TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
	GROUP BY INDEX_NAME, TABLE_NAME, NON_UNIQUE, INDEX_TYPE
	ORDER BY INDEX_NAME`
	return query, []interface{}{table, schema}
}

func (a *mysqlAdapter) ListViewsQuery() (string, []interface{}) {
	return `
	SELECT
		TABLE_SCHEMA AS schema_name,
		TABLE_NAME AS view_name
	FROM information_schema.VIEWS
	WHERE TABLE_SCHEMA = DATABASE()
	ORDER BY TABLE_NAME`, nil
}

func (a *mysqlAdapter) ListProceduresQuery() (string, []interface{}) {
	return `
	SELECT
		ROUTINE_SCHEMA AS schema_name,
		ROUTINE_NAME AS procedure_name,
		ROUTINE_TYPE AS routine_type,
		CREATED AS created,
		LAST_ALTERED AS last_altered
	FROM information_schema.ROUTINES
	WHERE ROUTINE_TYPE = 'PROCEDURE' AND ROUTINE_SCHEMA = DATABASE()
	ORDER BY ROUTINE_NAME`, nil
}

func (a *mysqlAdapter) ListFunctionsQuery() (string, []interface{}) {
	return `
	SELECT
		ROUTINE_SCHEMA AS schema_name,
		ROUTINE_NAME AS function_name,
		ROUTINE_TYPE AS routine_type,
		DATA_TYPE AS return_type,
		CREATED AS created,
		LAST_ALTERED AS last_altered
	FROM information_schema.ROUTINES
	WHERE ROUTINE_TYPE = 'FUNCTION' AND ROUTINE_SCHEMA = DATABASE()
	ORDER BY ROUTINE_NAME`, nil
}

func (a *mysqlAdapter) CheckConstraintsQuery(schema, table string) (string, []interface{}) {
	query := `
	SELECT
		tc.CONSTRAINT_NAME AS constraint_name,
		tc.CONSTRAINT_TYPE AS constraint_type,
		kcu.COLUMN_NAME AS column_name,
		CONCAT_WS('.', kcu.REFERENCED_TABLE_SCHEMA, kcu.REFERENCED_TABLE_NAME, kcu.REFERENCED_COLUMN_NAME) AS references_column
	FROM information_schema.TABLE_CONSTRAINTS tc
	LEFT JOIN information_schema.KEY_COLUMN_USAGE kcu
		ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
		AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
		AND tc.TABLE_NAME = kcu.TABLE_NAME
	WHERE tc.TABLE_NAME = ? AND tc.TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
	ORDER BY tc.CONSTRAINT_TYPE, tc.CONSTRAINT_NAME`
	return query, []interface{}{table, schema}
}

func (a *mysqlAdapter) TableDataQuery(schema, table string, limit, offset int) (string, []interface{}) {
	name := a.QuoteIdent(table)
	if schema != "" {
		name = a.QuoteIdent(schema) + "." + name
	}
	return fmt.Sprintf("SELECT * FROM %s LIMIT ? OFFSET ?", name), []interface{}{limit, offset}
}

func (a *mysqlAdapter) SelectWithLimit(query string, limit int) string {
	return appendLimit(query, limit)
}

// appendLimit adds a LIMIT clause when the query does not already carry
// one. Shared by the dialects using LIMIT/OFFSET pagination.
func appendLimit(query string, limit int) string {
	if strings.Contains(strings.ToUpper(query), "LIMIT ") {
		return query
	}
	return fmt.Sprintf("%s LIMIT %d", strings.TrimRight(strings.TrimSpace(query), ";"), limit)
}
