package db

import "fmt"

// postgresAdapter implements Adapter for PostgreSQL.
type postgresAdapter struct{}

func (a *postgresAdapter) DefaultSchema() string { return "public" }

func (a *postgresAdapter) QuoteIdent(name string) string {
	return `"` + name + `"`
}

func (a *postgresAdapter) Placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func (a *postgresAdapter) ListTablesQuery(schema string) (string, []interface{}) {
	if schema == "" {
		schema = a.DefaultSchema()
	}
	query := `
	SELECT
		t.table_schema AS schema_name,
		t.table_name AS table_name,
		t.table_type AS table_type,
		c.reltuples::bigint AS row_count,
		NULL AS created_date
	FROM information_schema.tables t
	LEFT JOIN pg_catalog.pg_class c ON c.relname = t.table_name
		AND c.relnamespace = (SELECT oid FROM pg_catalog.pg_namespace WHERE nspname = t.table_schema)
	WHERE t.table_schema = $1 AND t.table_type = 'BASE TABLE'
	ORDER BY t.table_name`
	return query, []interface{}{schema}
}

func (a *postgresAdapter) DescribeTableQuery(schema, table string) (string, []interface{}) {
	if schema == "" {
		schema = a.DefaultSchema()
	}
	query := `
	SELECT
		c.column_name AS column_name,
		c.data_type AS data_type,
		c.character_maximum_length AS max_length,
		c.numeric_precision AS numeric_precision,
		c.numeric_scale AS numeric_scale,
		c.is_nullable AS is_nullable,
		c.column_default AS column_default,
		CASE WHEN pk.column_name IS NOT NULL THEN 1 ELSE 0 END AS is_primary_key,
		CASE WHEN fk.column_name IS NOT NULL THEN 1 ELSE 0 END AS is_foreign_key
	FROM information_schema.columns c
	LEFT JOIN (
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_name = $1 AND tc.table_schema = $2
	) pk ON c.column_name = pk.column_name
	LEFT JOIN (
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_name = $1 AND tc.table_schema = $2
	) fk ON c.column_name = fk.column_name
	WHERE c.table_name = $1 AND c.table_schema = $2
	ORDER BY c.ordinal_position`
	return query, []interface{}{table, schema}
}

func (a *postgresAdapter) ListIndexesQuery(schema, table string) (string, []interface{}) {
	if schema == "" {
		schema = a.DefaultSchema()
	}
	query := `
	SELECT
		i.relname AS index_name,
		t.relname AS table_name,
		CASE WHEN ix.indisunique THEN 1 ELSE 0 END AS is_unique,
		CASE WHEN ix.indisprimary THEN 1 ELSE 0 END AS is_primary_key,
		am.amname AS index_type,
		string_agg(a.attname, ', ' ORDER BY array_position(ix.indkey, a.attnum)) AS columns
	FROM pg_catalog.pg_index ix
	JOIN pg_catalog.pg_class i ON i.oid = ix.indexrelid
	JOIN pg_catalog.pg_class t ON t.oid = ix.indrelid
	JOIN pg_catalog.pg_namespace n ON n.oid = t.relnamespace
	JOIN pg_catalog.pg_am am ON am.oid = i.relam
	JOIN pg_catalog.pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
	WHERE t.relname = $1 AND n.nspname = $2
	GROUP BY i.relname, t.relname, ix.indisunique, ix.indisprimary, am.amname
	ORDER BY i.relname`
	return query, []interface{}{table, schema}
}

func (a *postgresAdapter) ListViewsQuery() (string, []interface{}) {
	return `
	SELECT
		table_schema AS schema_name,
		table_name AS view_name
	FROM information_schema.views
	WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
	ORDER BY table_name`, nil
}

func (a *postgresAdapter) ListProceduresQuery() (string, []interface{}) {
	return `
	SELECT
		routine_schema AS schema_name,
		routine_name AS procedure_name,
		routine_type AS routine_type,
		NULL AS created,
		NULL AS last_altered
	FROM information_schema.routines
	WHERE routine_type = 'PROCEDURE' AND routine_schema NOT IN ('pg_catalog', 'information_schema')
	ORDER BY routine_name`, nil
}

func (a *postgresAdapter) ListFunctionsQuery() (string, []interface{}) {
	return `
	SELECT
		routine_schema AS schema_name,
		routine_name AS function_name,
		routine_type AS routine_type,
		data_type AS return_type,
		NULL AS created,
		NULL AS last_altered
	FROM information_schema.routines
	WHERE routine_type = 'FUNCTION' AND routine_schema NOT IN ('pg_catalog', 'information_schema')
	ORDER BY routine_name`, nil
}

func (a *postgresAdapter) CheckConstraintsQuery(schema, table string) (string, []interface{}) {
	if schema == "" {
		schema = a.DefaultSchema()
	}
	query := `
	SELECT
		tc.constraint_name AS constraint_name,
		tc.constraint_type AS constraint_type,
		kcu.column_name AS column_name,
		concat_ws('.', ccu.table_schema, ccu.table_name, ccu.column_name) AS references_column
	FROM information_schema.table_constraints tc
	LEFT JOIN information_schema.key_column_usage kcu
		ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
	LEFT JOIN information_schema.constraint_column_usage ccu
		ON tc.constraint_name = ccu.constraint_name
		AND tc.constraint_type = 'FOREIGN KEY'
	WHERE tc.table_name = $1 AND tc.table_schema = $2
	ORDER BY tc.constraint_type, tc.constraint_name`
	return query, []interface{}{table, schema}
}

func (a *postgresAdapter) TableDataQuery(schema, table string, limit, offset int) (string, []interface{}) {
	name := a.QuoteIdent(table)
	if schema != "" {
		name = a.QuoteIdent(schema) + "." + name
	}
	return fmt.Sprintf("SELECT * FROM %s LIMIT $1 OFFSET $2", name), []interface{}{limit, offset}
}

func (a *postgresAdapter) SelectWithLimit(query string, limit int) string {
	return appendLimit(query, limit)
}
