package db

import (
	"fmt"
	"regexp"
	"strings"
)

// mssqlAdapter implements Adapter for SQL Server.
type mssqlAdapter struct{}

func (a *mssqlAdapter) DefaultSchema() string { return "dbo" }

func (a *mssqlAdapter) QuoteIdent(name string) string {
	return "[" + name + "]"
}

func (a *mssqlAdapter) Placeholder(n int) string {
	return fmt.Sprintf("@p%d", n)
}

func (a *mssqlAdapter) ListTablesQuery(schema string) (string, []interface{}) {
	query := `
	SELECT
		t.TABLE_SCHEMA AS schema_name,
		t.TABLE_NAME AS table_name,
		t.TABLE_TYPE AS table_type,
		p.rows AS row_count,
		o.create_date AS created_date
	FROM INFORMATION_SCHEMA.TABLES t
	LEFT JOIN sys.objects o ON o.name = t.TABLE_NAME AND o.type = 'U'
	LEFT JOIN sys.dm_db_partition_stats p ON o.object_id = p.object_id AND p.index_id <= 1
	WHERE t.TABLE_TYPE IN ('BASE TABLE', 'VIEW')`

	var args []interface{}
	if schema != "" {
		query += " AND t.TABLE_SCHEMA = @p1"
		args = append(args, schema)
	}
	query += " ORDER BY t.TABLE_SCHEMA, t.TABLE_NAME"
	return query, args
}

func (a *mssqlAdapter) DescribeTableQuery(schema, table string) (string, []interface{}) {
	query := `
	SELECT
		c.COLUMN_NAME AS column_name,
		c.DATA_TYPE AS data_type,
		c.CHARACTER_MAXIMUM_LENGTH AS max_length,
		c.NUMERIC_PRECISION AS numeric_precision,
		c.NUMERIC_SCALE AS numeric_scale,
		c.IS_NULLABLE AS is_nullable,
		c.COLUMN_DEFAULT AS column_default,
		CASE WHEN pk.COLUMN_NAME IS NOT NULL THEN 1 ELSE 0 END AS is_primary_key,
		CASE WHEN fk.COLUMN_NAME IS NOT NULL THEN 1 ELSE 0 END AS is_foreign_key
	FROM INFORMATION_SCHEMA.COLUMNS c
	LEFT JOIN (
		SELECT ku.TABLE_SCHEMA, ku.TABLE_NAME, ku.COLUMN_NAME
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		INNER JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE ku
			ON tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
			AND tc.CONSTRAINT_NAME = ku.CONSTRAINT_NAME
	) pk ON c.TABLE_SCHEMA = pk.TABLE_SCHEMA
		AND c.TABLE_NAME = pk.TABLE_NAME
		AND c.COLUMN_NAME = pk.COLUMN_NAME
	LEFT JOIN (
		SELECT ku.TABLE_SCHEMA, ku.TABLE_NAME, ku.COLUMN_NAME
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		INNER JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE ku
			ON tc.CONSTRAINT_TYPE = 'FOREIGN KEY'
			AND tc.CONSTRAINT_NAME = ku.CONSTRAINT_NAME
	) fk ON c.TABLE_SCHEMA = fk.TABLE_SCHEMA
		AND c.TABLE_NAME = fk.TABLE_NAME
		AND c.COLUMN_NAME = fk.COLUMN_NAME
	WHERE c.TABLE_NAME = @p1 AND c.TABLE_SCHEMA = @p2
	ORDER BY c.ORDINAL_POSITION`
	return query, []interface{}{table, schema}
}

func (a *mssqlAdapter) ListIndexesQuery(schema, table string) (string, []interface{}) {
	query := `
	SELECT
		i.name AS index_name,
		t.name AS table_name,
		i.is_unique,
		i.is_primary_key,
		i.type_desc AS index_type,
		STRING_AGG(c.name, ', ') WITHIN GROUP (ORDER BY ic.key_ordinal) AS columns
	FROM sys.indexes i
	INNER JOIN sys.tables t ON i.object_id = t.object_id
	INNER JOIN sys.schemas s ON t.schema_id = s.schema_id
	INNER JOIN sys.index_columns ic ON i.object_id = ic.object_id AND i.index_id = ic.index_id
	INNER JOIN sys.columns c ON ic.object_id = c.object_id AND ic.column_id = c.column_id
	WHERE t.name = @p1 AND s.name = @p2 AND i.name IS NOT NULL
	GROUP BY i.name, t.name, i.is_unique, i.is_primary_key, i.type_desc
	ORDER BY i.name`
	return query, []interface{}{table, schema}
}

func (a *mssqlAdapter) ListViewsQuery() (string, []interface{}) {
	return `
	SELECT
		TABLE_SCHEMA AS schema_name,
		TABLE_NAME AS view_name
	FROM INFORMATION_SCHEMA.VIEWS
	ORDER BY TABLE_SCHEMA, TABLE_NAME`, nil
}

func (a *mssqlAdapter) ListProceduresQuery() (string, []interface{}) {
	return `
	SELECT
		ROUTINE_SCHEMA AS schema_name,
		ROUTINE_NAME AS procedure_name,
		ROUTINE_TYPE AS routine_type,
		CREATED AS created,
		LAST_ALTERED AS last_altered
	FROM INFORMATION_SCHEMA.ROUTINES
	WHERE ROUTINE_TYPE = 'PROCEDURE'
	ORDER BY ROUTINE_SCHEMA, ROUTINE_NAME`, nil
}

func (a *mssqlAdapter) ListFunctionsQuery() (string, []interface{}) {
	return `
	SELECT
		ROUTINE_SCHEMA AS schema_name,
		ROUTINE_NAME AS function_name,
		ROUTINE_TYPE AS routine_type,
		DATA_TYPE AS return_type,
		CREATED AS created,
		LAST_ALTERED AS last_altered
	FROM INFORMATION_SCHEMA.ROUTINES
	WHERE ROUTINE_TYPE = 'FUNCTION'
	ORDER BY ROUTINE_SCHEMA, ROUTINE_NAME`, nil
}

func (a *mssqlAdapter) CheckConstraintsQuery(schema, table string) (string, []interface{}) {
	query := `
	SELECT
		tc.CONSTRAINT_NAME AS constraint_name,
		tc.CONSTRAINT_TYPE AS constraint_type,
		kcu.COLUMN_NAME AS column_name,
		CASE
			WHEN tc.CONSTRAINT_TYPE = 'FOREIGN KEY' THEN
				ccu.TABLE_SCHEMA + '.' + ccu.TABLE_NAME + '.' + ccu.COLUMN_NAME
			ELSE NULL
		END AS references_column
	FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
	LEFT JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
		ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
	LEFT JOIN INFORMATION_SCHEMA.CONSTRAINT_COLUMN_USAGE ccu
		ON tc.CONSTRAINT_NAME = ccu.CONSTRAINT_NAME
	WHERE tc.TABLE_NAME = @p1 AND tc.TABLE_SCHEMA = @p2
	ORDER BY tc.CONSTRAINT_TYPE, tc.CONSTRAINT_NAME`
	return query, []interface{}{table, schema}
}

func (a *mssqlAdapter) TableDataQuery(schema, table string, limit, offset int) (string, []interface{}) {
	query := fmt.Sprintf(`SELECT * FROM %s.%s ORDER BY (SELECT NULL) OFFSET @p1 ROWS FETCH NEXT @p2 ROWS ONLY`,
		a.QuoteIdent(schema), a.QuoteIdent(table))
	return query, []interface{}{offset, limit}
}

var selectPrefix = regexp.MustCompile(`(?i)^\s*SELECT\s`)

func (a *mssqlAdapter) SelectWithLimit(query string, limit int) string {
	upper := strings.ToUpper(query)
	if strings.Contains(upper, " TOP ") || strings.Contains(upper, "FETCH NEXT") {
		return query
	}
	if loc := selectPrefix.FindStringIndex(query); loc != nil {
		return query[:loc[1]] + fmt.Sprintf("TOP %d ", limit) + query[loc[1]:]
	}
	return query
}
