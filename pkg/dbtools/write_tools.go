package dbtools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dbmcp/sql-gateway/internal/validate"
	"github.com/dbmcp/sql-gateway/pkg/tools"
)

var (
	whereClause    = regexp.MustCompile(`(?i)(?:^|[^\w])WHERE(?:[^\w]|$)`)
	updateOrDelete = regexp.MustCompile(`(?i)(?:^|[^\w])(UPDATE|DELETE)(?:[^\w]|$)`)
)

var (
	queryInput = json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "SQL statement to execute"},
			"params": {"type": "array", "description": "Positional bind parameters"}
		},
		"required": ["query"]
	}`)

	createTableInput = json.RawMessage(`{
		"type": "object",
		"properties": {
			"table": {"type": "string", "description": "Name of the table to create"},
			"schema": {"type": "string", "description": "Schema name (defaults to the dialect default)"},
			"columns": {
				"type": "array",
				"description": "Column definitions",
				"items": {
					"type": "object",
					"properties": {
						"name": {"type": "string"},
						"type": {"type": "string"},
						"nullable": {"type": "boolean"},
						"primary_key": {"type": "boolean"}
					},
					"required": ["name", "type"]
				}
			}
		},
		"required": ["table", "columns"]
	}`)

	alterTableInput = json.RawMessage(`{
		"type": "object",
		"properties": {
			"table": {"type": "string"},
			"schema": {"type": "string"},
			"operation": {"type": "string", "enum": ["add_column", "drop_column", "alter_column"]},
			"column": {"type": "string"},
			"column_type": {"type": "string", "description": "Required for add_column and alter_column"}
		},
		"required": ["table", "operation", "column"]
	}`)

	dropTableInput = json.RawMessage(`{
		"type": "object",
		"properties": {
			"table": {"type": "string"},
			"schema": {"type": "string"},
			"confirm": {"type": "boolean", "description": "Must be true to drop the table"}
		},
		"required": ["table", "confirm"]
	}`)

	insertDataInput = json.RawMessage(`{
		"type": "object",
		"properties": {
			"table": {"type": "string"},
			"schema": {"type": "string"},
			"data": {"type": "array", "description": "Rows to insert, each an object keyed by column name"}
		},
		"required": ["table", "data"]
	}`)

	updateDataInput = json.RawMessage(`{
		"type": "object",
		"properties": {
			"table": {"type": "string"},
			"schema": {"type": "string"},
			"data": {"type": "object", "description": "Column values to set"},
			"where": {"type": "string", "description": "WHERE clause without the WHERE keyword"},
			"params": {"type": "array", "description": "Bind parameters for the WHERE clause"}
		},
		"required": ["table", "data", "where"]
	}`)

	deleteDataInput = json.RawMessage(`{
		"type": "object",
		"properties": {
			"table": {"type": "string"},
			"schema": {"type": "string"},
			"where": {"type": "string", "description": "WHERE clause without the WHERE keyword"},
			"params": {"type": "array", "description": "Bind parameters for the WHERE clause"}
		},
		"required": ["table", "where"]
	}`)

	createIndexInput = json.RawMessage(`{
		"type": "object",
		"properties": {
			"index": {"type": "string"},
			"table": {"type": "string"},
			"schema": {"type": "string"},
			"columns": {"type": "array", "items": {"type": "string"}},
			"unique": {"type": "boolean"}
		},
		"required": ["index", "table", "columns"]
	}`)

	dropIndexInput = json.RawMessage(`{
		"type": "object",
		"properties": {
			"index": {"type": "string"},
			"table": {"type": "string", "description": "Required for SQL Server and MySQL"},
			"schema": {"type": "string"}
		},
		"required": ["index"]
	}`)

	executeProcedureInput = json.RawMessage(`{
		"type": "object",
		"properties": {
			"procedure": {"type": "string"},
			"schema": {"type": "string"},
			"params": {"type": "array", "description": "Positional procedure arguments"}
		},
		"required": ["procedure"]
	}`)

	backupTableInput = json.RawMessage(`{
		"type": "object",
		"properties": {
			"table": {"type": "string"},
			"schema": {"type": "string"},
			"backup_name": {"type": "string", "description": "Name for the backup table (default <table>_backup_<timestamp>)"}
		},
		"required": ["table"]
	}`)
)

func (e *Executor) registerWriteTools(r *tools.Registry) {
	register := func(name, desc string, schema json.RawMessage, h tools.Handler) {
		r.Register(&tools.Tool{Name: name, Description: desc, InputSchema: schema, ReadOnly: false, Handler: h})
	}

	register("execute_query", "Execute an arbitrary SQL statement with optional bind parameters", queryInput, e.handleExecuteQuery)
	register("create_table", "Create a table from a list of column definitions", createTableInput, e.handleCreateTable)
	register("alter_table", "Add, drop or alter a column on a table", alterTableInput, e.handleAlterTable)
	register("drop_table", "Drop a table (requires confirm)", dropTableInput, e.handleDropTable)
	register("insert_data", "Insert one or more rows into a table", insertDataInput, e.handleInsertData)
	register("update_data", "Update rows matching a WHERE clause", updateDataInput, e.handleUpdateData)
	register("delete_data", "Delete rows matching a WHERE clause", deleteDataInput, e.handleDeleteData)
	register("create_index", "Create an index on one or more columns", createIndexInput, e.handleCreateIndex)
	register("drop_index", "Drop an index", dropIndexInput, e.handleDropIndex)
	register("execute_procedure", "Execute a stored procedure with positional arguments", executeProcedureInput, e.handleExecuteProcedure)
	register("backup_table", "Copy a table into a backup table", backupTableInput, e.handleBackupTable)
}

// qualify renders a schema-qualified, quoted table name.
func (e *Executor) qualify(schema, table string) string {
	quoted := e.adapter.QuoteIdent(table)
	if schema == "" {
		return quoted
	}
	return e.adapter.QuoteIdent(schema) + "." + quoted
}

func (e *Executor) handleExecuteQuery(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	query, err := stringParam(args, "query")
	if err != nil {
		return nil, err
	}
	params, err := arrayParam(args, "params")
	if err != nil {
		return nil, err
	}
	if err := e.validator.ValidateStatement(query, len(params)); err != nil {
		return nil, tools.InvalidQuery("%v", err)
	}

	// Keyword scanning runs on literal-stripped text so quoted strings
	// cannot hide or fake a WHERE clause.
	cleaned := validate.StripLiterals(query)
	switch kw := validate.LeadingKeyword(query); kw {
	case "SELECT":
		capped := e.adapter.SelectWithLimit(query, e.maxRows+1)
		return e.queryRows(ctx, capped, params, e.maxRows)
	case "UPDATE", "DELETE":
		if !whereClause.MatchString(cleaned) {
			return nil, tools.InvalidQuery("%s without a WHERE clause is not permitted", kw)
		}
	case "WITH":
		// CTE-wrapped writes still need the WHERE guard.
		if m := updateOrDelete.FindStringSubmatch(cleaned); m != nil && !whereClause.MatchString(cleaned) {
			return nil, tools.InvalidQuery("%s without a WHERE clause is not permitted", strings.ToUpper(m[1]))
		}
	}

	affected, err := e.execStmt(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"rows_affected": affected}, nil
}

func (e *Executor) handleCreateTable(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	table, err := tableArg(args)
	if err != nil {
		return nil, err
	}
	schema, err := e.schemaArg(args)
	if err != nil {
		return nil, err
	}
	columns, err := arrayParam(args, "columns")
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, tools.InvalidArgument("columns must not be empty")
	}

	defs := make([]string, 0, len(columns))
	for i, raw := range columns {
		col, ok := raw.(map[string]interface{})
		if !ok {
			return nil, tools.InvalidArgument("columns[%d] must be an object", i)
		}
		name, err := stringParam(col, "name")
		if err != nil {
			return nil, err
		}
		name, err = sanitizeIdentifier(name, "column")
		if err != nil {
			return nil, err
		}
		typeExpr, err := stringParam(col, "type")
		if err != nil {
			return nil, err
		}
		typeExpr, err = sanitizeType(typeExpr)
		if err != nil {
			return nil, err
		}

		def := e.adapter.QuoteIdent(name) + " " + typeExpr
		if nullable, _ := optionalBoolParam(col, "nullable", true); !nullable {
			def += " NOT NULL"
		}
		if pk, _ := optionalBoolParam(col, "primary_key", false); pk {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
	}

	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", e.qualify(schema, table), strings.Join(defs, ", "))
	if err := e.validator.ValidateStatement(stmt, 0, "CREATE"); err != nil {
		return nil, tools.InvalidQuery("%v", err)
	}
	if _, err := e.execStmt(ctx, stmt, nil); err != nil {
		return nil, err
	}
	return map[string]interface{}{"table": table, "created": true}, nil
}

func (e *Executor) handleAlterTable(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	table, err := tableArg(args)
	if err != nil {
		return nil, err
	}
	schema, err := e.schemaArg(args)
	if err != nil {
		return nil, err
	}
	operation, err := stringParam(args, "operation")
	if err != nil {
		return nil, err
	}
	column, err := stringParam(args, "column")
	if err != nil {
		return nil, err
	}
	column, err = sanitizeIdentifier(column, "column")
	if err != nil {
		return nil, err
	}

	target := e.qualify(schema, table)
	quotedCol := e.adapter.QuoteIdent(column)

	var clause string
	switch operation {
	case "add_column":
		typeExpr, err := e.columnTypeArg(args)
		if err != nil {
			return nil, err
		}
		if e.dbType == "mssql" || e.dbType == "sqlserver" {
			clause = fmt.Sprintf("ADD %s %s", quotedCol, typeExpr)
		} else {
			clause = fmt.Sprintf("ADD COLUMN %s %s", quotedCol, typeExpr)
		}
	case "drop_column":
		clause = fmt.Sprintf("DROP COLUMN %s", quotedCol)
	case "alter_column":
		typeExpr, err := e.columnTypeArg(args)
		if err != nil {
			return nil, err
		}
		switch e.dbType {
		case "mssql", "sqlserver":
			clause = fmt.Sprintf("ALTER COLUMN %s %s", quotedCol, typeExpr)
		case "mysql":
			clause = fmt.Sprintf("MODIFY COLUMN %s %s", quotedCol, typeExpr)
		case "postgres":
			clause = fmt.Sprintf("ALTER COLUMN %s TYPE %s", quotedCol, typeExpr)
		default:
			return nil, tools.InvalidArgument("alter_column is not supported for %s", e.dbType)
		}
	default:
		return nil, tools.InvalidArgument("unknown operation: %s", operation)
	}

	stmt := fmt.Sprintf("ALTER TABLE %s %s", target, clause)
	if err := e.validator.ValidateStatement(stmt, 0, "ALTER"); err != nil {
		return nil, tools.InvalidQuery("%v", err)
	}
	if _, err := e.execStmt(ctx, stmt, nil); err != nil {
		return nil, err
	}
	return map[string]interface{}{"table": table, "operation": operation, "column": column}, nil
}

func (e *Executor) columnTypeArg(args map[string]interface{}) (string, error) {
	typeExpr, err := stringParam(args, "column_type")
	if err != nil {
		return "", err
	}
	return sanitizeType(typeExpr)
}

func (e *Executor) handleDropTable(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	table, err := tableArg(args)
	if err != nil {
		return nil, err
	}
	schema, err := e.schemaArg(args)
	if err != nil {
		return nil, err
	}
	confirm, err := optionalBoolParam(args, "confirm", false)
	if err != nil {
		return nil, err
	}
	if !confirm {
		return nil, tools.InvalidArgument("drop_table requires confirm=true")
	}

	stmt := fmt.Sprintf("DROP TABLE %s", e.qualify(schema, table))
	if err := e.validator.ValidateStatement(stmt, 0, "DROP"); err != nil {
		return nil, tools.InvalidQuery("%v", err)
	}
	if _, err := e.execStmt(ctx, stmt, nil); err != nil {
		return nil, err
	}
	return map[string]interface{}{"table": table, "dropped": true}, nil
}

func (e *Executor) handleInsertData(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	table, err := tableArg(args)
	if err != nil {
		return nil, err
	}
	schema, err := e.schemaArg(args)
	if err != nil {
		return nil, err
	}
	data, err := arrayParam(args, "data")
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, tools.InvalidArgument("data must not be empty")
	}

	target := e.qualify(schema, table)
	inserted := 0
	var rowErrors []map[string]interface{}

	// Rows are inserted one at a time so a bad row reports its index
	// without aborting the batch.
	for i, raw := range data {
		row, ok := raw.(map[string]interface{})
		if !ok {
			rowErrors = append(rowErrors, map[string]interface{}{"row": i, "error": "row must be an object"})
			continue
		}
		stmt, values, err := e.buildInsert(target, row)
		if err != nil {
			rowErrors = append(rowErrors, map[string]interface{}{"row": i, "error": err.Error()})
			continue
		}
		if _, err := e.execStmt(ctx, stmt, values); err != nil {
			rowErrors = append(rowErrors, map[string]interface{}{"row": i, "error": tools.AsError(err).Message})
			continue
		}
		inserted++
	}

	result := map[string]interface{}{
		"table":     table,
		"inserted":  inserted,
		"row_count": len(data),
	}
	if len(rowErrors) > 0 {
		result["errors"] = rowErrors
	}
	return result, nil
}

func (e *Executor) buildInsert(target string, row map[string]interface{}) (string, []interface{}, error) {
	if len(row) == 0 {
		return "", nil, fmt.Errorf("row has no columns")
	}

	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	sort.Strings(names)

	cols := make([]string, 0, len(names))
	placeholders := make([]string, 0, len(names))
	values := make([]interface{}, 0, len(names))
	for i, name := range names {
		cleaned, err := sanitizeIdentifier(name, "column")
		if err != nil {
			return "", nil, fmt.Errorf("invalid column name: %q", name)
		}
		cols = append(cols, e.adapter.QuoteIdent(cleaned))
		placeholders = append(placeholders, e.adapter.Placeholder(i+1))
		values = append(values, row[name])
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		target, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	return stmt, values, nil
}

func (e *Executor) handleUpdateData(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	table, err := tableArg(args)
	if err != nil {
		return nil, err
	}
	schema, err := e.schemaArg(args)
	if err != nil {
		return nil, err
	}
	data, err := mapParam(args, "data")
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, tools.InvalidArgument("data must not be empty")
	}
	where, err := stringParam(args, "where")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(where) == "" {
		return nil, tools.InvalidQuery("UPDATE without a WHERE clause is not permitted")
	}
	params, err := arrayParam(args, "params")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names))
	values := make([]interface{}, 0, len(names)+len(params))
	for i, name := range names {
		cleaned, err := sanitizeIdentifier(name, "column")
		if err != nil {
			return nil, err
		}
		sets = append(sets, fmt.Sprintf("%s = %s", e.adapter.QuoteIdent(cleaned), e.adapter.Placeholder(i+1)))
		values = append(values, data[name])
	}

	// WHERE placeholders continue the numbering after the SET values.
	where = renumberPlaceholders(e, where, len(names))
	values = append(values, params...)

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s", e.qualify(schema, table), strings.Join(sets, ", "), where)
	if err := e.validator.ValidateStatement(stmt, len(values), "UPDATE"); err != nil {
		return nil, tools.InvalidQuery("%v", err)
	}

	affected, err := e.execStmt(ctx, stmt, values)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"table": table, "rows_affected": affected}, nil
}

// renumberPlaceholders shifts positional markers in a user-supplied WHERE
// fragment for dialects with numbered placeholders. Question-mark
// dialects pass through untouched.
func renumberPlaceholders(e *Executor, where string, offset int) string {
	if e.adapter.Placeholder(1) == "?" {
		return where
	}
	n := offset
	return placeholderMarker.ReplaceAllStringFunc(where, func(string) string {
		n++
		return e.adapter.Placeholder(n)
	})
}

// placeholderMarker matches the dialect-neutral ? marker clients use in
// WHERE fragments.
var placeholderMarker = regexp.MustCompile(`\?`)

func (e *Executor) handleDeleteData(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	table, err := tableArg(args)
	if err != nil {
		return nil, err
	}
	schema, err := e.schemaArg(args)
	if err != nil {
		return nil, err
	}
	where, err := stringParam(args, "where")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(where) == "" {
		return nil, tools.InvalidQuery("DELETE without a WHERE clause is not permitted")
	}
	params, err := arrayParam(args, "params")
	if err != nil {
		return nil, err
	}

	where = renumberPlaceholders(e, where, 0)
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s", e.qualify(schema, table), where)
	if err := e.validator.ValidateStatement(stmt, len(params), "DELETE"); err != nil {
		return nil, tools.InvalidQuery("%v", err)
	}

	affected, err := e.execStmt(ctx, stmt, params)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"table": table, "rows_affected": affected}, nil
}

func (e *Executor) handleCreateIndex(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	index, err := stringParam(args, "index")
	if err != nil {
		return nil, err
	}
	index, err = sanitizeIdentifier(index, "index")
	if err != nil {
		return nil, err
	}
	table, err := tableArg(args)
	if err != nil {
		return nil, err
	}
	schema, err := e.schemaArg(args)
	if err != nil {
		return nil, err
	}
	rawCols, err := arrayParam(args, "columns")
	if err != nil {
		return nil, err
	}
	if len(rawCols) == 0 {
		return nil, tools.InvalidArgument("columns must not be empty")
	}
	unique, err := optionalBoolParam(args, "unique", false)
	if err != nil {
		return nil, err
	}

	cols := make([]string, 0, len(rawCols))
	for i, raw := range rawCols {
		name, ok := raw.(string)
		if !ok {
			return nil, tools.InvalidArgument("columns[%d] must be a string", i)
		}
		cleaned, err := sanitizeIdentifier(name, "column")
		if err != nil {
			return nil, err
		}
		cols = append(cols, e.adapter.QuoteIdent(cleaned))
	}

	uniqueKw := ""
	if unique {
		uniqueKw = "UNIQUE "
	}
	stmt := fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
		uniqueKw, e.adapter.QuoteIdent(index), e.qualify(schema, table), strings.Join(cols, ", "))
	if err := e.validator.ValidateStatement(stmt, 0, "CREATE"); err != nil {
		return nil, tools.InvalidQuery("%v", err)
	}
	if _, err := e.execStmt(ctx, stmt, nil); err != nil {
		return nil, err
	}
	return map[string]interface{}{"index": index, "table": table, "created": true}, nil
}

func (e *Executor) handleDropIndex(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	index, err := stringParam(args, "index")
	if err != nil {
		return nil, err
	}
	index, err = sanitizeIdentifier(index, "index")
	if err != nil {
		return nil, err
	}
	schema, err := e.schemaArg(args)
	if err != nil {
		return nil, err
	}

	var stmt string
	switch e.dbType {
	case "mssql", "sqlserver", "mysql":
		table, err := tableArg(args)
		if err != nil {
			return nil, err
		}
		stmt = fmt.Sprintf("DROP INDEX %s ON %s", e.adapter.QuoteIdent(index), e.qualify(schema, table))
	default:
		stmt = fmt.Sprintf("DROP INDEX %s", e.adapter.QuoteIdent(index))
	}

	if err := e.validator.ValidateStatement(stmt, 0, "DROP"); err != nil {
		return nil, tools.InvalidQuery("%v", err)
	}
	if _, err := e.execStmt(ctx, stmt, nil); err != nil {
		return nil, err
	}
	return map[string]interface{}{"index": index, "dropped": true}, nil
}

func (e *Executor) handleExecuteProcedure(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	procedure, err := stringParam(args, "procedure")
	if err != nil {
		return nil, err
	}
	procedure, err = sanitizeIdentifier(procedure, "procedure")
	if err != nil {
		return nil, err
	}
	schema, err := e.schemaArg(args)
	if err != nil {
		return nil, err
	}
	params, err := arrayParam(args, "params")
	if err != nil {
		return nil, err
	}

	placeholders := make([]string, len(params))
	for i := range params {
		placeholders[i] = e.adapter.Placeholder(i + 1)
	}
	argList := strings.Join(placeholders, ", ")

	var stmt string
	switch e.dbType {
	case "mssql", "sqlserver":
		stmt = fmt.Sprintf("EXEC %s %s", e.qualify(schema, procedure), argList)
	case "mysql", "postgres":
		stmt = fmt.Sprintf("CALL %s(%s)", e.qualify(schema, procedure), argList)
	default:
		return nil, tools.InvalidArgument("stored procedures are not supported for %s", e.dbType)
	}

	// Procedures may return a result set; run through the query path so
	// rows come back when there are any.
	return e.queryRows(ctx, strings.TrimSpace(stmt), params, e.maxRows)
}

func (e *Executor) handleBackupTable(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	table, err := tableArg(args)
	if err != nil {
		return nil, err
	}
	schema, err := e.schemaArg(args)
	if err != nil {
		return nil, err
	}
	backupName, err := optionalStringParam(args, "backup_name", "")
	if err != nil {
		return nil, err
	}
	if backupName == "" {
		backupName = fmt.Sprintf("%s_backup_%s", table, time.Now().Format("20060102150405"))
	}
	backupName, err = sanitizeIdentifier(backupName, "backup table")
	if err != nil {
		return nil, err
	}

	src := e.qualify(schema, table)
	dst := e.qualify(schema, backupName)

	var stmt string
	switch e.dbType {
	case "mssql", "sqlserver":
		stmt = fmt.Sprintf("SELECT * INTO %s FROM %s", dst, src)
	case "postgres":
		stmt = fmt.Sprintf("CREATE TABLE %s AS TABLE %s", dst, src)
	default:
		stmt = fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s", dst, src)
	}

	if err := e.validator.ValidateStatement(stmt, 0, "CREATE"); err != nil {
		return nil, tools.InvalidQuery("%v", err)
	}
	affected, err := e.execStmt(ctx, stmt, nil)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"table":        table,
		"backup_table": backupName,
		"rows_copied":  affected,
	}, nil
}
