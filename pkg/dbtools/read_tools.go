package dbtools

import (
	"context"
	"encoding/json"

	"github.com/dbmcp/sql-gateway/pkg/tools"
)

// schemaDetailLimit caps how many tables get_database_schema describes in
// full; beyond it only names are listed.
const schemaDetailLimit = 10

var (
	schemaOnlyInput = json.RawMessage(`{
		"type": "object",
		"properties": {
			"schema": {"type": "string", "description": "Schema name (defaults to the dialect default)"}
		}
	}`)

	tableInput = json.RawMessage(`{
		"type": "object",
		"properties": {
			"table": {"type": "string", "description": "Table name"},
			"schema": {"type": "string", "description": "Schema name (defaults to the dialect default)"}
		},
		"required": ["table"]
	}`)

	noInput = json.RawMessage(`{"type": "object", "properties": {}}`)

	selectInput = json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "SELECT statement to execute"},
			"params": {"type": "array", "description": "Positional bind parameters"},
			"limit": {"type": "integer", "description": "Maximum rows to return (default the server row cap)"}
		},
		"required": ["query"]
	}`)

	tableDataInput = json.RawMessage(`{
		"type": "object",
		"properties": {
			"table": {"type": "string", "description": "Table name"},
			"schema": {"type": "string", "description": "Schema name (defaults to the dialect default)"},
			"limit": {"type": "integer", "description": "Maximum rows to return (default 100)"},
			"offset": {"type": "integer", "description": "Rows to skip (default 0)"}
		},
		"required": ["table"]
	}`)
)

func (e *Executor) registerReadTools(r *tools.Registry) {
	register := func(name, desc string, schema json.RawMessage, h tools.Handler) {
		r.Register(&tools.Tool{Name: name, Description: desc, InputSchema: schema, ReadOnly: true, Handler: h})
	}

	register("list_tables", "List tables in the database with row counts", schemaOnlyInput, e.handleListTables)
	register("describe_table", "Describe the columns of a table including keys and defaults", tableInput, e.handleDescribeTable)
	register("list_columns", "List column names and types of a table", tableInput, e.handleListColumns)
	register("list_indexes", "List the indexes defined on a table", tableInput, e.handleListIndexes)
	register("list_views", "List views in the database", noInput, e.handleListViews)
	register("list_procedures", "List stored procedures in the database", noInput, e.handleListProcedures)
	register("list_functions", "List user-defined functions in the database", noInput, e.handleListFunctions)
	register("execute_select", "Execute a SELECT query with optional bind parameters", selectInput, e.handleExecuteSelect)
	register("get_table_data", "Page through the rows of a table", tableDataInput, e.handleGetTableData)
	register("get_database_schema", "Summarize the database schema: tables, columns and views", noInput, e.handleGetDatabaseSchema)
	register("check_constraints", "List the constraints defined on a table", tableInput, e.handleCheckConstraints)
}

func (e *Executor) handleListTables(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	schema, err := e.schemaArg(args)
	if err != nil {
		return nil, err
	}
	query, qargs := e.adapter.ListTablesQuery(schema)
	return e.queryRows(ctx, query, qargs, e.maxRows)
}

func (e *Executor) handleDescribeTable(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	table, err := tableArg(args)
	if err != nil {
		return nil, err
	}
	schema, err := e.schemaArg(args)
	if err != nil {
		return nil, err
	}
	query, qargs := e.adapter.DescribeTableQuery(schema, table)
	return e.queryRows(ctx, query, qargs, e.maxRows)
}

func (e *Executor) handleListColumns(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	result, err := e.handleDescribeTable(ctx, args)
	if err != nil {
		return nil, err
	}
	full := result.(*RowSet)

	// Same catalog query as describe_table, projected down to the
	// essentials.
	rs := &RowSet{
		Columns: []string{"column_name", "data_type", "is_nullable"},
		Rows:    []map[string]interface{}{},
	}
	for _, row := range full.Rows {
		rs.Rows = append(rs.Rows, map[string]interface{}{
			"column_name": row["column_name"],
			"data_type":   row["data_type"],
			"is_nullable": row["is_nullable"],
		})
	}
	rs.RowCount = len(rs.Rows)
	return rs, nil
}

func (e *Executor) handleListIndexes(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	table, err := tableArg(args)
	if err != nil {
		return nil, err
	}
	schema, err := e.schemaArg(args)
	if err != nil {
		return nil, err
	}
	query, qargs := e.adapter.ListIndexesQuery(schema, table)
	return e.queryRows(ctx, query, qargs, e.maxRows)
}

func (e *Executor) handleListViews(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	query, qargs := e.adapter.ListViewsQuery()
	return e.queryRows(ctx, query, qargs, e.maxRows)
}

func (e *Executor) handleListProcedures(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	query, qargs := e.adapter.ListProceduresQuery()
	return e.queryRows(ctx, query, qargs, e.maxRows)
}

func (e *Executor) handleListFunctions(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	query, qargs := e.adapter.ListFunctionsQuery()
	return e.queryRows(ctx, query, qargs, e.maxRows)
}

func (e *Executor) handleExecuteSelect(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	query, err := stringParam(args, "query")
	if err != nil {
		return nil, err
	}
	params, err := arrayParam(args, "params")
	if err != nil {
		return nil, err
	}
	if err := e.validator.ValidateReadOnly(query, len(params)); err != nil {
		return nil, tools.InvalidQuery("%v", err)
	}
	limit, err := optionalIntParam(args, "limit", e.maxRows)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, tools.InvalidArgument("limit must be positive, got %d", limit)
	}
	if limit > e.maxRows {
		limit = e.maxRows
	}

	capped := e.adapter.SelectWithLimit(query, limit+1)
	rs, err := e.queryRows(ctx, capped, params, limit)
	if err != nil {
		return nil, err
	}
	rs.Truncate(limit)
	return rs, nil
}

func (e *Executor) handleGetTableData(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	table, err := tableArg(args)
	if err != nil {
		return nil, err
	}
	schema, err := e.schemaArg(args)
	if err != nil {
		return nil, err
	}
	limit, err := optionalIntParam(args, "limit", 100)
	if err != nil {
		return nil, err
	}
	offset, err := optionalIntParam(args, "offset", 0)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, tools.InvalidArgument("limit must be positive, got %d", limit)
	}
	if offset < 0 {
		return nil, tools.InvalidArgument("offset must not be negative, got %d", offset)
	}
	if limit > e.maxRows {
		limit = e.maxRows
	}

	query, qargs := e.adapter.TableDataQuery(schema, table, limit, offset)
	return e.queryRows(ctx, query, qargs, limit)
}

func (e *Executor) handleGetDatabaseSchema(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	schema := e.adapter.DefaultSchema()

	query, qargs := e.adapter.ListTablesQuery(schema)
	tablesSet, err := e.queryRows(ctx, query, qargs, e.maxRows)
	if err != nil {
		return nil, err
	}

	query, qargs = e.adapter.ListViewsQuery()
	viewsSet, err := e.queryRows(ctx, query, qargs, e.maxRows)
	if err != nil {
		return nil, err
	}

	// Full column detail only for the first few tables so the summary
	// stays a summary on large databases.
	detail := map[string]interface{}{}
	for i, row := range tablesSet.Rows {
		if i >= schemaDetailLimit {
			break
		}
		name, _ := row["table_name"].(string)
		if name == "" {
			continue
		}
		tq, targs := e.adapter.DescribeTableQuery(schema, name)
		cols, err := e.queryRows(ctx, tq, targs, e.maxRows)
		if err != nil {
			return nil, err
		}
		detail[name] = cols.Rows
	}

	return map[string]interface{}{
		"table_count": tablesSet.RowCount,
		"tables":      tablesSet.Rows,
		"view_count":  viewsSet.RowCount,
		"views":       viewsSet.Rows,
		"columns":     detail,
	}, nil
}

func (e *Executor) handleCheckConstraints(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	table, err := tableArg(args)
	if err != nil {
		return nil, err
	}
	schema, err := e.schemaArg(args)
	if err != nil {
		return nil, err
	}
	query, qargs := e.adapter.CheckConstraintsQuery(schema, table)
	return e.queryRows(ctx, query, qargs, e.maxRows)
}
