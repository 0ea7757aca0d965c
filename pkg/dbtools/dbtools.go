// Package dbtools implements the database tool handlers. Every handler
// borrows a pooled connection, runs dialect SQL supplied by the adapter,
// and returns a JSON-friendly result or a classified error.
package dbtools

import (
	"context"
	"errors"
	"time"

	"github.com/dbmcp/sql-gateway/internal/validate"
	"github.com/dbmcp/sql-gateway/pkg/db"
	"github.com/dbmcp/sql-gateway/pkg/tools"
)

// Executor holds everything a tool handler needs to touch the database.
type Executor struct {
	pool         *db.Pool
	adapter      db.Adapter
	validator    *validate.Validator
	dbType       string
	maxRows      int
	queryTimeout time.Duration
}

// NewExecutor wires the handlers to a pool and dialect adapter. maxRows
// caps every result set; queryTimeout bounds each statement.
func NewExecutor(pool *db.Pool, adapter db.Adapter, validator *validate.Validator, dbType string, maxRows int, queryTimeout time.Duration) *Executor {
	return &Executor{
		pool:         pool,
		adapter:      adapter,
		validator:    validator,
		dbType:       dbType,
		maxRows:      maxRows,
		queryTimeout: queryTimeout,
	}
}

// RegisterAll registers every tool, read and write, on the registry. Mode
// enforcement happens in the dispatcher, not here.
func (e *Executor) RegisterAll(r *tools.Registry) {
	e.registerReadTools(r)
	e.registerWriteTools(r)
}

// queryRows runs a read query on a pooled connection and scans up to
// max+1 rows so the caller can detect truncation. An empty query string
// means the dialect has no such catalog; an empty set is returned.
func (e *Executor) queryRows(ctx context.Context, query string, args []interface{}, max int) (*RowSet, error) {
	if query == "" {
		return &RowSet{Columns: []string{}, Rows: []map[string]interface{}{}}, nil
	}

	lease, err := e.pool.Borrow(ctx)
	if err != nil {
		return nil, classifyBorrow(err)
	}
	defer lease.Release()

	qctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	readCap := 0
	if max > 0 {
		readCap = max + 1
	}

	rows, err := lease.Conn().QueryContext(qctx, query, args...)
	if err != nil {
		lease.Discard()
		return nil, tools.DatabaseError(err)
	}
	defer rows.Close()

	rs, err := rowsToSet(rows, readCap)
	if err != nil {
		lease.Discard()
		return nil, tools.DatabaseError(err)
	}
	return rs, nil
}

// execStmt runs a statement on a pooled connection and reports rows
// affected. Drivers without rows-affected support report zero.
func (e *Executor) execStmt(ctx context.Context, query string, args []interface{}) (int64, error) {
	lease, err := e.pool.Borrow(ctx)
	if err != nil {
		return 0, classifyBorrow(err)
	}
	defer lease.Release()

	qctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	result, err := lease.Conn().ExecContext(qctx, query, args...)
	if err != nil {
		lease.Discard()
		return 0, tools.DatabaseError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return affected, nil
}

func classifyBorrow(err error) error {
	if errors.Is(err, db.ErrPoolExhausted) {
		return tools.NewError(tools.CodePoolExhausted, "connection pool exhausted, try again later")
	}
	return tools.DatabaseError(err)
}

// schemaArg resolves the optional schema argument, sanitized, with the
// dialect default applied when absent.
func (e *Executor) schemaArg(args map[string]interface{}) (string, error) {
	schema, err := optionalStringParam(args, "schema", e.adapter.DefaultSchema())
	if err != nil {
		return "", err
	}
	if schema == "" {
		return "", nil
	}
	return sanitizeIdentifier(schema, "schema")
}

// tableArg resolves the required, sanitized table name argument. Both
// "table" and the older "table_name" key are accepted.
func tableArg(args map[string]interface{}) (string, error) {
	key := "table"
	if _, ok := args[key]; !ok {
		if _, ok := args["table_name"]; ok {
			key = "table_name"
		}
	}
	table, err := stringParam(args, key)
	if err != nil {
		return "", err
	}
	return sanitizeIdentifier(table, "table")
}
