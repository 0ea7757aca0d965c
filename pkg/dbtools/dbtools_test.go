package dbtools

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbmcp/sql-gateway/internal/validate"
	"github.com/dbmcp/sql-gateway/pkg/db"
	"github.com/dbmcp/sql-gateway/pkg/tools"
)

// newTestExecutor runs the real data path against an in-memory sqlite
// database shared across the pool's connections.
func newTestExecutor(t *testing.T, maxRows int) (*Executor, db.Database) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	d, err := db.NewDatabase(db.Config{
		Type:        "sqlite",
		Name:        dsn,
		PoolSize:    2,
		MaxOverflow: 2,
	})
	require.NoError(t, err)
	require.NoError(t, d.Connect())
	t.Cleanup(func() { d.Close() })

	adapter, err := db.AdapterFor("sqlite")
	require.NoError(t, err)

	pool := db.NewPool(d, time.Second)
	validator := &validate.Validator{MaxLength: 10000, MaxParams: 100}
	return NewExecutor(pool, adapter, validator, "sqlite", maxRows, 5*time.Second), d
}

func seedUsers(t *testing.T, d db.Database, n int) {
	t.Helper()
	ctx := context.Background()

	_, err := d.Exec(ctx, `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, age INTEGER)`)
	require.NoError(t, err)
	for i := 1; i <= n; i++ {
		_, err := d.Exec(ctx, `INSERT INTO users (id, name, age) VALUES (?, ?, ?)`, i, fmt.Sprintf("user%d", i), 20+i)
		require.NoError(t, err)
	}
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return tools.AsError(err).Code
}

func TestRegisterAll(t *testing.T) {
	e, _ := newTestExecutor(t, 100)
	reg := tools.NewRegistry()
	e.RegisterAll(reg)

	all := reg.List()
	assert.Len(t, all, 22)

	readOnly := 0
	for _, tool := range all {
		assert.NotEmpty(t, tool.Description)
		assert.NotEmpty(t, tool.InputSchema)
		if tool.ReadOnly {
			readOnly++
		}
	}
	assert.Equal(t, 11, readOnly)
}

func TestListTables(t *testing.T) {
	e, d := newTestExecutor(t, 100)
	seedUsers(t, d, 1)
	_, err := d.Exec(context.Background(), `CREATE TABLE orders (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)

	result, err := e.handleListTables(context.Background(), map[string]interface{}{})
	require.NoError(t, err)

	rs := result.(*RowSet)
	names := make([]string, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		names = append(names, row["table_name"].(string))
	}
	assert.ElementsMatch(t, []string{"users", "orders"}, names)
}

func TestDescribeTableAndColumns(t *testing.T) {
	e, d := newTestExecutor(t, 100)
	seedUsers(t, d, 0)

	result, err := e.handleDescribeTable(context.Background(), map[string]interface{}{"table": "users"})
	require.NoError(t, err)
	rs := result.(*RowSet)
	require.Len(t, rs.Rows, 3)
	assert.Equal(t, "id", rs.Rows[0]["column_name"])
	assert.Equal(t, "NO", rs.Rows[1]["is_nullable"])

	result, err = e.handleListColumns(context.Background(), map[string]interface{}{"table": "users"})
	require.NoError(t, err)
	cols := result.(*RowSet)
	require.Len(t, cols.Rows, 3)
	assert.NotContains(t, cols.Rows[0], "column_default")
}

func TestExecuteSelect(t *testing.T) {
	e, d := newTestExecutor(t, 100)
	seedUsers(t, d, 3)

	result, err := e.handleExecuteSelect(context.Background(), map[string]interface{}{
		"query":  "SELECT name FROM users WHERE age > ? ORDER BY id",
		"params": []interface{}{21},
	})
	require.NoError(t, err)

	rs := result.(*RowSet)
	assert.Equal(t, 2, rs.RowCount)
	assert.Equal(t, "user2", rs.Rows[0]["name"])
}

func TestTableNameArgumentAlias(t *testing.T) {
	e, d := newTestExecutor(t, 100)
	seedUsers(t, d, 2)
	ctx := context.Background()

	// The older "table_name" key works everywhere "table" does.
	result, err := e.handleDescribeTable(ctx, map[string]interface{}{"table_name": "users"})
	require.NoError(t, err)
	assert.Equal(t, 3, result.(*RowSet).RowCount)

	result, err = e.handleGetTableData(ctx, map[string]interface{}{"table_name": "users", "limit": 1})
	require.NoError(t, err)
	assert.Len(t, result.(*RowSet).Rows, 1)

	// "table" wins when both keys are present.
	_, err = d.Exec(ctx, `CREATE TABLE empty_one (id INTEGER)`)
	require.NoError(t, err)
	result, err = e.handleGetTableData(ctx, map[string]interface{}{
		"table": "empty_one", "table_name": "users",
	})
	require.NoError(t, err)
	assert.Len(t, result.(*RowSet).Rows, 0)

	_, err = e.handleDescribeTable(ctx, map[string]interface{}{})
	assert.Equal(t, tools.CodeInvalidArgument, errCode(t, err))
}

func TestExecuteSelectRejectsWrites(t *testing.T) {
	e, d := newTestExecutor(t, 100)
	seedUsers(t, d, 1)

	_, err := e.handleExecuteSelect(context.Background(), map[string]interface{}{
		"query": "DELETE FROM users",
	})
	assert.Equal(t, tools.CodeInvalidQuery, errCode(t, err))

	// The data is untouched.
	result, err := e.handleExecuteSelect(context.Background(), map[string]interface{}{
		"query": "SELECT COUNT(*) AS c FROM users",
	})
	require.NoError(t, err)
	rs := result.(*RowSet)
	assert.EqualValues(t, 1, rs.Rows[0]["c"])
}

func TestExecuteSelectCapsRows(t *testing.T) {
	e, d := newTestExecutor(t, 3)
	seedUsers(t, d, 10)

	result, err := e.handleExecuteSelect(context.Background(), map[string]interface{}{
		"query": "SELECT * FROM users ORDER BY id",
	})
	require.NoError(t, err)

	rs := result.(*RowSet)
	assert.Len(t, rs.Rows, 3)
	assert.Equal(t, 3, rs.RowCount)
	assert.True(t, rs.Truncated)
}

func TestExecuteSelectLimit(t *testing.T) {
	e, d := newTestExecutor(t, 100)
	seedUsers(t, d, 5)
	ctx := context.Background()

	result, err := e.handleExecuteSelect(ctx, map[string]interface{}{
		"query": "SELECT id FROM users ORDER BY id",
		"limit": 2,
	})
	require.NoError(t, err)
	rs := result.(*RowSet)
	assert.Len(t, rs.Rows, 2)
	assert.True(t, rs.Truncated)
	assert.EqualValues(t, 1, rs.Rows[0]["id"])

	// A limit above the remaining rows leaves the set untouched.
	result, err = e.handleExecuteSelect(ctx, map[string]interface{}{
		"query": "SELECT id FROM users",
		"limit": 50,
	})
	require.NoError(t, err)
	rs = result.(*RowSet)
	assert.Len(t, rs.Rows, 5)
	assert.False(t, rs.Truncated)

	_, err = e.handleExecuteSelect(ctx, map[string]interface{}{
		"query": "SELECT id FROM users",
		"limit": 0,
	})
	assert.Equal(t, tools.CodeInvalidArgument, errCode(t, err))
}

func TestGetTableData(t *testing.T) {
	e, d := newTestExecutor(t, 100)
	seedUsers(t, d, 10)

	result, err := e.handleGetTableData(context.Background(), map[string]interface{}{
		"table": "users", "limit": 4, "offset": 4,
	})
	require.NoError(t, err)

	rs := result.(*RowSet)
	require.Len(t, rs.Rows, 4)
	assert.EqualValues(t, 5, rs.Rows[0]["id"])
}

func TestGetTableDataBounds(t *testing.T) {
	e, d := newTestExecutor(t, 5)
	seedUsers(t, d, 10)

	_, err := e.handleGetTableData(context.Background(), map[string]interface{}{
		"table": "users", "limit": 0,
	})
	assert.Equal(t, tools.CodeInvalidArgument, errCode(t, err))

	_, err = e.handleGetTableData(context.Background(), map[string]interface{}{
		"table": "users", "offset": -1,
	})
	assert.Equal(t, tools.CodeInvalidArgument, errCode(t, err))

	// Limit above the cap is clamped, not rejected.
	result, err := e.handleGetTableData(context.Background(), map[string]interface{}{
		"table": "users", "limit": 50,
	})
	require.NoError(t, err)
	assert.Len(t, result.(*RowSet).Rows, 5)
}

func TestGetDatabaseSchema(t *testing.T) {
	e, d := newTestExecutor(t, 100)
	seedUsers(t, d, 1)
	_, err := d.Exec(context.Background(), `CREATE VIEW adults AS SELECT * FROM users WHERE age >= 18`)
	require.NoError(t, err)

	result, err := e.handleGetDatabaseSchema(context.Background(), map[string]interface{}{})
	require.NoError(t, err)

	summary := result.(map[string]interface{})
	assert.Equal(t, 1, summary["table_count"])
	assert.Equal(t, 1, summary["view_count"])
	detail := summary["columns"].(map[string]interface{})
	assert.Contains(t, detail, "users")
}

func TestListViewsProceduresFunctions(t *testing.T) {
	e, d := newTestExecutor(t, 100)
	seedUsers(t, d, 0)
	_, err := d.Exec(context.Background(), `CREATE VIEW names AS SELECT name FROM users`)
	require.NoError(t, err)

	result, err := e.handleListViews(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.(*RowSet).RowCount)

	// No routine catalogs in sqlite; empty result, not an error.
	result, err = e.handleListProcedures(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.(*RowSet).RowCount)

	result, err = e.handleListFunctions(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.(*RowSet).RowCount)
}

func TestCreateInsertUpdateDelete(t *testing.T) {
	e, _ := newTestExecutor(t, 100)
	ctx := context.Background()

	_, err := e.handleCreateTable(ctx, map[string]interface{}{
		"table": "items",
		"columns": []interface{}{
			map[string]interface{}{"name": "id", "type": "INTEGER", "primary_key": true},
			map[string]interface{}{"name": "label", "type": "TEXT", "nullable": false},
		},
	})
	require.NoError(t, err)

	result, err := e.handleInsertData(ctx, map[string]interface{}{
		"table": "items",
		"data": []interface{}{
			map[string]interface{}{"id": 1, "label": "first"},
			map[string]interface{}{"id": 2, "label": "second"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.(map[string]interface{})["inserted"])

	result, err = e.handleUpdateData(ctx, map[string]interface{}{
		"table":  "items",
		"data":   map[string]interface{}{"label": "renamed"},
		"where":  "id = ?",
		"params": []interface{}{1},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.(map[string]interface{})["rows_affected"])

	result, err = e.handleDeleteData(ctx, map[string]interface{}{
		"table":  "items",
		"where":  "id = ?",
		"params": []interface{}{2},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.(map[string]interface{})["rows_affected"])

	sel, err := e.handleExecuteSelect(ctx, map[string]interface{}{"query": "SELECT label FROM items"})
	require.NoError(t, err)
	rs := sel.(*RowSet)
	require.Len(t, rs.Rows, 1)
	assert.Equal(t, "renamed", rs.Rows[0]["label"])
}

func TestInsertDataCollectsRowErrors(t *testing.T) {
	e, d := newTestExecutor(t, 100)
	seedUsers(t, d, 0)

	result, err := e.handleInsertData(context.Background(), map[string]interface{}{
		"table": "users",
		"data": []interface{}{
			map[string]interface{}{"id": 1, "name": "ok"},
			map[string]interface{}{"id": 1, "name": "dup"}, // primary key conflict
			"not an object",
		},
	})
	require.NoError(t, err)

	out := result.(map[string]interface{})
	assert.Equal(t, 1, out["inserted"])
	assert.Equal(t, 3, out["row_count"])
	assert.Len(t, out["errors"], 2)
}

func TestDeleteRequiresWhere(t *testing.T) {
	e, d := newTestExecutor(t, 100)
	seedUsers(t, d, 2)

	_, err := e.handleDeleteData(context.Background(), map[string]interface{}{
		"table": "users", "where": "  ",
	})
	assert.Equal(t, tools.CodeInvalidQuery, errCode(t, err))

	_, err = e.handleDeleteData(context.Background(), map[string]interface{}{
		"table": "users",
	})
	assert.Equal(t, tools.CodeInvalidArgument, errCode(t, err))
}

func TestExecuteQuery(t *testing.T) {
	e, d := newTestExecutor(t, 100)
	seedUsers(t, d, 3)
	ctx := context.Background()

	result, err := e.handleExecuteQuery(ctx, map[string]interface{}{
		"query":  "UPDATE users SET age = ? WHERE id = ?",
		"params": []interface{}{99, 1},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.(map[string]interface{})["rows_affected"])

	// SELECT through execute_query returns rows.
	result, err = e.handleExecuteQuery(ctx, map[string]interface{}{
		"query": "SELECT age FROM users WHERE id = 1",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 99, result.(*RowSet).Rows[0]["age"])

	_, err = e.handleExecuteQuery(ctx, map[string]interface{}{"query": "DELETE FROM users"})
	assert.Equal(t, tools.CodeInvalidQuery, errCode(t, err))

	_, err = e.handleExecuteQuery(ctx, map[string]interface{}{"query": "DROP TABLE users"})
	assert.Equal(t, tools.CodeInvalidQuery, errCode(t, err))
}

func TestExecuteQueryWhereGuardSeesThroughCTE(t *testing.T) {
	e, d := newTestExecutor(t, 100)
	seedUsers(t, d, 5)
	ctx := context.Background()

	// A CTE prefix must not hide an unfiltered write.
	_, err := e.handleExecuteQuery(ctx, map[string]interface{}{
		"query": "WITH doomed AS (SELECT id FROM users) DELETE FROM users",
	})
	assert.Equal(t, tools.CodeInvalidQuery, errCode(t, err))

	_, err = e.handleExecuteQuery(ctx, map[string]interface{}{
		"query": "WITH all_ids AS (SELECT id FROM users) UPDATE users SET age = 0",
	})
	assert.Equal(t, tools.CodeInvalidQuery, errCode(t, err))

	// A WHERE inside a string literal does not satisfy the guard.
	_, err = e.handleExecuteQuery(ctx, map[string]interface{}{
		"query": "UPDATE users SET name = 'WHERE'",
	})
	assert.Equal(t, tools.CodeInvalidQuery, errCode(t, err))

	// Filtered CTE writes go through.
	result, err := e.handleExecuteQuery(ctx, map[string]interface{}{
		"query":  "WITH keep AS (SELECT id FROM users WHERE id > ?) DELETE FROM users WHERE id NOT IN (SELECT id FROM keep)",
		"params": []interface{}{3},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, result.(map[string]interface{})["rows_affected"])
}

func TestQueryTimeoutDiscardsConnection(t *testing.T) {
	e, d := newTestExecutor(t, 100)
	seedUsers(t, d, 3)
	e.queryTimeout = 100 * time.Millisecond
	ctx := context.Background()

	// Pin one connection so the shared in-memory database survives the
	// discarded one.
	keep, err := d.DB().Conn(ctx)
	require.NoError(t, err)
	defer keep.Close()

	before := e.pool.Stats().OpenConnections

	// The recursive scan never finishes; the deadline fires first.
	_, err = e.handleExecuteSelect(ctx, map[string]interface{}{
		"query": "SELECT count(*) FROM (WITH RECURSIVE c(x) AS (SELECT 1 UNION ALL SELECT x+1 FROM c) SELECT x FROM c)",
	})
	assert.Equal(t, tools.CodeDatabaseError, errCode(t, err))
	assert.LessOrEqual(t, e.pool.Stats().OpenConnections, before,
		"the timed-out connection must not be returned to the pool")

	// Same discard on the statement path.
	_, err = e.handleExecuteQuery(ctx, map[string]interface{}{
		"query": "WITH RECURSIVE c(x) AS (SELECT 1 UNION ALL SELECT x+1 FROM c) SELECT count(*) FROM c",
	})
	assert.Equal(t, tools.CodeDatabaseError, errCode(t, err))

	// New borrows get a healthy replacement connection.
	result, err := e.handleExecuteSelect(ctx, map[string]interface{}{
		"query": "SELECT COUNT(*) AS c FROM users",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, result.(*RowSet).Rows[0]["c"])
}

func TestDropTableRequiresConfirm(t *testing.T) {
	e, d := newTestExecutor(t, 100)
	seedUsers(t, d, 0)
	ctx := context.Background()

	_, err := e.handleDropTable(ctx, map[string]interface{}{"table": "users"})
	assert.Equal(t, tools.CodeInvalidArgument, errCode(t, err))

	_, err = e.handleDropTable(ctx, map[string]interface{}{"table": "users", "confirm": false})
	assert.Equal(t, tools.CodeInvalidArgument, errCode(t, err))

	result, err := e.handleDropTable(ctx, map[string]interface{}{"table": "users", "confirm": true})
	require.NoError(t, err)
	assert.Equal(t, true, result.(map[string]interface{})["dropped"])

	tables, err := e.handleListTables(ctx, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, 0, tables.(*RowSet).RowCount)
}

func TestAlterTable(t *testing.T) {
	e, d := newTestExecutor(t, 100)
	seedUsers(t, d, 0)
	ctx := context.Background()

	_, err := e.handleAlterTable(ctx, map[string]interface{}{
		"table": "users", "operation": "add_column", "column": "email", "column_type": "TEXT",
	})
	require.NoError(t, err)

	result, err := e.handleDescribeTable(ctx, map[string]interface{}{"table": "users"})
	require.NoError(t, err)
	assert.Equal(t, 4, result.(*RowSet).RowCount)

	_, err = e.handleAlterTable(ctx, map[string]interface{}{
		"table": "users", "operation": "alter_column", "column": "email", "column_type": "VARCHAR(50)",
	})
	assert.Equal(t, tools.CodeInvalidArgument, errCode(t, err))

	_, err = e.handleAlterTable(ctx, map[string]interface{}{
		"table": "users", "operation": "reverse", "column": "email",
	})
	assert.Equal(t, tools.CodeInvalidArgument, errCode(t, err))
}

func TestCreateAndDropIndex(t *testing.T) {
	e, d := newTestExecutor(t, 100)
	seedUsers(t, d, 0)
	ctx := context.Background()

	_, err := e.handleCreateIndex(ctx, map[string]interface{}{
		"index": "idx_users_name", "table": "users",
		"columns": []interface{}{"name"}, "unique": true,
	})
	require.NoError(t, err)

	result, err := e.handleListIndexes(ctx, map[string]interface{}{"table": "users"})
	require.NoError(t, err)
	names := []string{}
	for _, row := range result.(*RowSet).Rows {
		names = append(names, row["index_name"].(string))
	}
	assert.Contains(t, names, "idx_users_name")

	_, err = e.handleDropIndex(ctx, map[string]interface{}{"index": "idx_users_name"})
	require.NoError(t, err)
}

func TestBackupTable(t *testing.T) {
	e, d := newTestExecutor(t, 100)
	seedUsers(t, d, 3)
	ctx := context.Background()

	result, err := e.handleBackupTable(ctx, map[string]interface{}{
		"table": "users", "backup_name": "users_snapshot",
	})
	require.NoError(t, err)
	assert.Equal(t, "users_snapshot", result.(map[string]interface{})["backup_table"])

	sel, err := e.handleExecuteSelect(ctx, map[string]interface{}{
		"query": "SELECT COUNT(*) AS c FROM users_snapshot",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, sel.(*RowSet).Rows[0]["c"])

	// Default backup names carry a timestamp suffix.
	result, err = e.handleBackupTable(ctx, map[string]interface{}{"table": "users"})
	require.NoError(t, err)
	assert.Contains(t, result.(map[string]interface{})["backup_table"], "users_backup_")
}

func TestExecuteProcedureUnsupportedDialect(t *testing.T) {
	e, d := newTestExecutor(t, 100)
	seedUsers(t, d, 0)

	_, err := e.handleExecuteProcedure(context.Background(), map[string]interface{}{
		"procedure": "refresh_stats",
	})
	assert.Equal(t, tools.CodeInvalidArgument, errCode(t, err))
}

func TestSanitizeIdentifier(t *testing.T) {
	got, err := sanitizeIdentifier("users; DROP TABLE x--", "table")
	require.NoError(t, err)
	assert.Equal(t, "usersDROPTABLEx", got)

	_, err = sanitizeIdentifier("';--", "table")
	assert.Error(t, err)

	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	got, err = sanitizeIdentifier(string(long), "table")
	require.NoError(t, err)
	assert.Len(t, got, 128)
}

func TestSanitizeType(t *testing.T) {
	for _, ok := range []string{"INTEGER", "VARCHAR(255)", "DECIMAL(10,2)", "TEXT"} {
		_, err := sanitizeType(ok)
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{"TEXT; DROP TABLE x", "INT DEFAULT (SELECT 1)", ""} {
		_, err := sanitizeType(bad)
		assert.Error(t, err, bad)
	}
}
