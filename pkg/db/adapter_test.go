package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapterFor(t *testing.T) {
	for _, dbType := range []string{"mssql", "sqlserver", "mysql", "postgres", "sqlite"} {
		a, err := AdapterFor(dbType)
		assert.NoError(t, err, dbType)
		assert.NotNil(t, a, dbType)
	}

	_, err := AdapterFor("oracle")
	assert.Error(t, err)
}

func TestMssqlSelectWithLimit(t *testing.T) {
	a, err := AdapterFor("mssql")
	require.NoError(t, err)

	assert.Equal(t, "SELECT TOP 5 * FROM users", a.SelectWithLimit("SELECT * FROM users", 5))
	assert.Equal(t, "select TOP 5 id FROM users", a.SelectWithLimit("select id FROM users", 5))

	// Already capped queries pass through untouched.
	assert.Equal(t, "SELECT TOP 3 * FROM users", a.SelectWithLimit("SELECT TOP 3 * FROM users", 5))
	fetched := "SELECT * FROM users ORDER BY id OFFSET 0 ROWS FETCH NEXT 3 ROWS ONLY"
	assert.Equal(t, fetched, a.SelectWithLimit(fetched, 5))
}

func TestLimitDialectsSelectWithLimit(t *testing.T) {
	for _, dbType := range []string{"mysql", "postgres", "sqlite"} {
		a, err := AdapterFor(dbType)
		require.NoError(t, err)

		assert.Equal(t, "SELECT * FROM users LIMIT 5", a.SelectWithLimit("SELECT * FROM users", 5), dbType)
		assert.Equal(t, "SELECT * FROM users LIMIT 5", a.SelectWithLimit("SELECT * FROM users;", 5), dbType)
		assert.Equal(t, "SELECT * FROM users LIMIT 2", a.SelectWithLimit("SELECT * FROM users LIMIT 2", 5), dbType)
	}
}

func TestPlaceholders(t *testing.T) {
	mssql, _ := AdapterFor("mssql")
	assert.Equal(t, "@p1", mssql.Placeholder(1))
	assert.Equal(t, "@p3", mssql.Placeholder(3))

	pg, _ := AdapterFor("postgres")
	assert.Equal(t, "$1", pg.Placeholder(1))
	assert.Equal(t, "$2", pg.Placeholder(2))

	mysql, _ := AdapterFor("mysql")
	assert.Equal(t, "?", mysql.Placeholder(1))

	sqlite, _ := AdapterFor("sqlite")
	assert.Equal(t, "?", sqlite.Placeholder(7))
}

func TestQuoting(t *testing.T) {
	mssql, _ := AdapterFor("mssql")
	assert.Equal(t, "[users]", mssql.QuoteIdent("users"))

	mysql, _ := AdapterFor("mysql")
	assert.Equal(t, "`users`", mysql.QuoteIdent("users"))

	pg, _ := AdapterFor("postgres")
	assert.Equal(t, `"users"`, pg.QuoteIdent("users"))
}

func TestSqliteHasNoRoutineCatalogs(t *testing.T) {
	a, _ := AdapterFor("sqlite")

	q, _ := a.ListProceduresQuery()
	assert.Empty(t, q)
	q, _ = a.ListFunctionsQuery()
	assert.Empty(t, q)
}

func TestNewDatabaseDSN(t *testing.T) {
	d, err := NewDatabase(Config{
		Type: "mssql", Host: "db.example.com", Port: 1433,
		User: "sa", Password: "s3cret", Name: "app",
	})
	require.NoError(t, err)
	assert.Equal(t, "sqlserver", d.DriverName())
	assert.NotContains(t, d.ConnectionString(), "s3cret")

	_, err = NewDatabase(Config{Type: "oracle"})
	assert.Error(t, err)
}
