package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("READ_ONLY")
	assert.NoError(t, err)
	assert.Equal(t, ReadOnly, mode)

	mode, err = ParseMode("FULL_ACCESS")
	assert.NoError(t, err)
	assert.Equal(t, FullAccess, mode)

	_, err = ParseMode("read_only")
	assert.Error(t, err)

	_, err = ParseMode("")
	assert.Error(t, err)
}

func TestReadOnlyAllowsOnlyReadTools(t *testing.T) {
	for _, name := range ReadOnlyToolNames() {
		assert.True(t, ReadOnly.Allowed(name), "read tool %s should be allowed in READ_ONLY", name)
	}

	writeTools := []string{
		"execute_query", "create_table", "alter_table", "drop_table",
		"insert_data", "update_data", "delete_data", "create_index",
		"drop_index", "execute_procedure", "backup_table",
	}
	for _, name := range writeTools {
		assert.False(t, ReadOnly.Allowed(name), "write tool %s should be denied in READ_ONLY", name)
	}
}

func TestFullAccessAllowsEverything(t *testing.T) {
	for _, name := range FullAccessToolNames() {
		assert.True(t, FullAccess.Allowed(name))
	}
	for _, name := range ReadOnlyToolNames() {
		assert.True(t, FullAccess.Allowed(name), "read tool %s should be allowed in FULL_ACCESS", name)
	}
}

func TestUnknownTool(t *testing.T) {
	assert.False(t, Known("format_disk"))
	assert.False(t, ReadOnly.Allowed("format_disk"))
	assert.False(t, FullAccess.Allowed("format_disk"))
	assert.True(t, Known("list_tables"))
	assert.True(t, Known("drop_table"))
}
