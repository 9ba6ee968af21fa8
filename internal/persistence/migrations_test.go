package persistence

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNames(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_init.sql", names[0])
}

func TestInitMigrationDeclaresUniqueKeys(t *testing.T) {
	content, err := fs.ReadFile(migrationFiles, "migrations/0001_init.sql")
	require.NoError(t, err)
	sql := string(content)
	assert.True(t, strings.Contains(sql, "username TEXT NOT NULL UNIQUE"))
	assert.True(t, strings.Contains(sql, "ticket_number TEXT NOT NULL UNIQUE"))
	assert.True(t, strings.Contains(sql, "CREATE TABLE IF NOT EXISTS activities"))
}
