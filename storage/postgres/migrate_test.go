package postgres

import (
	"io"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFS_ListsMigrations(t *testing.T) {
	entries, err := fs.ReadDir(migrationFS(3), ".")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{
		"000001_create_documents.down.sql",
		"000001_create_documents.up.sql",
		"000002_create_chunks.down.sql",
		"000002_create_chunks.up.sql",
	}, names)
}

func TestMigrationFS_RendersDimensions(t *testing.T) {
	fsys := migrationFS(3)

	f, err := fsys.Open("000002_create_chunks.up.sql")
	require.NoError(t, err)
	defer f.Close()

	body, err := io.ReadAll(f)
	require.NoError(t, err)
	sql := string(body)

	assert.Contains(t, sql, "embedding   vector(3) NOT NULL")
	assert.Contains(t, sql, "('dimensions', '3')")
	assert.NotContains(t, sql, "{{")

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), info.Size())
}

func TestMigrationFS_PlainFilesUnchanged(t *testing.T) {
	body, err := fs.ReadFile(migrationFS(1536), "000001_create_documents.up.sql")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "CREATE TABLE IF NOT EXISTS documents"))
}
