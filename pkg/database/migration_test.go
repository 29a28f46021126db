package database

import (
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/db"
)

func TestLatestMigrationVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"1_init.up.sql":       {},
		"1_init.down.sql":     {},
		"12_revisions.up.sql": {},
		"3_index.up.sql":      {},
		"README.md":           {},
	}
	entries, err := fs.ReadDir(fsys, ".")
	require.NoError(t, err)

	version, err := LatestMigrationVersion(entries)
	require.NoError(t, err)
	assert.Equal(t, 12, version)
}

func TestLatestMigrationVersion_Empty(t *testing.T) {
	entries, err := fs.ReadDir(fstest.MapFS{"README.md": {}}, ".")
	require.NoError(t, err)

	_, err = LatestMigrationVersion(entries)
	assert.Error(t, err)
}

func TestLatestMigrationVersion_Embedded(t *testing.T) {
	entries, err := fs.ReadDir(db.Migrations, db.PostgresPath)
	require.NoError(t, err)

	version, err := LatestMigrationVersion(entries)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, version, 1)
}

func TestJSONB_ScanReplacesPreviousValue(t *testing.T) {
	doc := JSONB[map[string]int]{Data: map[string]int{"stale": 1}}
	require.NoError(t, doc.Scan([]byte(`{"b":2}`)))
	assert.Equal(t, map[string]int{"b": 2}, doc.Data)

	type row struct {
		Name string   `json:"name"`
		Tags []string `json:"tags"`
	}
	r := JSONB[row]{Data: row{Name: "old", Tags: []string{"x"}}}
	require.NoError(t, r.Scan(`{"name":"new"}`))
	assert.Equal(t, row{Name: "new"}, r.Data)

	assert.Error(t, r.Scan([]byte(`{"name":`)))
	assert.Equal(t, row{Name: "new"}, r.Data, "a failed scan leaves the value alone")
}

func TestJSONB(t *testing.T) {
	var doc JSONB[map[string]int]
	require.NoError(t, doc.Scan([]byte(`{"a":1}`)))
	assert.Equal(t, map[string]int{"a": 1}, doc.GetValue())

	require.NoError(t, doc.Scan(`{"b":2}`))
	assert.Equal(t, map[string]int{"b": 2}, doc.Data)

	require.NoError(t, doc.Scan(nil))
	assert.Nil(t, doc.Data)

	assert.Error(t, doc.Scan(42))

	value, err := JSONB[[]string]{Data: []string{"x"}}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["x"]`, value)
}
