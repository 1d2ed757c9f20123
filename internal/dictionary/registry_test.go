package dictionary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datastore/internal/ir"
)

func TestRegistry_LoadDir(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.LoadDir("testdata/dictionaries"))

	assert.Equal(t, []string{"budget", "permits", "staff", "trees"}, r.IDs())

	d, ok := r.Get("permits")
	require.True(t, ok)
	assert.Equal(t, "Building permits", d.Title)

	_, ok = r.Get("nope")
	assert.False(t, ok)
}

func TestRegistry_AddRejectsInvalid(t *testing.T) {
	r := NewRegistry()
	err := r.Add(ir.DataDictionary{ID: "bad", Fields: []ir.DictionaryField{{Name: "a", Type: "float"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported type "float"`)
	assert.Empty(t, r.IDs())
}

func TestRegistry_LoadDirInvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.json"), []byte(`{"id":"x","fields":[]}`), 0o644))

	err := NewRegistry().LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one field is required")
}

func TestRegistry_Validate(t *testing.T) {
	errs := Validate(ir.DataDictionary{
		Fields: []ir.DictionaryField{
			{Name: "a", Type: "string"},
			{Name: "a", Type: "string"},
			{Name: "", Type: "integer"},
			{Name: "b", Type: "integer", Format: "%Y"},
			{Name: "c", Type: "date", Format: "%Y"},
		},
	})

	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}
	assert.Equal(t, []string{"id", "fields[1].name", "fields[2].name", "fields[3].format"}, fields)
}
