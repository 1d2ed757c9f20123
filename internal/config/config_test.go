package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datastore/internal/dictionary"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "datastore.db", cfg.Database.DSN)
	assert.Equal(t, 3, cfg.Query.MaxResources)
	assert.Equal(t, 500, cfg.Query.DefaultLimit)
	assert.Equal(t, 500, cfg.Query.RowsLimit)
	assert.False(t, cfg.Datastore.DropOnPostImportError)
	assert.Equal(t, 2, cfg.Datastore.PostImportWorkers)
	assert.Equal(t, "none", cfg.Dictionary.Mode)

	assert.Equal(t, Options{
		MaxResources:          3,
		DropOnPostImportError: false,
		DictionaryMode:        dictionary.ModeNone,
	}, cfg.Options())
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load("testdata/datastore.toml")
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/datastore/data.db", cfg.Database.DSN)
	assert.Equal(t, 5, cfg.Query.MaxResources)
	assert.Equal(t, 1000, cfg.Query.RowsLimit)
	assert.Equal(t, 500, cfg.Query.DefaultLimit, "unset keys keep defaults")
	assert.Equal(t, 4, cfg.Datastore.PostImportWorkers)

	opts := cfg.Options()
	assert.True(t, opts.DropOnPostImportError)
	assert.Equal(t, dictionary.ModeReference, opts.DictionaryMode)

	tr := cfg.TranslateOptions()
	assert.Equal(t, 5, tr.MaxResources)
	assert.Equal(t, 1000, tr.RowsLimit)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("DATASTORE_QUERY_MAX_RESOURCES", "7")
	t.Setenv("DATASTORE_DATASTORE_DROP_DATASTORE_ON_POST_IMPORT_ERROR", "false")

	cfg, err := Load("testdata/datastore.toml")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Query.MaxResources)
	assert.False(t, cfg.Datastore.DropOnPostImportError)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"driver", "[database]\ndriver = \"oracle\"\n", "unsupported database.driver"},
		{"max resources", "[query]\nmax_resources = 0\n", "query.max_resources"},
		{"rows limit", "[query]\nrows_limit = -1\n", "query.rows_limit"},
		{"workers", "[datastore]\npost_import_workers = 0\n", "post_import_workers"},
		{"dictionary mode", "[dictionary]\nmode = \"sometimes\"\n", "unknown dictionary mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "datastore.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
