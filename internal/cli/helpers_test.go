package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeConfig writes a config pointing at a fresh SQLite database in a
// temp dir. extra is appended verbatim (use it for [datastore] and
// [dictionary] tables).
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf("[database]\ndriver = \"sqlite3\"\ndsn = %q\n%s", filepath.Join(dir, "datastore.db"), extra)
	path := filepath.Join(dir, "datastore.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the root command and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func testdataPath(t *testing.T, name string) string {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err)
	return path
}
