package datastore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// createTestStore opens a SQLite store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open("sqlite3", path, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestTable imports rows into a fresh TEXT table for identifier.
func createTestTable(t *testing.T, s *Store, identifier string, columns []string, rows [][]any) *SQLTable {
	t.Helper()
	ctx := context.Background()
	table := s.Table(identifier)
	require.NoError(t, table.Create(ctx, TextSchema(columns)))
	require.NoError(t, table.Insert(ctx, columns, rows))
	return table
}
