package datastore

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datastore/internal/ir"
	"github.com/roach88/datastore/internal/querysql"
)

func newMockStore(t *testing.T, dialect querysql.Dialect, opts Options) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, dialect, opts), mock
}

var schemaColumns = []string{"name", "type", "pk", "description"}

func TestMock_SchemaQueryFailure(t *testing.T) {
	s, mock := newMockStore(t, querysql.Postgres, Options{})

	mock.ExpectQuery("information_schema.columns").
		WithArgs(ir.TableName("abc"), RowIDColumn).
		WillReturnError(errors.New("connection reset"))

	_, err := s.Table("abc").Schema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read schema of abc")
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMock_DropMissingTable(t *testing.T) {
	s, mock := newMockStore(t, querysql.Postgres, Options{})

	mock.ExpectQuery("information_schema.columns").
		WillReturnRows(sqlmock.NewRows(schemaColumns))

	err := s.Table("abc").Drop(context.Background())
	assert.ErrorIs(t, err, ErrTableNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMock_DropExecFailure(t *testing.T) {
	s, mock := newMockStore(t, querysql.Postgres, Options{})
	name := ir.TableName("abc")

	mock.ExpectQuery("information_schema.columns").
		WillReturnRows(sqlmock.NewRows(schemaColumns).AddRow("record_number", "bigint", true, ""))
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "` + name + `"`)).
		WillReturnError(errors.New("permission denied"))

	err := s.Table("abc").Drop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.False(t, errors.Is(err, ErrTableNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMock_ApplyDictionaryStrictModeOff(t *testing.T) {
	s, mock := newMockStore(t, querysql.MySQL, Options{MySQLStrictModeOff: true})
	name := ir.TableName("abc")

	mock.ExpectQuery("information_schema.COLUMNS").
		WithArgs(name).
		WillReturnRows(sqlmock.NewRows(schemaColumns).
			AddRow("record_number", "bigint", true, "").
			AddRow("a", "text", false, ""))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET SESSION sql_mode = ''")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("ALTER TABLE `" + name + "` MODIFY COLUMN `a` BIGINT")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := s.Table("abc").ApplyDictionary(context.Background(), []querysql.ColumnChange{
		{Name: "a", DictType: "integer"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMock_ApplyDictionaryRollsBackOnFailure(t *testing.T) {
	s, mock := newMockStore(t, querysql.MySQL, Options{})
	name := ir.TableName("abc")

	mock.ExpectQuery("information_schema.COLUMNS").
		WillReturnRows(sqlmock.NewRows(schemaColumns).AddRow("a", "text", false, ""))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("ALTER TABLE `" + name + "`")).
		WillReturnError(errors.New("Data truncated for column 'a'"))
	mock.ExpectRollback()

	err := s.Table("abc").ApplyDictionary(context.Background(), []querysql.ColumnChange{
		{Name: "a", DictType: "integer"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Data truncated")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMock_WriteResultRebindsForPostgres(t *testing.T) {
	s, mock := newMockStore(t, querysql.Postgres, Options{})
	rec := ir.PostImportRecord{
		ID:         "id-1",
		ResourceID: "abc",
		RunID:      "run",
		Seq:        1,
		Status:     ir.StatusDone,
		Stages:     []ir.StageRecord{},
	}

	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)")).
		WithArgs("id-1", "abc", "abc", "", "run", int64(1), "done", "", "[]").
		WillReturnError(errors.New("disk full"))

	err := s.WriteResult(context.Background(), rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write result for abc")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMock_QueryFailure(t *testing.T) {
	s, mock := newMockStore(t, querysql.SQLite, Options{})
	table := s.Table("abc")

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("no such column"))

	_, err := table.Query(context.Background(), planFor(table, "t", "a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query abc")
	assert.NoError(t, mock.ExpectationsWereMet())
}
