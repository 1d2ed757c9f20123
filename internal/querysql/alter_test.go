package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var currentColumns = []ColumnSpec{
	{Name: "record_number", Type: "INTEGER", PrimaryKey: true},
	{Name: "a", Type: "TEXT"},
	{Name: "b", Type: "TEXT"},
	{Name: "c", Type: "TEXT"},
}

func TestMySQLAlterBuilder(t *testing.T) {
	b := NewAlterBuilder(MySQL, false)

	stmts, err := b.Build("datastore_x", currentColumns, []ColumnChange{
		{Name: "a", DictType: "integer", Description: "Count of things"},
		{Name: "b", DictType: "date", Format: "%m/%d/%Y"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"UPDATE `datastore_x` SET `b` = STR_TO_DATE(`b`, '%m/%d/%Y')",
		"ALTER TABLE `datastore_x` MODIFY COLUMN `a` BIGINT COMMENT 'Count of things', MODIFY COLUMN `b` DATE",
	}, stmts)
}

func TestStrictModeOffMySQLAlterBuilder(t *testing.T) {
	b := NewAlterBuilder(MySQL, true)
	require.IsType(t, &StrictModeOffMySQLAlterBuilder{}, b)

	stmts, err := b.Build("datastore_x", currentColumns, []ColumnChange{
		{Name: "c", DictType: "number"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"SET SESSION sql_mode = ''",
		"ALTER TABLE `datastore_x` MODIFY COLUMN `c` DECIMAL(30,10)",
	}, stmts)
}

func TestStrictModeOffIgnoredOutsideMySQL(t *testing.T) {
	assert.IsType(t, &PostgresAlterBuilder{}, NewAlterBuilder(Postgres, true))
	assert.IsType(t, &SQLiteAlterBuilder{}, NewAlterBuilder(SQLite, true))
}

func TestPostgresAlterBuilder(t *testing.T) {
	b := NewAlterBuilder(Postgres, false)

	stmts, err := b.Build("datastore_x", currentColumns, []ColumnChange{
		{Name: "a", DictType: "boolean"},
		{Name: "b", DictType: "date", Format: "%d/%m/%Y", Description: "Day"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		`ALTER TABLE "datastore_x" ALTER COLUMN "a" TYPE BOOLEAN USING NULLIF(TRIM("a"::text), '')::BOOLEAN, ` +
			`ALTER COLUMN "b" TYPE DATE USING to_date(NULLIF(TRIM("b"::text), ''), 'DD/MM/YYYY')`,
		`COMMENT ON COLUMN "datastore_x"."b" IS 'Day'`,
	}, stmts)
}

func TestSQLiteAlterBuilder(t *testing.T) {
	b := NewAlterBuilder(SQLite, false)

	stmts, err := b.Build("datastore_x", currentColumns, []ColumnChange{
		{Name: "a", DictType: "integer"},
		{Name: "c", DictType: "date"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		`CREATE TABLE "datastore_x__alter" ("record_number" INTEGER PRIMARY KEY, "a" INTEGER, "b" TEXT, "c" DATE)`,
		`INSERT INTO "datastore_x__alter" ("record_number", "a", "b", "c") SELECT "record_number", ` +
			`CAST(NULLIF(TRIM("a"), '') AS INTEGER), "b", NULLIF(TRIM("c"), '') FROM "datastore_x"`,
		`DROP TABLE IF EXISTS "datastore_x"`,
		`ALTER TABLE "datastore_x__alter" RENAME TO "datastore_x"`,
	}, stmts)
}

func TestAlterBuilderErrors(t *testing.T) {
	for _, b := range []AlterBuilder{
		NewAlterBuilder(SQLite, false),
		NewAlterBuilder(MySQL, false),
		NewAlterBuilder(Postgres, false),
	} {
		_, err := b.Build("datastore_x", currentColumns, nil)
		assert.Error(t, err)

		_, err = b.Build("datastore_x", currentColumns, []ColumnChange{{Name: "missing", DictType: "integer"}})
		assert.ErrorContains(t, err, `unknown column "missing"`)

		_, err = b.Build("datastore_x", currentColumns, []ColumnChange{{Name: "a", DictType: "geopoint"}})
		assert.ErrorContains(t, err, "unsupported dictionary type")
	}
}

func TestPostgresDateFormat(t *testing.T) {
	assert.Equal(t, "YYYY-MM-DD HH24:MI:SS", PostgresDateFormat("%Y-%m-%d %H:%M:%S"))
}
