package querysql

import (
	"fmt"
	"strings"
)

// Dialect captures the syntax differences between the supported engines.
//
// A Dialect is chosen once, when the datastore is opened, from the
// configured driver name. Nothing else in the query path branches on the
// engine.
type Dialect interface {
	// Name is the dialect name: "sqlite", "mysql" or "postgres".
	Name() string

	// Placeholder returns the bind marker for the n-th parameter (1-based).
	Placeholder(n int) string

	// QuoteIdent quotes a table or column name.
	QuoteIdent(name string) string

	// QuoteLiteral quotes a string for statements that cannot take bind
	// parameters (DDL).
	QuoteLiteral(s string) string

	// LikeEscape is the ESCAPE clause literal for LIKE patterns built with
	// EscapeLike.
	LikeEscape() string

	// RowIDType is the column definition of the synthetic row id.
	RowIDType() string

	// ColumnType maps a data dictionary field type to a column type.
	ColumnType(dictType string) (string, error)

	// SchemaQuery returns a query yielding (name, type, is_primary_key,
	// description) rows for table, ordered by column position.
	SchemaQuery(table, rowID string) (string, []any)
}

// DialectFor returns the dialect for a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return SQLite, nil
	case "mysql":
		return MySQL, nil
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

var (
	SQLite   Dialect = sqliteDialect{}
	MySQL    Dialect = mysqlDialect{}
	Postgres Dialect = postgresDialect{}
)

// EscapeLike escapes LIKE wildcards so s matches literally. Use with the
// dialect's LikeEscape clause.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func quoteWith(name string, q string) string {
	return q + strings.ReplaceAll(name, q, q+q) + q
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string                  { return "sqlite" }
func (sqliteDialect) Placeholder(int) string        { return "?" }
func (sqliteDialect) QuoteIdent(name string) string { return quoteWith(name, `"`) }
func (sqliteDialect) QuoteLiteral(s string) string  { return quoteWith(s, `'`) }
func (sqliteDialect) LikeEscape() string            { return `'\'` }
func (sqliteDialect) RowIDType() string             { return "INTEGER PRIMARY KEY" }

func (sqliteDialect) ColumnType(dictType string) (string, error) {
	switch dictType {
	case "string":
		return "TEXT", nil
	case "number":
		return "REAL", nil
	case "integer", "year":
		return "INTEGER", nil
	case "boolean":
		return "BOOLEAN", nil
	case "date":
		return "DATE", nil
	case "datetime":
		return "DATETIME", nil
	case "time":
		return "TIME", nil
	}
	return "", fmt.Errorf("unsupported dictionary type %q", dictType)
}

func (sqliteDialect) SchemaQuery(table, _ string) (string, []any) {
	return `SELECT name, type, pk > 0, '' FROM pragma_table_info(?) ORDER BY cid`, []any{table}
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string                  { return "mysql" }
func (mysqlDialect) Placeholder(int) string        { return "?" }
func (mysqlDialect) QuoteIdent(name string) string { return quoteWith(name, "`") }
func (mysqlDialect) LikeEscape() string            { return `'\\'` }
func (mysqlDialect) RowIDType() string             { return "BIGINT AUTO_INCREMENT PRIMARY KEY" }

func (mysqlDialect) QuoteLiteral(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `''`).Replace(s) + "'"
}

func (mysqlDialect) ColumnType(dictType string) (string, error) {
	switch dictType {
	case "string":
		return "TEXT", nil
	case "number":
		return "DECIMAL(30,10)", nil
	case "integer":
		return "BIGINT", nil
	case "year":
		return "YEAR", nil
	case "boolean":
		return "BOOL", nil
	case "date":
		return "DATE", nil
	case "datetime":
		return "DATETIME", nil
	case "time":
		return "TIME", nil
	}
	return "", fmt.Errorf("unsupported dictionary type %q", dictType)
}

func (mysqlDialect) SchemaQuery(table, _ string) (string, []any) {
	return "SELECT COLUMN_NAME, COLUMN_TYPE, COLUMN_KEY = 'PRI', COLUMN_COMMENT " +
		"FROM information_schema.COLUMNS " +
		"WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? ORDER BY ORDINAL_POSITION", []any{table}
}

type postgresDialect struct{}

func (postgresDialect) Name() string                  { return "postgres" }
func (postgresDialect) Placeholder(n int) string      { return fmt.Sprintf("$%d", n) }
func (postgresDialect) QuoteIdent(name string) string { return quoteWith(name, `"`) }
func (postgresDialect) QuoteLiteral(s string) string  { return quoteWith(s, `'`) }
func (postgresDialect) LikeEscape() string            { return `'\'` }
func (postgresDialect) RowIDType() string             { return "BIGSERIAL PRIMARY KEY" }

func (postgresDialect) ColumnType(dictType string) (string, error) {
	switch dictType {
	case "string":
		return "TEXT", nil
	case "number":
		return "NUMERIC", nil
	case "integer", "year":
		return "BIGINT", nil
	case "boolean":
		return "BOOLEAN", nil
	case "date":
		return "DATE", nil
	case "datetime":
		return "TIMESTAMP", nil
	case "time":
		return "TIME", nil
	}
	return "", fmt.Errorf("unsupported dictionary type %q", dictType)
}

func (postgresDialect) SchemaQuery(table, rowID string) (string, []any) {
	return "SELECT column_name, data_type, column_name = $2, " +
		"COALESCE(col_description(format('%I', table_name)::regclass, ordinal_position::int), '') " +
		"FROM information_schema.columns " +
		"WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position", []any{table, rowID}
}
