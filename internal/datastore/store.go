package datastore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/datastore/internal/ir"
	"github.com/roach88/datastore/internal/querysql"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Schema version tracking (SQLite user_version):
// 1 - post_import_results
const currentSchemaVersion = 1

// Options configures a Store.
type Options struct {
	// MySQLStrictModeOff clears sql_mode before dictionary ALTERs on MySQL.
	MySQLStrictModeOff bool
}

// Store owns the database handle shared by every datastore table.
type Store struct {
	db      *sql.DB
	dialect querysql.Dialect
	alter   querysql.AlterBuilder
}

// Open connects to driver/dsn, applies engine settings and creates the
// bookkeeping tables. It is idempotent.
//
// For SQLite the connection is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - a single open connection (one writer)
func Open(driver, dsn string, opts Options) (*Store, error) {
	dialect, err := querysql.DialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "connect to database")
	}

	if dialect.Name() == "sqlite" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "apply pragmas")
		}
	}

	if err := applySchema(db, dialect); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply schema")
	}

	return New(db, dialect, opts), nil
}

// New wraps an already configured handle. The caller owns schema setup.
func New(db *sql.DB, dialect querysql.Dialect, opts Options) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		alter:   querysql.NewAlterBuilder(dialect, opts.MySQLStrictModeOff),
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the engine dialect.
func (s *Store) Dialect() querysql.Dialect {
	return s.dialect
}

// Table returns the table handle for a resource identifier. No database
// call is made; a missing table surfaces as ErrTableNotFound on first use.
func (s *Store) Table(identifier string) *SQLTable {
	return &SQLTable{
		store:      s,
		identifier: identifier,
		name:       ir.TableName(identifier),
	}
}

// StorageMap binds each resource identifier to its table handle.
func (s *Store) StorageMap(identifiers []string) StorageMap {
	m := make(StorageMap, len(identifiers))
	for _, id := range identifiers {
		m[id] = s.Table(id)
	}
	return m
}

// DropResource drops the table of res. It satisfies postimport.Dropper.
func (s *Store) DropResource(ctx context.Context, res ir.Resource) error {
	return s.Table(res.Identifier()).Drop(ctx)
}

// rebind rewrites ? placeholders for the store's dialect.
func (s *Store) rebind(query string) string {
	if s.dialect.Placeholder(1) == "?" {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString(s.dialect.Placeholder(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return errors.Wrapf(err, "execute %q", pragma)
		}
	}
	return nil
}

// applySchema runs the dialect's schema file one statement at a time
// (the MySQL driver rejects multi-statement Exec by default).
func applySchema(db *sql.DB, dialect querysql.Dialect) error {
	raw, err := schemaFS.ReadFile("schema/" + dialect.Name() + ".sql")
	if err != nil {
		return errors.Wrap(err, "read schema")
	}

	for _, stmt := range strings.Split(string(raw), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrapf(err, "execute schema statement %q", firstLine(stmt))
		}
	}

	if dialect.Name() == "sqlite" {
		return runMigrations(db)
	}
	return nil
}

func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return errors.Wrap(err, "get user_version")
	}
	if version >= currentSchemaVersion {
		return nil
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return errors.Wrap(err, "set user_version")
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(ctx context.Context, name, expected string) error {
	var value string
	if err := s.db.QueryRowContext(ctx, "PRAGMA "+name).Scan(&value); err != nil {
		return errors.Wrapf(err, "query %s", name)
	}
	if value != expected {
		return errors.Newf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
