package datastore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/roach88/datastore/internal/ir"
	"github.com/roach88/datastore/internal/queryir"
	"github.com/roach88/datastore/internal/querysql"
)

// Table is the storage capability behind one resource.
type Table interface {
	// Name returns the physical table name.
	Name() string

	// Schema returns the table's columns. A missing table returns an
	// error wrapping ErrTableNotFound.
	Schema(ctx context.Context) (Schema, error)

	Create(ctx context.Context, schema Schema) error
	Drop(ctx context.Context) error
	Insert(ctx context.Context, columns []string, rows [][]any) error

	// Query runs a plan whose From table is this table. Joined tables
	// are resolved by the engine.
	Query(ctx context.Context, plan queryir.Plan) (*ResultSet, error)

	// Count returns the number of rows matching the plan, ignoring
	// columns, sorts and paging.
	Count(ctx context.Context, plan queryir.Plan) (int64, error)

	// ApplyDictionary retypes columns in place.
	ApplyDictionary(ctx context.Context, changes []querysql.ColumnChange) error
}

// StorageMap binds resource identifiers to table handles for one request.
type StorageMap map[string]Table

// ResultSet holds query rows in projection order.
type ResultSet struct {
	Columns []string
	Rows    [][]ir.IRValue
}

// maxParams keeps multi-row INSERTs under SQLite's default bind limit.
const maxParams = 999

// SQLTable is a Table backed by a database/sql engine.
type SQLTable struct {
	store      *Store
	identifier string
	name       string
}

var _ Table = (*SQLTable)(nil)

func (t *SQLTable) Name() string {
	return t.name
}

// Identifier returns the resource identifier the table backs.
func (t *SQLTable) Identifier() string {
	return t.identifier
}

func (t *SQLTable) Schema(ctx context.Context) (Schema, error) {
	query, args := t.store.dialect.SchemaQuery(t.name, RowIDColumn)
	rows, err := t.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Schema{}, errors.Wrapf(err, "read schema of %s", t.identifier)
	}
	defer rows.Close()

	var schema Schema
	for rows.Next() {
		var (
			f    Field
			pk   bool
			desc sql.NullString
		)
		if err := rows.Scan(&f.Name, &f.Type, &pk, &desc); err != nil {
			return Schema{}, errors.Wrapf(err, "scan schema of %s", t.identifier)
		}
		f.Description = desc.String
		schema.Fields = append(schema.Fields, f)
		if pk {
			schema.PrimaryKey = append(schema.PrimaryKey, f.Name)
		}
	}
	if err := rows.Err(); err != nil {
		return Schema{}, errors.Wrapf(err, "iterate schema of %s", t.identifier)
	}

	if len(schema.Fields) == 0 {
		return Schema{}, errors.Wrapf(ErrTableNotFound, "resource %s", t.identifier)
	}
	return schema, nil
}

func (t *SQLTable) Create(ctx context.Context, schema Schema) error {
	stmt, err := querysql.CreateTable(t.store.dialect, t.name, schema.columnSpecs())
	if err != nil {
		return err
	}
	if _, err := t.store.db.ExecContext(ctx, stmt); err != nil {
		return errors.Wrapf(err, "create table for %s", t.identifier)
	}
	return nil
}

// Drop removes the table. Dropping a table that does not exist fails with
// ErrTableNotFound so callers can tell a repeated drop from a real one.
func (t *SQLTable) Drop(ctx context.Context) error {
	if _, err := t.Schema(ctx); err != nil {
		return errors.Wrap(err, "drop")
	}
	if _, err := t.store.db.ExecContext(ctx, querysql.DropTable(t.store.dialect, t.name)); err != nil {
		return errors.Wrapf(err, "drop table for %s", t.identifier)
	}
	return nil
}

// Insert writes rows in one transaction, batched to stay under the bind
// parameter limit.
func (t *SQLTable) Insert(ctx context.Context, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	if len(columns) == 0 {
		return errors.Newf("insert into %s: no columns", t.identifier)
	}

	batch := maxParams / len(columns)
	if batch < 1 {
		batch = 1
	}

	tx, err := t.store.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin insert")
	}
	defer tx.Rollback()

	for start := 0; start < len(rows); start += batch {
		end := min(start+batch, len(rows))
		stmt, err := querysql.InsertRows(t.store.dialect, t.name, columns, end-start)
		if err != nil {
			return err
		}
		args := make([]any, 0, (end-start)*len(columns))
		for i, row := range rows[start:end] {
			if len(row) != len(columns) {
				return errors.Newf("insert into %s: row %d has %d values, want %d",
					t.identifier, start+i, len(row), len(columns))
			}
			args = append(args, row...)
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return errors.Wrapf(err, "insert rows %d-%d into %s", start, end, t.identifier)
		}
	}

	return errors.Wrap(tx.Commit(), "commit insert")
}

func (t *SQLTable) Query(ctx context.Context, plan queryir.Plan) (*ResultSet, error) {
	stmt, args, err := querysql.NewSQLCompiler(t.store.dialect).Compile(plan)
	if err != nil {
		return nil, errors.Wrap(err, "compile query")
	}

	rows, err := t.store.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", t.identifier)
	}
	defer rows.Close()

	result := &ResultSet{Columns: plan.Keys(), Rows: [][]ir.IRValue{}}
	width := len(result.Columns)
	for rows.Next() {
		raw := make([]any, width)
		ptrs := make([]any, width)
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrapf(err, "scan %s", t.identifier)
		}

		row := make([]ir.IRValue, width)
		for i, v := range raw {
			val, err := ir.FromNative(v)
			if err != nil {
				return nil, errors.Wrapf(err, "column %s", result.Columns[i])
			}
			row[i] = val
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterate %s", t.identifier)
	}
	return result, nil
}

func (t *SQLTable) Count(ctx context.Context, plan queryir.Plan) (int64, error) {
	stmt, args, err := querysql.NewSQLCompiler(t.store.dialect).CompileCount(plan)
	if err != nil {
		return 0, errors.Wrap(err, "compile count")
	}
	var n int64
	if err := t.store.db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "count %s", t.identifier)
	}
	return n, nil
}

// ApplyDictionary runs the dialect's ALTER statements on one connection
// inside a transaction, so session settings apply and SQLite rebuilds
// are atomic.
func (t *SQLTable) ApplyDictionary(ctx context.Context, changes []querysql.ColumnChange) error {
	schema, err := t.Schema(ctx)
	if err != nil {
		return err
	}
	stmts, err := t.store.alter.Build(t.name, schema.columnSpecs(), changes)
	if err != nil {
		return errors.Wrapf(err, "build alter for %s", t.identifier)
	}

	conn, err := t.store.db.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "acquire connection")
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin alter")
	}
	defer tx.Rollback()

	if rw, ok := t.store.alter.(querysql.DateRewriter); ok {
		for _, ch := range rw.DateColumns(changes) {
			if err := t.rewriteDates(ctx, tx, schema.RowID(), ch); err != nil {
				return err
			}
		}
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "alter %s", t.identifier)
		}
	}
	return errors.Wrap(tx.Commit(), "commit alter")
}

// rewriteDates replaces the values of one date-like column with their ISO
// text, or NULL when a value does not match the field's format.
func (t *SQLTable) rewriteDates(ctx context.Context, tx *sql.Tx, rowID string, ch querysql.ColumnChange) error {
	if rowID == "" {
		return errors.Newf("rewrite dates in %s: table has no row id", t.identifier)
	}
	d := t.store.dialect
	tbl, col, id := d.QuoteIdent(t.name), d.QuoteIdent(ch.Name), d.QuoteIdent(rowID)

	rows, err := tx.QueryContext(ctx, fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IS NOT NULL", id, col, tbl, col))
	if err != nil {
		return errors.Wrapf(err, "read %s.%s", t.identifier, ch.Name)
	}
	type update struct {
		id    int64
		value any
	}
	var updates []update
	for rows.Next() {
		var (
			n   int64
			raw sql.NullString
		)
		if err := rows.Scan(&n, &raw); err != nil {
			rows.Close()
			return errors.Wrapf(err, "scan %s.%s", t.identifier, ch.Name)
		}
		iso, ok := querysql.NormalizeDate(ch, raw.String)
		switch {
		case !ok:
			updates = append(updates, update{id: n, value: nil})
		case iso != raw.String:
			updates = append(updates, update{id: n, value: iso})
		}
	}
	if err := rows.Close(); err != nil {
		return errors.Wrapf(err, "read %s.%s", t.identifier, ch.Name)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrapf(err, "read %s.%s", t.identifier, ch.Name)
	}

	stmt := t.store.rebind(fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?", tbl, col, id))
	for _, u := range updates {
		if _, err := tx.ExecContext(ctx, stmt, u.value, u.id); err != nil {
			return errors.Wrapf(err, "rewrite %s.%s", t.identifier, ch.Name)
		}
	}
	return nil
}
