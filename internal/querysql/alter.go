package querysql

import (
	"fmt"
	"strings"
)

// ColumnChange retypes one column to a data dictionary field.
type ColumnChange struct {
	Name        string
	DictType    string // string, number, integer, date, datetime, time, boolean, year
	Format      string // strptime-style date format, "" / "default" / "any" for ISO
	Description string
}

// AlterBuilder renders the statements that apply column changes to an
// existing table. Statements run in order on a single connection.
type AlterBuilder interface {
	Build(table string, current []ColumnSpec, changes []ColumnChange) ([]string, error)
}

// NewAlterBuilder selects the builder for d. strictModeOff only affects
// MySQL, where it relaxes sql_mode for the session before altering so
// values that do not convert become NULL instead of failing the ALTER.
func NewAlterBuilder(d Dialect, strictModeOff bool) AlterBuilder {
	switch d.Name() {
	case "mysql":
		b := &MySQLAlterBuilder{d: d}
		if strictModeOff {
			return &StrictModeOffMySQLAlterBuilder{MySQLAlterBuilder: b}
		}
		return b
	case "postgres":
		return &PostgresAlterBuilder{d: d}
	default:
		return &SQLiteAlterBuilder{d: d}
	}
}

func hasDateFormat(c ColumnChange) bool {
	switch c.DictType {
	case "date", "datetime", "time":
	default:
		return false
	}
	switch c.Format {
	case "", "default", "any":
		return false
	}
	return true
}

func checkChanges(table string, current []ColumnSpec, changes []ColumnChange) (map[string]ColumnChange, error) {
	if len(changes) == 0 {
		return nil, fmt.Errorf("alter table %s: no changes", table)
	}
	known := make(map[string]bool, len(current))
	for _, c := range current {
		known[c.Name] = true
	}
	byName := make(map[string]ColumnChange, len(changes))
	for _, ch := range changes {
		if !known[ch.Name] {
			return nil, fmt.Errorf("alter table %s: unknown column %q", table, ch.Name)
		}
		byName[ch.Name] = ch
	}
	return byName, nil
}

// MySQLAlterBuilder uses MODIFY COLUMN, converting formatted dates with
// STR_TO_DATE first.
type MySQLAlterBuilder struct {
	d Dialect
}

func (b *MySQLAlterBuilder) Build(table string, current []ColumnSpec, changes []ColumnChange) ([]string, error) {
	if _, err := checkChanges(table, current, changes); err != nil {
		return nil, err
	}
	t := b.d.QuoteIdent(table)

	var stmts []string
	mods := make([]string, 0, len(changes))
	for _, ch := range changes {
		colType, err := b.d.ColumnType(ch.DictType)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", ch.Name, err)
		}
		col := b.d.QuoteIdent(ch.Name)
		if hasDateFormat(ch) {
			stmts = append(stmts, fmt.Sprintf("UPDATE %s SET %s = STR_TO_DATE(%s, %s)",
				t, col, col, b.d.QuoteLiteral(ch.Format)))
		}
		mod := "MODIFY COLUMN " + col + " " + colType
		if ch.Description != "" {
			mod += " COMMENT " + b.d.QuoteLiteral(ch.Description)
		}
		mods = append(mods, mod)
	}
	stmts = append(stmts, "ALTER TABLE "+t+" "+strings.Join(mods, ", "))
	return stmts, nil
}

// StrictModeOffMySQLAlterBuilder wraps MySQLAlterBuilder and clears the
// session sql_mode before any statement runs.
type StrictModeOffMySQLAlterBuilder struct {
	*MySQLAlterBuilder
}

func (b *StrictModeOffMySQLAlterBuilder) Build(table string, current []ColumnSpec, changes []ColumnChange) ([]string, error) {
	stmts, err := b.MySQLAlterBuilder.Build(table, current, changes)
	if err != nil {
		return nil, err
	}
	return append([]string{"SET SESSION sql_mode = ''"}, stmts...), nil
}

// PostgresAlterBuilder uses ALTER COLUMN ... TYPE ... USING.
type PostgresAlterBuilder struct {
	d Dialect
}

func (b *PostgresAlterBuilder) Build(table string, current []ColumnSpec, changes []ColumnChange) ([]string, error) {
	if _, err := checkChanges(table, current, changes); err != nil {
		return nil, err
	}
	t := b.d.QuoteIdent(table)

	alters := make([]string, 0, len(changes))
	var comments []string
	for _, ch := range changes {
		colType, err := b.d.ColumnType(ch.DictType)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", ch.Name, err)
		}
		col := b.d.QuoteIdent(ch.Name)
		source := fmt.Sprintf("NULLIF(TRIM(%s::text), '')", col)

		var using string
		switch {
		case hasDateFormat(ch) && ch.DictType == "date":
			using = fmt.Sprintf("to_date(%s, %s)", source, b.d.QuoteLiteral(PostgresDateFormat(ch.Format)))
		case hasDateFormat(ch):
			using = fmt.Sprintf("to_timestamp(%s, %s)::%s", source, b.d.QuoteLiteral(PostgresDateFormat(ch.Format)), colType)
		default:
			using = source + "::" + colType
		}
		alters = append(alters, fmt.Sprintf("ALTER COLUMN %s TYPE %s USING %s", col, colType, using))

		if ch.Description != "" {
			comments = append(comments, fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s",
				t, col, b.d.QuoteLiteral(ch.Description)))
		}
	}
	stmts := []string{"ALTER TABLE " + t + " " + strings.Join(alters, ", ")}
	return append(stmts, comments...), nil
}

// PostgresDateFormat converts a strptime format to a to_date/to_timestamp
// template.
func PostgresDateFormat(format string) string {
	r := strings.NewReplacer(
		"%Y", "YYYY",
		"%y", "YY",
		"%m", "MM",
		"%d", "DD",
		"%H", "HH24",
		"%I", "HH12",
		"%M", "MI",
		"%S", "SS",
		"%p", "AM",
		"%b", "Mon",
		"%B", "Month",
	)
	return r.Replace(format)
}

// SQLiteAlterBuilder rebuilds the table: SQLite cannot change a column's
// type in place.
type SQLiteAlterBuilder struct {
	d Dialect
}

func (b *SQLiteAlterBuilder) Build(table string, current []ColumnSpec, changes []ColumnChange) ([]string, error) {
	byName, err := checkChanges(table, current, changes)
	if err != nil {
		return nil, err
	}
	tmp := table + "__alter"

	specs := make([]ColumnSpec, len(current))
	names := make([]string, len(current))
	selects := make([]string, len(current))
	for i, c := range current {
		col := b.d.QuoteIdent(c.Name)
		specs[i] = c
		names[i] = col
		selects[i] = col

		ch, ok := byName[c.Name]
		if !ok || c.PrimaryKey {
			continue
		}
		colType, err := b.d.ColumnType(ch.DictType)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", ch.Name, err)
		}
		specs[i].Type = colType
		selects[i] = sqliteConvert(col, ch.DictType, colType)
	}

	create, err := CreateTable(b.d, tmp, specs)
	if err != nil {
		return nil, err
	}
	return []string{
		create,
		fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			b.d.QuoteIdent(tmp), strings.Join(names, ", "), strings.Join(selects, ", "), b.d.QuoteIdent(table)),
		DropTable(b.d, table),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", b.d.QuoteIdent(tmp), b.d.QuoteIdent(table)),
	}, nil
}

// sqliteConvert casts numeric types. Date and time values are copied as
// text once DateColumns callers have rewritten them to ISO form: a CAST
// to DATE would keep only the leading year digits.
func sqliteConvert(col, dictType, colType string) string {
	source := fmt.Sprintf("NULLIF(TRIM(%s), '')", col)
	switch dictType {
	case "number", "integer", "year":
		return fmt.Sprintf("CAST(%s AS %s)", source, colType)
	case "boolean":
		return fmt.Sprintf("CASE LOWER(%s) WHEN 'true' THEN 1 WHEN '1' THEN 1 WHEN 'yes' THEN 1 "+
			"WHEN 'false' THEN 0 WHEN '0' THEN 0 WHEN 'no' THEN 0 END", source)
	default:
		return source
	}
}
