package querysql

import (
	"fmt"
	"strings"
)

// ColumnSpec is a column in a CREATE TABLE or table rebuild.
type ColumnSpec struct {
	Name       string
	Type       string
	PrimaryKey bool
}

// CreateTable renders CREATE TABLE. The primary key column uses the
// dialect's row id definition regardless of its declared Type.
func CreateTable(d Dialect, table string, cols []ColumnSpec) (string, error) {
	if len(cols) == 0 {
		return "", fmt.Errorf("create table %s: no columns", table)
	}
	defs := make([]string, len(cols))
	for i, c := range cols {
		if c.PrimaryKey {
			defs[i] = d.QuoteIdent(c.Name) + " " + d.RowIDType()
			continue
		}
		if c.Type == "" {
			return "", fmt.Errorf("create table %s: column %q has no type", table, c.Name)
		}
		defs[i] = d.QuoteIdent(c.Name) + " " + c.Type
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", d.QuoteIdent(table), strings.Join(defs, ", ")), nil
}

// DropTable renders DROP TABLE IF EXISTS.
func DropTable(d Dialect, table string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdent(table)
}

// InsertRows renders a multi-row INSERT for rows*len(cols) parameters.
func InsertRows(d Dialect, table string, cols []string, rows int) (string, error) {
	if len(cols) == 0 || rows <= 0 {
		return "", fmt.Errorf("insert into %s: nothing to insert", table)
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
	}

	n := 0
	tuples := make([]string, rows)
	for r := 0; r < rows; r++ {
		marks := make([]string, len(cols))
		for i := range cols {
			n++
			marks[i] = d.Placeholder(n)
		}
		tuples[r] = "(" + strings.Join(marks, ", ") + ")"
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		d.QuoteIdent(table), strings.Join(quoted, ", "), strings.Join(tuples, ", ")), nil
}
