package datastore

import (
	"github.com/cockroachdb/errors"

	"github.com/roach88/datastore/internal/querysql"
)

// RowIDColumn is the synthetic primary key of every datastore table.
const RowIDColumn = "record_number"

// ErrTableNotFound is returned when a resource has no datastore table.
var ErrTableNotFound = errors.New("datastore table not found")

// Field is one column of a table as reported by the engine.
type Field struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Schema describes a table's columns in position order.
type Schema struct {
	Fields     []Field  `json:"fields"`
	PrimaryKey []string `json:"primary_key,omitempty"`
}

// Field looks a column up by name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Has reports whether the schema has a column named name.
func (s Schema) Has(name string) bool {
	_, ok := s.Field(name)
	return ok
}

// IsPrimaryKey reports whether name is part of the primary key.
func (s Schema) IsPrimaryKey(name string) bool {
	for _, pk := range s.PrimaryKey {
		if pk == name {
			return true
		}
	}
	return false
}

// RowID returns the single-column primary key, or "" when there is none.
func (s Schema) RowID() string {
	if len(s.PrimaryKey) == 1 {
		return s.PrimaryKey[0]
	}
	return ""
}

// Names returns column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// TextSchema returns the schema of a freshly imported table: the row id
// followed by one TEXT column per header.
func TextSchema(columns []string) Schema {
	fields := make([]Field, 0, len(columns)+1)
	fields = append(fields, Field{Name: RowIDColumn, Type: "INTEGER"})
	for _, c := range columns {
		fields = append(fields, Field{Name: c, Type: "TEXT"})
	}
	return Schema{Fields: fields, PrimaryKey: []string{RowIDColumn}}
}

func (s Schema) columnSpecs() []querysql.ColumnSpec {
	specs := make([]querysql.ColumnSpec, len(s.Fields))
	for i, f := range s.Fields {
		specs[i] = querysql.ColumnSpec{Name: f.Name, Type: f.Type, PrimaryKey: s.IsPrimaryKey(f.Name)}
	}
	return specs
}
