package dictionary

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/roach88/datastore/internal/datastore"
	"github.com/roach88/datastore/internal/ir"
	"github.com/roach88/datastore/internal/postimport"
	"github.com/roach88/datastore/internal/querysql"
)

// TableProvider resolves table handles. *datastore.Store implements it.
type TableProvider interface {
	StorageMap(identifiers []string) datastore.StorageMap
}

// Enforcer retypes a resource's table to its data dictionary.
type Enforcer struct {
	discovery *Discovery
	tables    TableProvider
}

var _ postimport.Processor = (*Enforcer)(nil)

// NewEnforcer creates the dictionary enforcement processor.
func NewEnforcer(discovery *Discovery, tables TableProvider) *Enforcer {
	return &Enforcer{discovery: discovery, tables: tables}
}

func (e *Enforcer) Name() string {
	return "dictionary_enforcer"
}

// Process applies the resource's dictionary. Dictionary fields are matched
// to columns by their sanitized name; fields with no column are ignored,
// as is the row id column.
func (e *Enforcer) Process(ctx context.Context, res ir.Resource) error {
	dict, err := e.discovery.Dictionary(res)
	if err != nil {
		return err
	}

	identifier := res.Identifier()
	table := e.tables.StorageMap([]string{identifier})[identifier]
	if table == nil {
		return errors.Newf("no table handle for %s", identifier)
	}
	schema, err := table.Schema(ctx)
	if err != nil {
		return errors.Wrapf(err, "read schema of %s", identifier)
	}

	changes := Changes(*dict, schema)
	if len(changes) == 0 {
		slog.Debug("dictionary matches no columns", "resource", identifier, "dictionary", dict.ID)
		return nil
	}
	if err := table.ApplyDictionary(ctx, changes); err != nil {
		return errors.Wrapf(err, "apply dictionary %s to %s", dict.ID, identifier)
	}

	slog.Debug("dictionary applied", "resource", identifier, "dictionary", dict.ID, "columns", len(changes))
	return nil
}

// Changes lists the column changes that bring schema in line with dict.
func Changes(dict ir.DataDictionary, schema datastore.Schema) []querysql.ColumnChange {
	var changes []querysql.ColumnChange
	for _, f := range dict.Fields {
		name := f.Name
		if !schema.Has(name) {
			name = datastore.ColumnName(f.Name)
		}
		if !schema.Has(name) || schema.IsPrimaryKey(name) {
			continue
		}

		desc := f.Description
		if desc == "" {
			desc = f.Title
		}
		changes = append(changes, querysql.ColumnChange{
			Name:        name,
			DictType:    f.Type,
			Format:      f.Format,
			Description: desc,
		})
	}
	return changes
}
