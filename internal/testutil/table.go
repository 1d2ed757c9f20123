package testutil

import (
	"context"
	"sync"

	"github.com/roach88/datastore/internal/datastore"
	"github.com/roach88/datastore/internal/ir"
	"github.com/roach88/datastore/internal/queryir"
	"github.com/roach88/datastore/internal/querysql"
)

// FakeTable is an in-memory datastore.Table that records calls.
//
// Query returns Result (or QueryErr) as-is; it does not evaluate the plan.
// Thread-safety: all methods are safe for concurrent use.
type FakeTable struct {
	mu sync.Mutex

	TableName string
	Fields    datastore.Schema
	Exists    bool

	Result   *datastore.ResultSet
	Total    int64
	QueryErr error
	DropErr  error
	AlterErr error

	SchemaCalls int
	QueryCalls  int
	CountCalls  int
	DropCalls   int
	Plans       []queryir.Plan
	Changes     [][]querysql.ColumnChange
}

var _ datastore.Table = (*FakeTable)(nil)

// NewFakeTable creates an existing table for identifier with the row id
// followed by TEXT columns.
func NewFakeTable(identifier string, columns ...string) *FakeTable {
	return &FakeTable{
		TableName: ir.TableName(identifier),
		Fields:    datastore.TextSchema(columns),
		Exists:    true,
	}
}

// WithTypes overrides column types by name.
func (f *FakeTable) WithTypes(types map[string]string) *FakeTable {
	for i, field := range f.Fields.Fields {
		if t, ok := types[field.Name]; ok {
			f.Fields.Fields[i].Type = t
		}
	}
	return f
}

func (f *FakeTable) Name() string {
	return f.TableName
}

func (f *FakeTable) Schema(ctx context.Context) (datastore.Schema, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SchemaCalls++
	if !f.Exists {
		return datastore.Schema{}, datastore.ErrTableNotFound
	}
	return f.Fields, nil
}

func (f *FakeTable) Create(ctx context.Context, schema datastore.Schema) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Fields = schema
	f.Exists = true
	return nil
}

func (f *FakeTable) Drop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DropCalls++
	if f.DropErr != nil {
		return f.DropErr
	}
	if !f.Exists {
		return datastore.ErrTableNotFound
	}
	f.Exists = false
	return nil
}

func (f *FakeTable) Insert(ctx context.Context, columns []string, rows [][]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Total += int64(len(rows))
	return nil
}

func (f *FakeTable) Query(ctx context.Context, plan queryir.Plan) (*datastore.ResultSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.QueryCalls++
	f.Plans = append(f.Plans, plan)
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	if f.Result == nil {
		return &datastore.ResultSet{Columns: plan.Keys()}, nil
	}
	return f.Result, nil
}

func (f *FakeTable) Count(ctx context.Context, plan queryir.Plan) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CountCalls++
	if f.QueryErr != nil {
		return 0, f.QueryErr
	}
	return f.Total, nil
}

func (f *FakeTable) ApplyDictionary(ctx context.Context, changes []querysql.ColumnChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Changes = append(f.Changes, changes)
	if f.AlterErr != nil {
		return f.AlterErr
	}
	for _, c := range changes {
		colType, err := querysql.SQLite.ColumnType(c.DictType)
		if err != nil {
			return err
		}
		for i, field := range f.Fields.Fields {
			if field.Name == c.Name {
				f.Fields.Fields[i].Type = colType
				f.Fields.Fields[i].Description = c.Description
			}
		}
	}
	return nil
}
