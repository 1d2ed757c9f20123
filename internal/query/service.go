package query

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/roach88/datastore/internal/datastore"
	"github.com/roach88/datastore/internal/ir"
	"github.com/roach88/datastore/internal/querydoc"
	"github.com/roach88/datastore/internal/queryir"
	"github.com/roach88/datastore/internal/translate"
)

// TableProvider builds the per-request storage map.
// *datastore.Store implements it.
type TableProvider interface {
	StorageMap(identifiers []string) datastore.StorageMap
}

// Service runs query documents. It is safe for concurrent use; each call
// builds its own storage map and plan.
type Service struct {
	tables     TableProvider
	translator *translate.Translator
}

// NewService creates a query service.
func NewService(tables TableProvider, translator *translate.Translator) *Service {
	return &Service{tables: tables, translator: translator}
}

// Run parses raw and executes it.
func (s *Service) Run(ctx context.Context, raw []byte) (*Response, error) {
	doc, err := querydoc.Parse(raw)
	if err != nil {
		var sve *querydoc.SchemaValidationError
		if errors.As(err, &sve) {
			return nil, translate.NewSchemaValidationError(sve.Details)
		}
		return nil, err
	}
	return s.RunDocument(ctx, doc)
}

// RunDocument executes an already parsed document.
func (s *Service) RunDocument(ctx context.Context, doc *querydoc.Document) (*Response, error) {
	// The resource count is checked before any table handle exists.
	if err := s.translator.CheckResources(doc); err != nil {
		return nil, err
	}

	storage := s.tables.StorageMap(doc.ResourceIDs())
	plan, err := s.translator.Translate(ctx, doc, storage)
	if err != nil {
		return nil, err
	}

	resource := plan.From.Resource
	table := storage[resource]
	resp := &Response{Query: echo(doc, plan), Columns: plan.Keys()}
	if resp.ID, err = queryID(resp.Query); err != nil {
		return nil, err
	}

	if doc.Results {
		rs, err := table.Query(ctx, *plan)
		if err != nil {
			return nil, translate.NewStorageError(resource, err)
		}
		resp.Results = assembleRows(rs, doc.Keys)
	}

	if doc.Count {
		n, err := table.Count(ctx, *plan)
		if err != nil {
			return nil, translate.NewStorageError(resource, err)
		}
		resp.Count = &n
	}

	if doc.Schema {
		schemas, err := resultSchemas(ctx, doc, plan, storage)
		if err != nil {
			return nil, err
		}
		resp.Schema = schemas
	}

	slog.Debug("query executed",
		"query_id", resp.ID,
		"resource", resource,
		"tables", len(plan.Tables()),
		"rows", len(resp.Results),
		"limit", plan.Limit,
		"offset", plan.Offset,
	)
	return resp, nil
}

// queryID hashes the echoed document. Requests that normalize to the same
// document share an ID whatever their key order.
func queryID(doc *querydoc.Document) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", errors.Wrap(err, "encode query")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", errors.Wrap(err, "decode query")
	}
	return ir.QueryHash(v)
}

func assembleRows(rs *datastore.ResultSet, keyed bool) []Row {
	rows := make([]Row, len(rs.Rows))
	for i, values := range rs.Rows {
		rows[i] = Row{Values: values}
		if keyed {
			rows[i].Keys = rs.Columns
		}
	}
	return rows
}

// resultSchemas reports each resource's fields keyed by resource id. With
// an explicit projection only the projected columns are listed.
func resultSchemas(ctx context.Context, doc *querydoc.Document, plan *queryir.Plan, storage datastore.StorageMap) (map[string]TableSchema, error) {
	var projected map[string]map[string]bool
	if len(doc.Properties) > 0 {
		projected = make(map[string]map[string]bool)
		for _, c := range plan.Columns {
			ref, ok := c.Value.(queryir.ColumnRef)
			if !ok {
				continue
			}
			if projected[ref.Column.Table] == nil {
				projected[ref.Column.Table] = make(map[string]bool)
			}
			projected[ref.Column.Table][ref.Column.Name] = true
		}
	}

	out := make(map[string]TableSchema, len(storage))
	for _, ref := range plan.Tables() {
		schema, err := storage[ref.Resource].Schema(ctx)
		if err != nil {
			return nil, translate.NewStorageError(ref.Resource, err)
		}

		ts, ok := out[ref.Resource]
		if !ok {
			ts = TableSchema{Fields: make(map[string]FieldInfo)}
			out[ref.Resource] = ts
		}
		for _, f := range schema.Fields {
			if projected != nil && !projected[ref.Alias][f.Name] {
				continue
			}
			ts.Fields[f.Name] = FieldInfo{Type: f.Type, Description: f.Description}
		}
	}
	return out, nil
}

// echo returns a copy of doc carrying the effective limit.
func echo(doc *querydoc.Document, plan *queryir.Plan) *querydoc.Document {
	out := *doc
	limit := plan.Limit
	out.Limit = &limit
	return &out
}
